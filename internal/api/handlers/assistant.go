package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/bilix/bilix/internal/api/middleware"
	"github.com/bilix/bilix/internal/assistant"
	"github.com/rs/zerolog"
)

const maxAudioBytes = 25 << 20

// Assistant is the conversational surface over the user's finances.
type Assistant interface {
	Chat(ctx context.Context, userID string, messages []assistant.Message) (*assistant.Reply, error)
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
	Speak(ctx context.Context, text, voice string) (io.ReadCloser, error)
}

var _ Assistant = (*assistant.Assistant)(nil)

// AssistantHandler handles the chat and voice endpoints. A nil assistant
// answers 503.
type AssistantHandler struct {
	assistant Assistant
	log       zerolog.Logger
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(a Assistant, log zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{assistant: a, log: log}
}

func (h *AssistantHandler) available(w http.ResponseWriter) bool {
	if h.assistant == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Assistant is not configured")
		return false
	}
	return true
}

func (h *AssistantHandler) writeAssistantError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assistant.ErrInvalidInput), errors.Is(err, errBadRequest):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assistant.ErrUpstream):
		h.log.Error().Err(err).Msg("Assistant provider failed")
		middleware.WriteError(w, http.StatusBadGateway, "Assistant provider unavailable")
	default:
		h.log.Error().Err(err).Msg("Assistant failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Assistant failed")
	}
}

// Chat handles POST /api/assistant/chat with {"messages":[...]}.
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	var req struct {
		Messages []assistant.Message `json:"messages"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeAssistantError(w, err)
		return
	}

	reply, err := h.assistant.Chat(r.Context(), userID(r), req.Messages)
	if err != nil {
		h.writeAssistantError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, reply)
}

// Transcribe handles POST /api/assistant/transcribe with an "audio" part.
func (h *AssistantHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	file, header, err := r.FormFile("audio")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "audio is required")
		return
	}
	defer file.Close()

	text, err := h.assistant.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		h.writeAssistantError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"text": text})
}

// Speech handles POST /api/assistant/speech with {"text":"...","voice":"..."}
// and streams back audio/mpeg.
func (h *AssistantHandler) Speech(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	var req struct {
		Text  string `json:"text"`
		Voice string `json:"voice"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeAssistantError(w, err)
		return
	}

	audio, err := h.assistant.Speak(r.Context(), req.Text, req.Voice)
	if err != nil {
		h.writeAssistantError(w, err)
		return
	}
	defer audio.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, audio); err != nil {
		h.log.Warn().Err(err).Msg("Speech stream interrupted")
	}
}
