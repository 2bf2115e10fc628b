package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bilix/bilix/internal/reporting"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4o-mini"

	// maxHistory is how many trailing chat messages are sent to the model.
	maxHistory = 20

	// maxSpeechInput is the longest text the speech endpoint accepts.
	maxSpeechInput = 4096

	summaryTimeframe = reporting.Timeframe30Days
	summaryHorizon   = 30
)

var (
	// ErrInvalidInput is returned for an empty conversation, an unknown role
	// or voice, or text the speech endpoint cannot take.
	ErrInvalidInput = errors.New("invalid assistant input")

	// ErrUpstream is returned when the model provider fails.
	ErrUpstream = errors.New("assistant provider unavailable")
)

// Completer is the part of the OpenAI client the assistant uses.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
	CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// DashboardSource supplies the figures the assistant talks about.
type DashboardSource interface {
	Dashboard(ctx context.Context, userID string, q reporting.Query, horizonDays int) (reporting.Dashboard, error)
}

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the assistant's answer.
type Reply struct {
	Message Message `json:"message"`
	Model   string  `json:"model"`
}

// Assistant answers questions about a user's finances.
type Assistant struct {
	client  Completer
	reports DashboardSource
	model   string
	log     zerolog.Logger
}

// New creates an assistant over an OpenAI client.
func New(apiKey, model string, reports DashboardSource, log zerolog.Logger) *Assistant {
	return NewWithClient(openai.NewClient(apiKey), model, reports, log)
}

// NewWithClient creates an assistant with an explicit Completer.
func NewWithClient(client Completer, model string, reports DashboardSource, log zerolog.Logger) *Assistant {
	if model == "" {
		model = DefaultModel
	}
	return &Assistant{
		client:  client,
		reports: reports,
		model:   model,
		log:     log.With().Str("component", "assistant").Logger(),
	}
}

// Chat answers the last user message. The system prompt carries a summary
// of the user's dashboard; when the figures cannot be loaded the assistant
// still answers and says so.
func (a *Assistant) Chat(ctx context.Context, userID string, messages []Message) (*Reply, error) {
	history, err := normalizeHistory(messages)
	if err != nil {
		return nil, err
	}

	var summary string
	dash, err := a.reports.Dashboard(ctx, userID, reporting.Query{Timeframe: summaryTimeframe}, summaryHorizon)
	if err != nil {
		a.log.Warn().Err(err).Str("user_id", userID).Msg("Dashboard unavailable for chat context")
	} else {
		summary = summarizeDashboard(dash)
	}

	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: append([]openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(summary)},
		}, history...),
		Temperature: 0.2,
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Chat: %w: %w", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("Chat: %w: no choices returned", ErrUpstream)
	}

	a.log.Debug().
		Str("user_id", userID).
		Int("messages", len(history)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("Chat completed")

	return &Reply{
		Message: Message{
			Role:    openai.ChatMessageRoleAssistant,
			Content: strings.TrimSpace(resp.Choices[0].Message.Content),
		},
		Model: resp.Model,
	}, nil
}

// normalizeHistory keeps the trailing user/assistant turns and requires the
// conversation to end with a user message.
func normalizeHistory(messages []Message) ([]openai.ChatCompletionMessage, error) {
	var out []openai.ChatCompletionMessage
	for i, m := range messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			return nil, fmt.Errorf("%w: message %d has role %q", ErrInvalidInput, i, m.Role)
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: content})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no messages", ErrInvalidInput)
	}
	if out[len(out)-1].Role != openai.ChatMessageRoleUser {
		return nil, fmt.Errorf("%w: last message must come from the user", ErrInvalidInput)
	}
	if len(out) > maxHistory {
		out = out[len(out)-maxHistory:]
	}
	return out, nil
}

// Transcribe turns recorded speech into text with Whisper.
func (a *Assistant) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if filename == "" {
		filename = "audio.webm"
	}

	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   audio,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("Transcribe: %w: %w", ErrUpstream, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

var voices = map[string]openai.SpeechVoice{
	"alloy":   openai.VoiceAlloy,
	"echo":    openai.VoiceEcho,
	"fable":   openai.VoiceFable,
	"onyx":    openai.VoiceOnyx,
	"nova":    openai.VoiceNova,
	"shimmer": openai.VoiceShimmer,
}

// Speak renders text as an MP3 stream. The caller closes the stream.
func (a *Assistant) Speak(ctx context.Context, text, voice string) (io.ReadCloser, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}
	if len(text) > maxSpeechInput {
		return nil, fmt.Errorf("%w: text longer than %d characters", ErrInvalidInput, maxSpeechInput)
	}

	v := openai.VoiceAlloy
	if voice != "" {
		var ok bool
		if v, ok = voices[strings.ToLower(voice)]; !ok {
			return nil, fmt.Errorf("%w: unknown voice %q", ErrInvalidInput, voice)
		}
	}

	resp, err := a.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          v,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("Speak: %w: %w", ErrUpstream, err)
	}
	return resp, nil
}
