package handlers

import (
	"net/http"
	"strings"

	"github.com/bilix/bilix/internal/api/middleware"
	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// VendorsHandler handles vendor endpoints.
type VendorsHandler struct {
	repo bq.VendorRepository
	log  zerolog.Logger
}

// NewVendorsHandler creates a new vendors handler.
func NewVendorsHandler(repo bq.VendorRepository, log zerolog.Logger) *VendorsHandler {
	return &VendorsHandler{repo: repo, log: log}
}

// ListVendors handles GET /api/vendors
func (h *VendorsHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.repo.ListVendors(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, h.log, err, "Failed to list vendors")
		return
	}
	if vendors == nil {
		vendors = []domain.Vendor{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"vendors": vendors,
		"count":   len(vendors),
	})
}

// CreateVendor handles POST /api/vendors
func (h *VendorsHandler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userID(r)

	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeStoreError(w, h.log, err, "Failed to create vendor")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	existing, err := h.repo.FindVendorByName(ctx, user, name)
	if err != nil {
		writeStoreError(w, h.log, err, "Failed to create vendor")
		return
	}
	if existing != nil {
		middleware.WriteError(w, http.StatusConflict, "Vendor already exists")
		return
	}

	v := &domain.Vendor{
		ID:      uuid.NewString(),
		UserID:  user,
		Name:    name,
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	}
	if err := h.repo.InsertVendor(ctx, v); err != nil {
		writeStoreError(w, h.log, err, "Failed to create vendor")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, v)
}

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	repo bq.CategoryRepository
	log  zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(repo bq.CategoryRepository, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{repo: repo, log: log}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.ListCategories(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, h.log, err, "Failed to list categories")
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// CreateCategory handles POST /api/categories
func (h *CategoriesHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userID(r)

	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeStoreError(w, h.log, err, "Failed to create category")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	categories, err := h.repo.ListCategories(ctx, user)
	if err != nil {
		writeStoreError(w, h.log, err, "Failed to create category")
		return
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			middleware.WriteError(w, http.StatusConflict, "Category already exists")
			return
		}
	}

	c := &domain.Category{
		ID:     uuid.NewString(),
		UserID: user,
		Name:   name,
		Color:  strings.TrimSpace(req.Color),
	}
	if err := h.repo.InsertCategory(ctx, c); err != nil {
		writeStoreError(w, h.log, err, "Failed to create category")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, c)
}
