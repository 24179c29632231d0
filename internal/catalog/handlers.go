package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stagecrew/backend-offers/internal/common"
)

// Handler exposes catalog and preset endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

type createItemRequest struct {
	Category      string  `json:"category" validate:"required"`
	Subcategory   string  `json:"subcategory"`
	Name          string  `json:"name" validate:"required"`
	UnitPrice     float64 `json:"unitPrice" validate:"gte=0"`
	StockQuantity int     `json:"stockQuantity" validate:"gte=0"`
}

// Routes mounts catalog endpoints. Write operations are wrapped by requireAdmin.
func (h Handler) Routes(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	r.Get("/catalog/items", h.listItems)
	r.Get("/catalog/items/{itemID}", h.getItem)
	r.Get("/presets", h.listPresets)
	r.Get("/presets/{presetID}", h.getPreset)
	r.Group(func(r chi.Router) {
		if requireAdmin != nil {
			r.Use(requireAdmin)
		}
		r.Post("/catalog/items", h.createItem)
	})
}

func (h Handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListItems(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if items == nil {
		items = []Item{}
	}
	common.JSONData(w, http.StatusOK, items)
}

func (h Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "item id must be a UUID", nil)
		return
	}
	item, err := h.Service.GetItem(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, item)
}

func (h Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var payload createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid catalog item payload", nil)
			return
		}
	}
	created, err := h.Service.CreateItem(r.Context(), Item{
		Category:      payload.Category,
		Subcategory:   payload.Subcategory,
		Name:          payload.Name,
		UnitPrice:     payload.UnitPrice,
		StockQuantity: payload.StockQuantity,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, created)
}

func (h Handler) listPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.Service.ListPresets(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if presets == nil {
		presets = []Preset{}
	}
	common.JSONData(w, http.StatusOK, presets)
}

func (h Handler) getPreset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "presetID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "preset id must be a UUID", nil)
		return
	}
	preset, err := h.Service.GetPreset(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, preset)
}

func (h Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := appErr.Code
		if code == "" {
			code = "INTERNAL"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
}
