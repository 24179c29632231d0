package offer

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stagecrew/backend-offers/internal/common"
)

// Handler exposes the offer endpoints.
type Handler struct {
	Service     *Service
	Validate    *validator.Validate
	DefaultPage int
	MaxPerPage  int
}

type createOfferRequest struct {
	Title           string     `json:"title" validate:"required"`
	CustomerName    string     `json:"customerName"`
	EventDate       *time.Time `json:"eventDate"`
	DiscountPercent float64    `json:"discountPercent" validate:"gte=0,lte=100"`
	IsVatPayer      bool       `json:"isVatPayer"`
	PresetID        *uuid.UUID `json:"presetId"`
}

type patchOfferRequest struct {
	Title           *string    `json:"title"`
	CustomerName    *string    `json:"customerName"`
	Status          *string    `json:"status" validate:"omitempty,oneof=draft sent confirmed canceled"`
	EventDate       *time.Time `json:"eventDate"`
	DiscountPercent *float64   `json:"discountPercent" validate:"omitempty,gte=0,lte=100"`
	IsVatPayer      *bool      `json:"isVatPayer"`
	GroupID         *uuid.UUID `json:"groupId"`
}

type createItemRequest struct {
	Category    string  `json:"category" validate:"required"`
	Subcategory string  `json:"subcategory"`
	Name        string  `json:"name" validate:"required"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	Duration    float64 `json:"duration" validate:"gte=0.5"`
	SortOrder   int     `json:"sortOrder" validate:"gte=0"`
}

type patchItemRequest struct {
	Name      *string  `json:"name"`
	UnitPrice *float64 `json:"unitPrice" validate:"omitempty,gte=0"`
	Quantity  *float64 `json:"quantity" validate:"omitempty,gte=0"`
	Duration  *float64 `json:"duration" validate:"omitempty,gte=0.5"`
	SortOrder *int     `json:"sortOrder" validate:"omitempty,gte=0"`
}

// Routes mounts the offer endpoints. Destructive operations are wrapped by requireSupervisor.
func (h Handler) Routes(r chi.Router, requireSupervisor func(http.Handler) http.Handler) {
	r.Get("/offers", h.list)
	r.Post("/offers", h.create)
	r.Get("/offers/{offerID}", h.get)
	r.Patch("/offers/{offerID}", h.patch)
	r.Get("/offers/{offerID}/items", h.listItems)
	r.Post("/offers/{offerID}/items", h.createItem)
	r.Post("/offers/{offerID}/recalculate", h.recalculate)
	r.Patch("/items/{itemID}", h.patchItem)
	r.Delete("/items/{itemID}", h.deleteItem)
	r.Group(func(r chi.Router) {
		if requireSupervisor != nil {
			r.Use(requireSupervisor)
		}
		r.Delete("/offers/{offerID}", h.delete)
	})
}

func (h Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, h.DefaultPage, h.MaxPerPage)
	result, err := h.Service.List(r.Context(), r.URL.Query().Get("status"), page, perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Offers,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: result.Total},
	})
}

func (h Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload createOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid offer payload", nil)
			return
		}
	}
	ownerID := uuid.Nil
	if userID, ok := common.UserID(r.Context()); ok {
		if parsed, err := uuid.Parse(userID); err == nil {
			ownerID = parsed
		}
	}
	detail, err := h.Service.Create(r.Context(), CreateInput{
		Title:           payload.Title,
		CustomerName:    payload.CustomerName,
		EventDate:       payload.EventDate,
		DiscountPercent: payload.DiscountPercent,
		IsVatPayer:      payload.IsVatPayer,
		OwnerID:         ownerID,
		PresetID:        payload.PresetID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, detail)
}

func (h Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "offerID")
	if !ok {
		return
	}
	detail, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, detail)
}

func (h Handler) patch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "offerID")
	if !ok {
		return
	}
	var payload patchOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid offer patch", nil)
			return
		}
	}
	patch := Patch{
		Title:           payload.Title,
		CustomerName:    payload.CustomerName,
		EventDate:       payload.EventDate,
		DiscountPercent: payload.DiscountPercent,
		IsVatPayer:      payload.IsVatPayer,
		GroupID:         payload.GroupID,
	}
	if payload.Status != nil {
		status := Status(*payload.Status)
		patch.Status = &status
	}
	updated, err := h.Service.Update(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, updated)
}

func (h Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "offerID")
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h Handler) listItems(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "offerID")
	if !ok {
		return
	}
	detail, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := detail.Items
	if items == nil {
		items = []Item{}
	}
	common.JSONData(w, http.StatusOK, items)
}

func (h Handler) createItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "offerID")
	if !ok {
		return
	}
	var payload createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid item payload", nil)
			return
		}
	}
	created, err := h.Service.AddItem(r.Context(), id, Item{
		Category:    payload.Category,
		Subcategory: payload.Subcategory,
		Name:        payload.Name,
		UnitPrice:   payload.UnitPrice,
		Quantity:    payload.Quantity,
		Duration:    payload.Duration,
		SortOrder:   payload.SortOrder,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, created)
}

func (h Handler) patchItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "itemID")
	if !ok {
		return
	}
	var payload patchItemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid item patch", nil)
			return
		}
	}
	updated, err := h.Service.UpdateItem(r.Context(), id, ItemPatch{
		Name:      payload.Name,
		UnitPrice: payload.UnitPrice,
		Quantity:  payload.Quantity,
		Duration:  payload.Duration,
		SortOrder: payload.SortOrder,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, updated)
}

func (h Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "itemID")
	if !ok {
		return
	}
	if err := h.Service.RemoveItem(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "offerID")
	if !ok {
		return
	}
	if err := h.Service.Recalculate(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	detail, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, detail.Offer)
}

func (h Handler) parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", param+" must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
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
