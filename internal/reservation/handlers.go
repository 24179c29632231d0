package reservation

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

// Handler exposes reservation endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

type reserveRequest struct {
	CatalogItemID uuid.UUID `json:"catalogItemId" validate:"required"`
	Quantity      int       `json:"quantity" validate:"gt=0"`
	StartsAt      time.Time `json:"startsAt" validate:"required"`
	EndsAt        time.Time `json:"endsAt" validate:"required"`
}

// Routes mounts reservation endpoints under the offers tree.
func (h Handler) Routes(r chi.Router) {
	r.Get("/offers/{offerID}/reservations", h.listForOffer)
	r.Post("/offers/{offerID}/reservations", h.reserve)
	r.Delete("/reservations/{reservationID}", h.release)
}

func (h Handler) listForOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := uuid.Parse(chi.URLParam(r, "offerID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "offerID must be a UUID", nil)
		return
	}
	reservations, err := h.Service.ListForOffer(r.Context(), offerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if reservations == nil {
		reservations = []Reservation{}
	}
	common.JSONData(w, http.StatusOK, reservations)
}

func (h Handler) reserve(w http.ResponseWriter, r *http.Request) {
	offerID, err := uuid.Parse(chi.URLParam(r, "offerID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "offerID must be a UUID", nil)
		return
	}
	var payload reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid reservation payload", nil)
			return
		}
	}
	created, err := h.Service.Reserve(r.Context(), ReserveInput{
		OfferID:       offerID,
		CatalogItemID: payload.CatalogItemID,
		Quantity:      payload.Quantity,
		StartsAt:      payload.StartsAt,
		EndsAt:        payload.EndsAt,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, created)
}

func (h Handler) release(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "reservationID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "reservationID must be a UUID", nil)
		return
	}
	if err := h.Service.Release(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
}
