package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/stagecrew/backend-offers/internal/common"
)

// Handler exposes authentication endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Routes mounts the auth endpoints on the given router. The login rate limit
// middleware is applied by the caller.
func (h Handler) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler, loginLimiter func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if loginLimiter != nil {
			r.Use(loginLimiter)
		}
		r.Post("/auth/login", h.login)
	})
	r.Group(func(r chi.Router) {
		if requireAuth != nil {
			r.Use(requireAuth)
		}
		r.Get("/auth/me", h.me)
	})
}

func (h Handler) login(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "auth service not configured", nil)
		return
	}
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "email and password are required", nil)
			return
		}
	}
	result, err := h.Service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, result)
}

func (h Handler) me(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "auth service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	user, err := h.Service.Me(r.Context(), userID)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
		return
	}
	common.JSONData(w, http.StatusOK, user)
}
