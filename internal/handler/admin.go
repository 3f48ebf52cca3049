package handler

import (
	"context"
	"net/http"

	"github.com/Shivanand-hulikatti/stay-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/stay-booking/internal/auth"
	"github.com/Shivanand-hulikatti/stay-booking/internal/model"
	"github.com/go-chi/chi/v5"
)

// RequireAdmin rejects requests without the back-office key.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).IsAdmin() {
			writeError(w, r, apperror.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type transitionFunc func(ctx context.Context, id string) (*model.Booking, error)

// transition builds the handler for POST /admin/bookings/{id}/<action>.
func (h *BookingHandler) transition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		booking, err := fn(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	}
}

// CreateBlock handles POST /admin/blocks
func (h *BookingHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	block, err := h.svc.CreateBlock(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

// DeleteBlock handles DELETE /admin/blocks/{id}
func (h *BookingHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBlock(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
