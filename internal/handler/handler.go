// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/Shivanand-hulikatti/stay-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/stay-booking/internal/auth"
	"github.com/Shivanand-hulikatti/stay-booking/internal/availability"
	"github.com/Shivanand-hulikatti/stay-booking/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// BookingService is what the handlers need from the service layer.
type BookingService interface {
	IsAvailable(ctx context.Context, roomID string, r model.DateRange) (bool, error)
	BookedRanges(ctx context.Context, roomID string) (iter.Seq[model.DateRange], error)
	Calendar(ctx context.Context, roomID string, r model.DateRange) ([]availability.Day, error)
	Quote(ctx context.Context, roomID string, r model.DateRange) (model.PriceBreakdown, error)
	CreateBooking(ctx context.Context, req model.CreateBookingRequest) (*model.Booking, error)
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	Cancel(ctx context.Context, id string) (*model.Booking, error)
	Confirm(ctx context.Context, id string) (*model.Booking, error)
	CheckIn(ctx context.Context, id string) (*model.Booking, error)
	CheckOut(ctx context.Context, id string) (*model.Booking, error)
	MarkNoShow(ctx context.Context, id string) (*model.Booking, error)
	CreateBlock(ctx context.Context, req model.CreateBlockRequest) (*model.BlockedRange, error)
	DeleteBlock(ctx context.Context, id string) error
}

// ChangeSubscriber streams a room's calendar changes.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, roomID string) iter.Seq[model.ChangeEvent]
}

// BookingHandler holds all HTTP handlers for the booking API.
type BookingHandler struct {
	svc      BookingService
	issuer   *auth.Issuer
	changes  ChangeSubscriber
	validate *validator.Validate
}

// NewBookingHandler constructs a BookingHandler. changes may be nil, which
// disables the live event stream.
func NewBookingHandler(svc BookingService, issuer *auth.Issuer, changes ChangeSubscriber) *BookingHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &BookingHandler{svc: svc, issuer: issuer, changes: changes, validate: v}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as the standard error envelope. Errors outside the
// apperror taxonomy are logged and reported as internal_error without
// their text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.From(err)
	if !ok {
		log.Printf("[%s] %s %s: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
	}
	writeJSON(w, appErr.Status, model.ErrorResponse{Error: appErr.Code, Message: appErr.Message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.Validation("invalid request body: %v", err)
	}
	return nil
}

// validateStruct runs the struct tags and reports every failing field.
func (h *BookingHandler) validateStruct(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperror.Validation("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "CreateBookingRequest.guestInfo.email".
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return apperror.Validation("%s", strings.Join(msgs, "; "))
}

// rangeQuery reads a date range from two query parameters.
func rangeQuery(r *http.Request, fromKey, toKey string) (model.DateRange, error) {
	q := r.URL.Query()
	return model.ParseDateRange(q.Get(fromKey), q.Get(toKey))
}

func unitQuery(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.URL.Query().Get("unitId"))
	if id == "" {
		return "", apperror.Validation("unitId is required")
	}
	return id, nil
}

// ─── Availability ─────────────────────────────────────────────────────────────

// BookedRanges handles GET /availability?unitId=
// Returns the unit's occupied ranges for calendar rendering.
func (h *BookingHandler) BookedRanges(w http.ResponseWriter, r *http.Request) {
	unitID, err := unitQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	seq, err := h.svc.BookedRanges(r.Context(), unitID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	ranges := slices.Collect(seq)
	if ranges == nil {
		ranges = []model.DateRange{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookedRanges": ranges})
}

// CheckAvailability handles GET /availability/check?unitId=&checkIn=&checkOut=
func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	unitID, err := unitQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rng, err := rangeQuery(r, "checkIn", "checkOut")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok, err := h.svc.IsAvailable(r.Context(), unitID, rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": ok})
}

// Calendar handles GET /availability/calendar?unitId=&from=&to=
// Returns one entry per night, for the back-office calendar.
func (h *BookingHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	unitID, err := unitQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rng, err := rangeQuery(r, "from", "to")
	if err != nil {
		writeError(w, r, err)
		return
	}
	days, err := h.svc.Calendar(r.Context(), unitID, rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days})
}

// Quote handles GET /quote?unitId=&checkIn=&checkOut=
func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	unitID, err := unitQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rng, err := rangeQuery(r, "checkIn", "checkOut")
	if err != nil {
		writeError(w, r, err)
		return
	}
	price, err := h.svc.Quote(r.Context(), unitID, rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"priceBreakdown": price})
}

// ─── Bookings ─────────────────────────────────────────────────────────────────

// CreateBooking handles POST /bookings
// Reserves the unit and returns the booking with a guest token.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	booking, err := h.svc.CreateBooking(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := h.issuer.IssueGuestToken(booking)
	if err != nil {
		// The booking exists; the guest can still use the booking code.
		log.Printf("[%s] issue guest token for %s: %v", middleware.GetReqID(r.Context()), booking.ID, err)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"booking": booking, "token": token})
}

// GetBooking handles GET /bookings/{id}
// Requires the booking's guest token or the admin key.
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !mayAccess(r, id) {
		writeError(w, r, apperror.ErrUnauthorized)
		return
	}
	booking, err := h.svc.GetBooking(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// CancelBooking handles DELETE /bookings/{id}
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !mayAccess(r, id) {
		writeError(w, r, apperror.ErrUnauthorized)
		return
	}
	if _, err := h.svc.Cancel(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

func mayAccess(r *http.Request, bookingID string) bool {
	s := auth.FromContext(r.Context())
	return s.IsAdmin() || (s.BookingID() != "" && s.BookingID() == bookingID)
}

// ─── Session ──────────────────────────────────────────────────────────────────

// Session handles GET /session
func Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"session": auth.FromContext(r.Context())})
}

// Logout handles POST /session/logout
// Guest tokens are stateless; the client discards its copy.
func Logout(w http.ResponseWriter, r *http.Request) {
	s := auth.FromContext(r.Context())
	s.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"session": s})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
