package handler

import (
	"github.com/Shivanand-hulikatti/stay-booking/internal/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the API router. Every route sees the caller's session;
// /admin routes also require the admin key.
func (h *BookingHandler) Routes(adminKey string) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.Middleware(h.issuer, adminKey))

	r.Get("/health", HealthCheck)

	r.Route("/availability", func(r chi.Router) {
		r.Get("/", h.BookedRanges)
		r.Get("/check", h.CheckAvailability)
		r.Get("/calendar", h.Calendar)
	})
	r.Get("/quote", h.Quote)

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", h.CreateBooking)
		r.Get("/{id}", h.GetBooking)
		r.Delete("/{id}", h.CancelBooking)
	})

	r.Get("/rooms/{id}/events", h.RoomEvents)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", Session)
		r.Post("/logout", Logout)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireAdmin)
		r.Post("/bookings/{id}/confirm", h.transition(h.svc.Confirm))
		r.Post("/bookings/{id}/check-in", h.transition(h.svc.CheckIn))
		r.Post("/bookings/{id}/check-out", h.transition(h.svc.CheckOut))
		r.Post("/bookings/{id}/no-show", h.transition(h.svc.MarkNoShow))
		r.Post("/blocks", h.CreateBlock)
		r.Delete("/blocks/{id}", h.DeleteBlock)
	})

	return r
}
