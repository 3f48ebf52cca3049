package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/Shivanand-hulikatti/stay-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/stay-booking/internal/model"
	"github.com/go-chi/chi/v5"
)

// RoomEvents handles GET /rooms/{id}/events
// Streams the room's calendar changes as Server-Sent Events. The first
// event is a snapshot of the booked ranges.
func (h *BookingHandler) RoomEvents(w http.ResponseWriter, r *http.Request) {
	if h.changes == nil {
		writeError(w, r, apperror.ErrNotFound.WithMessage("live updates are not enabled"))
		return
	}
	roomID := chi.URLParam(r, "id")
	seq, err := h.svc.BookedRanges(r.Context(), roomID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ranges := slices.Collect(seq)
	if ranges == nil {
		ranges = []model.DateRange{}
	}

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Printf("clear write deadline: %v", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, rc, "snapshot", map[string]any{"bookedRanges": ranges}); err != nil {
		return
	}
	for ev := range h.changes.Subscribe(r.Context(), roomID) {
		if err := writeEvent(w, rc, string(ev.Kind), ev); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return rc.Flush()
}
