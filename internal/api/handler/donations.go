// internal/api/handler/donations.go
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"mandir-fund/internal/service"
	"mandir-fund/internal/util"
)

// keepAliveInterval is how often an idle live stream sends a comment line.
const keepAliveInterval = 25 * time.Second

// DonationHandler serves the public donation views and the live stream.
type DonationHandler struct {
	live   service.LiveService
	logger *zerolog.Logger
}

// NewDonationHandler creates a new DonationHandler.
func NewDonationHandler(live service.LiveService, logger *zerolog.Logger) *DonationHandler {
	return &DonationHandler{
		live:   live,
		logger: logger,
	}
}

// Recent returns the donations feed, newest first.
// GET /api/donations/recent?limit=
func (h *DonationHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			respondWithError(w, h.logger, fmt.Errorf("%w: limit must be a non-negative integer", util.ErrInvalidInput))
			return
		}
		limit = v
	}
	respondWithJSON(w, h.logger, http.StatusOK, h.live.Recent(limit))
}

// Stats returns the running total and donor count.
// GET /api/donations/stats
func (h *DonationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, h.live.Stats())
}

// TopDonors returns the leaderboard.
// GET /api/donations/top
func (h *DonationHandler) TopDonors(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, h.live.TopDonors())
}

// Gratitude returns the thank-you note for the latest named donor.
// GET /api/live/gratitude
func (h *DonationHandler) Gratitude(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, h.live.Gratitude())
}

// Stream pushes live updates as Server-Sent Events until the client leaves.
// GET /api/live/stream
func (h *DonationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := prepareSSE(w)
	if !ok {
		respondWithJSON(w, h.logger, http.StatusInternalServerError, ErrorResponse{Error: "streaming unsupported"})
		return
	}

	events, cancel := h.live.Watch()
	defer cancel()

	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				h.logger.Debug().Err(err).Msg("Live stream write failed")
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// prepareSSE configures the HTTP response for Server Sent Events responses.
func prepareSSE(w http.ResponseWriter) (http.Flusher, bool) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher, ok := w.(http.Flusher)
	return flusher, ok
}

func writeSSE(w http.ResponseWriter, ev service.LiveEvent) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
