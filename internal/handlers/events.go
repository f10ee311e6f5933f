package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/greenfin/greenfin-portal/internal/common"
	"github.com/greenfin/greenfin-portal/internal/portfolio"
)

// EventsHandler streams snapshot changes to the browser as server-sent
// events. Each write to the store produces one "snapshot" event; delivery is
// at-least-once with last-write-wins across rapid successive writes.
type EventsHandler struct {
	service *portfolio.Service
	logger  *common.Logger
}

// NewEventsHandler creates a new SSE handler.
func NewEventsHandler(service *portfolio.Service, logger *common.Logger) *EventsHandler {
	return &EventsHandler{
		service: service,
		logger:  logger,
	}
}

// ServeHTTP handles GET /api/portfolio/events.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates := h.service.Subscribe()
	defer h.service.Unsubscribe(updates)

	// Send the current snapshot immediately so the client does not wait for
	// the next divestment to render.
	if snapshot, err := h.service.Snapshot(r.Context()); err == nil {
		h.writeEvent(w, flusher, snapshot)
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, open := <-updates:
			if !open {
				return
			}
			h.writeEvent(w, flusher, snapshot)
		}
	}
}

func (h *EventsHandler) writeEvent(w http.ResponseWriter, flusher http.Flusher, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Str("error", err.Error()).Msg("failed to encode snapshot event")
		return
	}
	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
	flusher.Flush()
}
