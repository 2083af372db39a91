package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/blueberry-browser/blueberry-go/pkg/notify"
)

const heartbeatInterval = 15 * time.Second

// NotificationHandler streams bus events as server-sent events.
type NotificationHandler struct {
	bus       *notify.Bus
	heartbeat time.Duration
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(bus *notify.Bus) *NotificationHandler {
	return &NotificationHandler{bus: bus, heartbeat: heartbeatInterval}
}

// Stream handles GET /notifications. The subscription lives as long as the
// request; events published before it was opened are not replayed.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	events, cancel := h.bus.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case evt, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", evt.Kind, evt.ID, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
