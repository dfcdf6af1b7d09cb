package httpserver

import (
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/eventbus"
)

// StreamHandler forwards eventbus envelopes to dashboard consumers over
// Server-Sent Events. It stays opaque to the payload shape: the core never
// imports a dashboard-specific type, it just relays json.RawMessage.
type StreamHandler struct {
	bus    *eventbus.Bus
	logger *zap.Logger
}

// NewStreamHandler builds a StreamHandler bound to bus.
func NewStreamHandler(bus *eventbus.Bus, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{bus: bus, logger: logger}
}

type streamFrame struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// HandleStream upgrades the request to an SSE stream and relays every
// envelope published on the bus until the client disconnects.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	envelopes, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-envelopes:
			if !ok {
				return
			}
			frame, err := json.Marshal(streamFrame{Channel: env.Channel, Payload: env.Payload})
			if err != nil {
				h.logger.Warn("stream-frame-marshal-failed", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
