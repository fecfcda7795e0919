package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/broadcast"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamBuffer       = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Stream upgrades to a websocket and forwards the vehicle's snapshots as JSON
// until the client goes away. The current snapshot is sent first.
func (h *SimulationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.Error(w, "Streaming not available", http.StatusServiceUnavailable)
		return
	}
	vin := chi.URLParam(r, "vin")
	current, err := h.sim.Snapshot(r.Context(), vin)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).WithField("vin", vin).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	topic := broadcast.Topic(vin)
	id, snaps := h.hub.Subscribe(topic, streamBuffer)
	defer h.hub.Unsubscribe(topic, id)

	fields := log.Fields{"vin": vin, "subscriber": id}
	log.WithFields(fields).Info("Websocket subscriber connected")
	defer log.WithFields(fields).Info("Websocket subscriber disconnected")

	// reads only detect the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := conn.WriteJSON(current); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				log.WithFields(fields).WithError(err).Debug("Websocket write failed")
				return
			}
		}
	}
}
