package ws

import (
	"context"
	"errors"

	"github.com/crewboard/backend/internal/core/ports"
	"github.com/crewboard/backend/internal/core/services"
	"github.com/crewboard/backend/internal/infrastructure/logger"
	"github.com/crewboard/backend/pkg/dedupe"
	"github.com/crewboard/backend/pkg/wire"
	"github.com/gofiber/contrib/websocket"
)

type SessionHandler struct {
	crew ports.CrewService
	hub  *Hub
	log  *logger.Logger
}

func NewSessionHandler(crew ports.CrewService, hub *Hub, log *logger.Logger) *SessionHandler {
	return &SessionHandler{crew: crew, hub: hub, log: log}
}

// Handle runs the read loop for one viewer connection. Frames are validated
// at this boundary; a malformed frame is dropped and the connection stays
// open. A replayed task_submit (same taskId, e.g. a client flushing its
// queue after reconnect) is suppressed per connection before it reaches the
// orchestrator.
func (h *SessionHandler) Handle(c *websocket.Conn) {
	h.hub.Register(c)
	defer func() {
		h.hub.Unregister(c)
		c.Close()
	}()

	greeting := wire.NewSystemMessage("Crew session initialized. Agents are ready to process your request.")
	if err := h.hub.Send(c, greeting); err != nil {
		h.log.Warnw("ws_greeting_failed", "error", err)
		return
	}

	seen := dedupe.NewTracker()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.log.Infow("ws_conn_closed", "error", err)
			return
		}

		msg, err := wire.Decode(data)
		if err != nil {
			h.log.Warnw("ws_malformed_frame", "error", err)
			continue
		}

		switch m := msg.(type) {
		case *wire.TaskSubmitMessage:
			if key, ok := m.DedupeKey(); ok && seen.Seen(key) {
				h.log.Infow("ws_task_submit_duplicate", "task_id", m.TaskID)
				continue
			}
			if _, err := h.crew.Submit(context.Background(), m.Content, m.TaskID); err != nil {
				if errors.Is(err, services.ErrEmptyTask) {
					// Surfaced to the submitting caller only, never broadcast.
					h.hub.Send(c, wire.NewSystemMessage("Task rejected: content must not be empty."))
					continue
				}
				h.log.Errorw("ws_task_submit_failed", "error", err)
			}
		default:
			h.log.Warnw("ws_unexpected_inbound_kind", "kind", msg.Kind())
		}
	}
}
