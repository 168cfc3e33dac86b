package http

import (
	"context"
	"encoding/json"
	"net/http"

	"notes-quiz-service/internal/app"
	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/logger"

	"github.com/gorilla/websocket"
)

type WSHandler struct {
	attempts *app.AttemptService
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(attempts *app.AttemptService, log *logger.Logger) *WSHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WSHandler{
		attempts: attempts,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option *int `json:"option"`
}

type savePayload struct {
	Name string `json:"name"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// ServeWS upgrades to a websocket that drives one attempt. Every state change is
// pushed as a "state" message; a saved score comes back as "saved".
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	attemptID := r.URL.Query().Get("attemptId")
	if attemptID == "" {
		http.Error(w, "missing attemptId", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	owner := OwnerFrom(ctx)
	identity := IdentityFrom(ctx)

	updates, cancel, err := h.attempts.Subscribe(ctx, owner, attemptID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	out := newOutbox(func(msg outboundMessage[any]) error { return conn.WriteJSON(msg) }, func(err error) {
		h.log.Debug("ws write error", "error", err, "attempt", attemptID)
	})
	closeSignals := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case out.send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-out.done:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if reply, ok := h.handle(ctx, owner, attemptID, identity, inbound); ok && !out.push(reply) {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	out.close()
}

// outbox is the single writer for one connection: gorilla connections do not support
// concurrent writes.
type outbox struct {
	send chan outboundMessage[any]
	done chan struct{}
}

func newOutbox(write func(outboundMessage[any]) error, onError func(error)) *outbox {
	o := &outbox{
		send: make(chan outboundMessage[any], 16),
		done: make(chan struct{}),
	}
	go func() {
		defer close(o.done)
		for msg := range o.send {
			if err := write(msg); err != nil {
				if onError != nil {
					onError(err)
				}
				return
			}
		}
	}()
	return o
}

// push queues msg and reports false once the writer has stopped, so a dead connection
// cannot block the caller.
func (o *outbox) push(msg outboundMessage[any]) bool {
	select {
	case o.send <- msg:
		return true
	case <-o.done:
		return false
	}
}

// close flushes queued messages and waits for the writer. No push may follow.
func (o *outbox) close() {
	close(o.send)
	<-o.done
}

// handle applies one inbound message and returns the direct reply, if any. Successful
// transitions reach the client through the subscription instead.
func (h *WSHandler) handle(ctx context.Context, owner, attemptID string, identity *domain.Identity, inbound inboundMessage) (outboundMessage[any], bool) {
	switch inbound.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Option == nil {
			return errorMessage("invalid select payload"), true
		}
		if _, err := h.attempts.Select(ctx, owner, attemptID, *payload.Option); err != nil {
			return errorMessage(err.Error()), true
		}
	case "confirm":
		if _, err := h.attempts.Confirm(ctx, owner, attemptID); err != nil {
			return errorMessage(err.Error()), true
		}
	case "retake":
		if _, err := h.attempts.Retake(ctx, owner, attemptID); err != nil {
			return errorMessage(err.Error()), true
		}
	case "save":
		var payload savePayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				return errorMessage("invalid save payload"), true
			}
		}
		entries, err := h.attempts.Save(ctx, owner, attemptID, payload.Name, identity)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "saved", Payload: entries}, true
	default:
		return errorMessage("unsupported message type"), true
	}
	return outboundMessage[any]{}, false
}
