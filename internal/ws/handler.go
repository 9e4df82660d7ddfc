package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gemduel/gemduel-backend/internal/protocol"
	"github.com/gemduel/gemduel-backend/internal/room"
)

const outboxSize = 16

// Handler upgrades the connection and bridges it to the room registry:
// a writer goroutine drains the registry-owned outbox, the reader loop
// maps inbound JSON envelopes to registry messages.
func Handler(reg *room.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// the game client is served from a different origin in dev
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		out := make(chan protocol.ServerEvent, outboxSize)

		reg.Inbox() <- room.Connect{ConnID: connID, Outbox: out}
		defer func() { reg.Inbox() <- room.Disconnect{ConnID: connID} }()

		log.Info("client connected", zap.String("conn", connID))

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for evt := range out {
				payload, _ := json.Marshal(evt)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Info("client gone", zap.String("conn", connID), zap.Error(err))
				}
				return
			}

			var ce protocol.ClientEvent
			if err := json.Unmarshal(data, &ce); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			msg, ok := toRegistryMsg(connID, ce)
			if !ok {
				writeError(r.Context(), conn, "unknown event type")
				continue
			}
			reg.Inbox() <- msg
		}
	}
}

// toRegistryMsg maps the closed set of client event kinds onto registry
// messages. Unknown kinds are the caller's problem, not a crash.
func toRegistryMsg(connID string, ce protocol.ClientEvent) (room.Msg, bool) {
	switch ce.Type {
	case protocol.EvtCreateRoom:
		return room.CreateRoom{ConnID: connID, RoomID: ce.RoomID}, true
	case protocol.EvtJoinRoom:
		return room.JoinRoom{ConnID: connID, RoomID: ce.RoomID}, true
	case protocol.EvtScoreUpdate:
		return room.ScoreUpdate{ConnID: connID, RoomID: ce.RoomID, Score: ce.Score}, true
	case protocol.EvtSubmitScore:
		return room.SubmitScore{ConnID: connID, RoomID: ce.RoomID, Score: ce.Score}, true
	case protocol.EvtRequestRematch:
		return room.RequestRematch{ConnID: connID, RoomID: ce.RoomID}, true
	case protocol.EvtSetAddress:
		return room.SetAddress{ConnID: connID, Address: ce.Address}, true
	default:
		return nil, false
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(protocol.ServerEvent{Type: protocol.EvtError, Message: msg})
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}
