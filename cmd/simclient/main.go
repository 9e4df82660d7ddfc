// simclient is a headless player: it speaks the real wire protocol and
// drives the match engine with random swaps. Useful for demoing a full
// two-player round against a second instance (or a human).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"math/rand"
	"os"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/gemduel/gemduel-backend/internal/engine"
	"github.com/gemduel/gemduel-backend/internal/protocol"
)

func main() {
	var (
		server  = flag.String("server", "ws://localhost:8080/ws", "server websocket URL")
		roomID  = flag.String("room", "SIM123", "room id to create or join")
		create  = flag.Bool("create", false, "create the room instead of joining")
		rematch = flag.Int("rematch", 0, "number of rematches to request after a result")
		address = flag.String("address", "", "optional 0x wallet address tag")
	)
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	conn, _, err := websocket.Dial(ctx, *server, nil)
	if err != nil {
		log.Fatal("dialing server", zap.Error(err))
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	send := func(evt protocol.ClientEvent) {
		payload, _ := json.Marshal(evt)
		wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := conn.Write(wctx, websocket.MessageText, payload); err != nil {
			log.Fatal("write failed", zap.Error(err))
		}
	}

	if *address != "" {
		send(protocol.ClientEvent{Type: protocol.EvtSetAddress, Address: *address})
	}
	if *create {
		send(protocol.ClientEvent{Type: protocol.EvtCreateRoom, RoomID: *roomID})
	} else {
		send(protocol.ClientEvent{Type: protocol.EvtJoinRoom, RoomID: *roomID})
	}

	var sess *engine.Session
	rematchesLeft := *rematch

	hooks := engine.Hooks{
		OnScore: func(score int) {
			send(protocol.ClientEvent{Type: protocol.EvtScoreUpdate, RoomID: *roomID, Score: score})
		},
		OnEnd: func(final int) {
			log.Info("round over", zap.Int("final", final))
			send(protocol.ClientEvent{Type: protocol.EvtSubmitScore, RoomID: *roomID, Score: final})
		},
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Info("connection closed", zap.Error(err))
			return
		}
		var evt protocol.ServerEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			continue
		}

		switch evt.Type {
		case protocol.EvtRoomCreated, protocol.EvtRoomJoined:
			log.Info("in room", zap.String("room", evt.RoomID))

		case protocol.EvtGameStart:
			if sess == nil {
				sess = engine.New(engine.DefaultConfig(), engine.NoopAnimator{}, hooks, log)
				sess.Start(ctx)
				go play(ctx, sess)
			} else {
				sess.Restart()
				go play(ctx, sess)
			}

		case protocol.EvtOpponentScoreUpdate:
			if evt.Score != nil {
				log.Info("opponent score", zap.Int("score", *evt.Score))
			}

		case protocol.EvtGameResult:
			log.Info("result",
				zap.Int("yours", deref(evt.YourScore)),
				zap.Int("opponent", deref(evt.OpponentScore)),
				zap.String("outcome", string(evt.Result)))
			if rematchesLeft > 0 {
				rematchesLeft--
				send(protocol.ClientEvent{Type: protocol.EvtRequestRematch, RoomID: *roomID})
			} else {
				sess.Stop()
				return
			}

		case protocol.EvtRematchRequested:
			log.Info("opponent wants a rematch")
			send(protocol.ClientEvent{Type: protocol.EvtRequestRematch, RoomID: *roomID})

		case protocol.EvtOpponentDisconnected:
			log.Info("opponent disconnected")
			sess.Stop()
			return

		case protocol.EvtError:
			log.Error("server error", zap.String("message", evt.Message))
			os.Exit(1)
		}
	}
}

// play taps random adjacent pairs until the round ends. Plenty of the
// swaps revert; enough of them match to produce a believable score.
func play(ctx context.Context, sess *engine.Session) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	b := sess.Board()
	for sess.State() != engine.StateEnded {
		row, col := rng.Intn(b.Rows()), rng.Intn(b.Cols())
		sess.Tap(ctx, row, col)
		if rng.Intn(2) == 0 {
			sess.Tap(ctx, row, col+1)
		} else {
			sess.Tap(ctx, row+1, col)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
