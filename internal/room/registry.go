package room

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/gemduel/gemduel-backend/internal/history"
	"github.com/gemduel/gemduel-backend/internal/protocol"
)

type Msg interface{ isRegistryMsg() }

// Connect registers a connection and the outbox its server events are
// delivered on.
type Connect struct {
	ConnID string
	Outbox chan protocol.ServerEvent
}

// Disconnect tears down every room the connection participates in and
// notifies the surviving peer. This is the only room-deletion path.
type Disconnect struct{ ConnID string }

// SetAddress tags a participant with an opaque wallet address for the
// downstream payout pipeline. The registry only validates the prefix.
type SetAddress struct{ ConnID, Address string }

type CreateRoom struct{ ConnID, RoomID string }

type JoinRoom struct{ ConnID, RoomID string }

// ScoreUpdate is the live, best-effort relay to the peer. It never
// completes a round.
type ScoreUpdate struct {
	ConnID string
	RoomID string
	Score  int
}

// SubmitScore records a final score; once both participants have one the
// round result is emitted exactly once and the score map cleared.
type SubmitScore struct {
	ConnID string
	RoomID string
	Score  int
}

type RequestRematch struct{ ConnID, RoomID string }

// GetRoom reflects a room's state without data races; used by tests and
// the room-code collision check.
type GetRoom struct {
	RoomID string
	Reply  chan RoomView
}

type Shutdown struct{}

func (Connect) isRegistryMsg()        {}
func (Disconnect) isRegistryMsg()     {}
func (SetAddress) isRegistryMsg()     {}
func (CreateRoom) isRegistryMsg()     {}
func (JoinRoom) isRegistryMsg()       {}
func (ScoreUpdate) isRegistryMsg()    {}
func (SubmitScore) isRegistryMsg()    {}
func (RequestRematch) isRegistryMsg() {}
func (GetRoom) isRegistryMsg()        {}
func (Shutdown) isRegistryMsg()       {}

type RoomView struct {
	Exists       bool
	Players      []string
	FinalScores  int
	RematchVotes int
}

type client struct {
	outbox  chan protocol.ServerEvent
	address string
}

// Registry owns the room table. A single goroutine drains the inbox, so
// every inbound event is applied atomically with respect to registry
// state; concurrency exists only across connections feeding the inbox.
type Registry struct {
	inbox   chan Msg
	rooms   map[string]*Room
	clients map[string]*client
	log     *zap.Logger
	hist    *history.Store
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewRegistry(parent context.Context, log *zap.Logger, hist *history.Store) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		inbox:   make(chan Msg, 64),
		rooms:   make(map[string]*Room),
		clients: make(map[string]*client),
		log:     log,
		hist:    hist,
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.loop()
	return r
}

func (r *Registry) Inbox() chan<- Msg { return r.inbox }

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return
		case m := <-r.inbox:
			switch msg := m.(type) {
			case Connect:
				r.clients[msg.ConnID] = &client{outbox: msg.Outbox}
			case Disconnect:
				r.handleDisconnect(msg.ConnID)
			case SetAddress:
				r.handleSetAddress(msg)
			case CreateRoom:
				r.handleCreate(msg)
			case JoinRoom:
				r.handleJoin(msg)
			case ScoreUpdate:
				r.handleScoreUpdate(msg)
			case SubmitScore:
				r.handleSubmit(msg)
			case RequestRematch:
				r.handleRematch(msg)
			case GetRoom:
				msg.Reply <- r.view(msg.RoomID)
			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Registry) shutdown() {
	for id, c := range r.clients {
		close(c.outbox)
		delete(r.clients, id)
	}
	clear(r.rooms)
	r.cancel()
}

func (r *Registry) view(roomID string) RoomView {
	rm := r.rooms[roomID]
	if rm == nil {
		return RoomView{}
	}
	return RoomView{
		Exists:       true,
		Players:      append([]string(nil), rm.Players...),
		FinalScores:  len(rm.FinalScores),
		RematchVotes: len(rm.Rematch),
	}
}

// send delivers one event to one connection, best-effort. A full outbox
// drops the event rather than blocking the registry loop.
func (r *Registry) send(connID string, evt protocol.ServerEvent) {
	c := r.clients[connID]
	if c == nil {
		return
	}
	select {
	case c.outbox <- evt:
	default:
		r.log.Warn("outbox full, dropping event",
			zap.String("conn", connID), zap.String("event", string(evt.Type)))
	}
}

func (r *Registry) sendError(connID string, err error) {
	r.send(connID, protocol.ServerEvent{Type: protocol.EvtError, Message: wireMessage(err)})
}

func (r *Registry) handleSetAddress(msg SetAddress) {
	if !strings.HasPrefix(msg.Address, "0x") {
		r.sendError(msg.ConnID, ErrInvalidAddress)
		return
	}
	if c := r.clients[msg.ConnID]; c != nil {
		c.address = msg.Address
	}
}

func (r *Registry) handleCreate(msg CreateRoom) {
	if _, live := r.rooms[msg.RoomID]; live {
		r.sendError(msg.ConnID, ErrDuplicateRoom)
		return
	}
	r.rooms[msg.RoomID] = newRoom(msg.RoomID, msg.ConnID)
	r.log.Info("room created", zap.String("room", msg.RoomID), zap.String("conn", msg.ConnID))
	r.send(msg.ConnID, protocol.ServerEvent{Type: protocol.EvtRoomCreated, RoomID: msg.RoomID})
}

func (r *Registry) handleJoin(msg JoinRoom) {
	rm := r.rooms[msg.RoomID]
	if rm == nil {
		r.sendError(msg.ConnID, ErrRoomNotFound)
		return
	}
	if rm.full() {
		r.sendError(msg.ConnID, ErrRoomFull)
		return
	}
	rm.Players = append(rm.Players, msg.ConnID)
	r.send(msg.ConnID, protocol.ServerEvent{Type: protocol.EvtRoomJoined, RoomID: msg.RoomID})

	// the second join is the sole trigger for a round
	if rm.full() {
		r.log.Info("room active", zap.String("room", rm.ID))
		r.broadcast(rm, protocol.ServerEvent{Type: protocol.EvtGameStart})
	}
}

func (r *Registry) handleScoreUpdate(msg ScoreUpdate) {
	rm := r.rooms[msg.RoomID]
	if rm == nil {
		r.sendError(msg.ConnID, ErrRoomNotFound)
		return
	}
	rm.LiveScores[msg.ConnID] = msg.Score
	if peer, ok := rm.other(msg.ConnID); ok {
		r.send(peer, protocol.ServerEvent{
			Type:  protocol.EvtOpponentScoreUpdate,
			Score: protocol.Int(msg.Score),
		})
	}
}

func (r *Registry) handleSubmit(msg SubmitScore) {
	rm := r.rooms[msg.RoomID]
	if rm == nil {
		r.sendError(msg.ConnID, ErrRoomNotFound)
		return
	}
	// last write wins: only the post-timer final should ever arrive
	rm.FinalScores[msg.ConnID] = msg.Score

	if !rm.full() || len(rm.FinalScores) < 2 {
		return
	}

	p1, p2 := rm.Players[0], rm.Players[1]
	s1, s2 := rm.FinalScores[p1], rm.FinalScores[p2]

	r.send(p1, resultEvent(s1, s2))
	r.send(p2, resultEvent(s2, s1))
	r.log.Info("round result",
		zap.String("room", rm.ID), zap.Int("score1", s1), zap.Int("score2", s2))

	r.recordResult(rm, p1, p2, s1, s2)

	// idempotent reset for the next round
	rm.FinalScores = map[string]int{}
}

func resultEvent(mine, theirs int) protocol.ServerEvent {
	outcome := protocol.OutcomeDraw
	switch {
	case mine > theirs:
		outcome = protocol.OutcomeWin
	case mine < theirs:
		outcome = protocol.OutcomeLose
	}
	return protocol.ServerEvent{
		Type:          protocol.EvtGameResult,
		YourScore:     protocol.Int(mine),
		OpponentScore: protocol.Int(theirs),
		Result:        outcome,
	}
}

func (r *Registry) recordResult(rm *Room, p1, p2 string, s1, s2 int) {
	if r.hist == nil {
		return
	}
	res := history.MatchResult{RoomID: rm.ID, Draw: s1 == s2}
	switch {
	case s1 > s2:
		res.WinnerConnID, res.WinnerScore, res.LoserScore = p1, s1, s2
		res.WinnerAddress = r.addressOf(p1)
	case s2 > s1:
		res.WinnerConnID, res.WinnerScore, res.LoserScore = p2, s2, s1
		res.WinnerAddress = r.addressOf(p2)
	default:
		res.WinnerScore, res.LoserScore = s1, s2
	}
	// off the hot path; a failed insert never reaches the players
	go func() {
		if err := r.hist.Record(r.ctx, res); err != nil {
			r.log.Error("recording match result", zap.Error(err))
		}
	}()
}

func (r *Registry) addressOf(connID string) string {
	if c := r.clients[connID]; c != nil {
		return c.address
	}
	return ""
}

func (r *Registry) handleRematch(msg RequestRematch) {
	rm := r.rooms[msg.RoomID]
	if rm == nil {
		r.sendError(msg.ConnID, ErrRoomNotFound)
		return
	}
	if _, voted := rm.Rematch[msg.ConnID]; !voted {
		rm.Rematch[msg.ConnID] = struct{}{}
		if peer, ok := rm.other(msg.ConnID); ok {
			r.send(peer, protocol.ServerEvent{Type: protocol.EvtRematchRequested})
		}
	}
	if rm.full() && len(rm.Rematch) == 2 {
		rm.resetRound()
		r.log.Info("rematch starting", zap.String("room", rm.ID))
		r.broadcast(rm, protocol.ServerEvent{Type: protocol.EvtGameStart})
	}
}

func (r *Registry) handleDisconnect(connID string) {
	if c := r.clients[connID]; c != nil {
		close(c.outbox) // tell the writer no more events
	}
	delete(r.clients, connID)
	for id, rm := range r.rooms {
		if !rm.has(connID) {
			continue
		}
		if peer, ok := rm.other(connID); ok {
			r.send(peer, protocol.ServerEvent{Type: protocol.EvtOpponentDisconnected})
		}
		delete(r.rooms, id)
		r.log.Info("room removed", zap.String("room", id), zap.String("conn", connID))
	}
}

func (r *Registry) broadcast(rm *Room, evt protocol.ServerEvent) {
	for _, p := range rm.Players {
		r.send(p, evt)
	}
}
