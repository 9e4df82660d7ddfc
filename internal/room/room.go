package room

import "errors"

var (
	ErrDuplicateRoom  = errors.New("room id already exists")
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrInvalidAddress = errors.New("invalid address format")
)

// wireMessage maps a protocol error to the message shown to the
// offending caller. The strings are part of the client contract.
func wireMessage(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateRoom):
		return "Room ID already exists"
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, ErrRoomFull):
		return "Room is full"
	case errors.Is(err, ErrInvalidAddress):
		return "Invalid address format"
	}
	return err.Error()
}

// Room pairs up to two connections sharing one round. Lives entirely in
// memory; deleted when either participant disconnects.
type Room struct {
	ID string
	// ordered: Players[0] is the creator
	Players []string
	// last live score relayed per participant, display-only
	LiveScores map[string]int
	// final scores for the current round; last write wins, cleared
	// after every emitted result
	FinalScores map[string]int
	// rematch votes for the current solicitation
	Rematch map[string]struct{}
}

func newRoom(id, creator string) *Room {
	return &Room{
		ID:          id,
		Players:     []string{creator},
		LiveScores:  map[string]int{},
		FinalScores: map[string]int{},
		Rematch:     map[string]struct{}{},
	}
}

func (r *Room) full() bool { return len(r.Players) == 2 }

func (r *Room) has(connID string) bool {
	for _, p := range r.Players {
		if p == connID {
			return true
		}
	}
	return false
}

// other returns the peer of connID, if the room has one.
func (r *Room) other(connID string) (string, bool) {
	for _, p := range r.Players {
		if p != connID {
			return p, true
		}
	}
	return "", false
}

// resetRound clears per-round bookkeeping so the next round behaves like
// a fresh one.
func (r *Room) resetRound() {
	r.FinalScores = map[string]int{}
	r.LiveScores = map[string]int{}
	r.Rematch = map[string]struct{}{}
}
