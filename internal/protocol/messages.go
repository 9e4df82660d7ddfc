// Package protocol defines the closed set of events exchanged over a
// player's websocket connection. One JSON envelope per direction; the
// Type field selects the variant and unused fields stay omitted.
package protocol

type ClientEventType string

const (
	EvtCreateRoom     ClientEventType = "create_room"
	EvtJoinRoom       ClientEventType = "join_room"
	EvtScoreUpdate    ClientEventType = "score_update"
	EvtSubmitScore    ClientEventType = "submit_score"
	EvtRequestRematch ClientEventType = "request_rematch"
	EvtSetAddress     ClientEventType = "set_address"
)

type ClientEvent struct {
	Type    ClientEventType `json:"type"`
	RoomID  string          `json:"roomId,omitempty"`
	Score   int             `json:"score,omitempty"`
	Address string          `json:"address,omitempty"`
}

type ServerEventType string

const (
	EvtRoomCreated          ServerEventType = "room_created"
	EvtRoomJoined           ServerEventType = "room_joined"
	EvtGameStart            ServerEventType = "game_start"
	EvtOpponentScoreUpdate  ServerEventType = "opponent_score_update"
	EvtGameResult           ServerEventType = "game_result"
	EvtRematchRequested     ServerEventType = "rematch_requested"
	EvtOpponentDisconnected ServerEventType = "opponent_disconnected"
	EvtError                ServerEventType = "error"
)

type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeDraw Outcome = "draw"
)

// Numeric fields are pointers so a legitimate zero score still crosses
// the wire instead of being dropped by omitempty.
type ServerEvent struct {
	Type          ServerEventType `json:"type"`
	RoomID        string          `json:"roomId,omitempty"`
	Score         *int            `json:"score,omitempty"`
	YourScore     *int            `json:"yourScore,omitempty"`
	OpponentScore *int            `json:"opponentScore,omitempty"`
	Result        Outcome         `json:"result,omitempty"`
	Message       string          `json:"message,omitempty"`
}

// Int is a convenience for building pointer payload fields.
func Int(v int) *int { return &v }
