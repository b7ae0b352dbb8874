package ws

import "encoding/json"

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "join_room"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// Server push events.
const (
	evtUserList       = "update_user_list"
	evtOpponentJoined = "opponent_joined"
	evtOpponentLeft   = "opponent_left"
	evtMove           = "move"
	evtMatchFound     = "random_match_found"
	evtMatchFailed    = "random_match_failed"
)

// ──────────────────────────── Request / Response DTOs ─────────────────────────

// JoinRoomRequest is the body for "create_room" and "join_room".
type JoinRoomRequest struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password,omitempty"`
}

// MoveRequest is the body for "move".
type MoveRequest struct {
	RoomID string `json:"roomId"`
	Fen    string `json:"fen"`
}

type JoinRoomAck struct {
	OK    bool   `json:"ok"`
	Color string `json:"color"`
	Fen   string `json:"fen"`
}

type MoveAck struct {
	OK bool `json:"ok"`
}

// Empty ACK body (useful for many handlers).
type AckBody struct{}

// ErrorBody is returned for failures.
type ErrorBody struct {
	Error string `json:"error"`
}

// ──────────────────────────── Push bodies ─────────────────────────────────────

type OpponentJoinedBody struct {
	Username string `json:"username"`
}

type MoveBody struct {
	Fen string `json:"fen"`
}

type MatchFoundBody struct {
	RoomID string `json:"roomId"`
	Color  string `json:"color"`
	Fen    string `json:"fen"`
}
