package ws

import "puzzle-party/internal/game"

// Inbound frame types.
const (
	TypeCreate    = "create"
	TypeJoin      = "join"
	TypeReconnect = "reconnect"
	TypeLeave     = "leave"
	TypeStart     = "start"
	TypePick      = "pick"
	TypeSubmit    = "submit"
	TypeReset     = "reset"
)

// Transport level error codes. Game errors use game.ErrorCode.
const (
	codeBadRequest   = "bad_request"
	codeUnknownType  = "unknown_type"
	codeRateLimited  = "rate_limited"
	codeAlreadyBound = "already_in_room"
)

// ClientFrame is the union of every inbound frame. Fields not used by a type
// are ignored.
type ClientFrame struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	Variant   string         `json:"variant,omitempty"`
	Name      string         `json:"name,omitempty"`
	Code      string         `json:"code,omitempty"`
	PlayerID  string         `json:"player_id,omitempty"`
	Token     string         `json:"token,omitempty"`
	Settings  *game.Settings `json:"settings,omitempty"`
	Choice    string         `json:"choice,omitempty"`
	Answer    string         `json:"answer,omitempty"`
}

type ActionResult struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Action          string `json:"action"`
	Ok              bool   `json:"ok"`
	Error           string `json:"error,omitempty"`
	Detail          string `json:"detail,omitempty"`
	Data            any    `json:"data,omitempty"`
}

// EventFrame wraps a room or private event for the socket.
type EventFrame struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Event           string `json:"event"`
	EventID         string `json:"event_id,omitempty"`
	Room            string `json:"room"`
	ServerTS        int64  `json:"server_ts"`
	Data            any    `json:"data"`
}

type SubmitAck struct {
	Raw string `json:"raw"`
}
