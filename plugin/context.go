package plugin

import "maps"

// Well-known TurnContext keys.
const (
	KeySessionID      = "session_id"
	KeyRoom           = "room"
	KeyTurnID         = "turn_id"
	KeyUserID         = "user_id"
	KeyResponsePrefix = "response_prefix"
	KeyHistory        = "conversation_history"
	KeyFiltered       = "filtered"
	KeyFilterReason   = "filter_reason"
)

// TurnContext carries side information between the stages of one turn and
// back to the caller. It is created per turn and discarded afterwards.
type TurnContext map[string]any

// NewTurnContext creates a context seeded with the session identifiers.
func NewTurnContext(sessionID, room, turnID string) TurnContext {
	return TurnContext{
		KeySessionID: sessionID,
		KeyRoom:      room,
		KeyTurnID:    turnID,
	}
}

// String returns a string value, or "" when absent or not a string.
func (c TurnContext) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Bool returns a bool value, or false when absent.
func (c TurnContext) Bool(key string) bool {
	b, _ := c[key].(bool)
	return b
}

// Clone returns a shallow copy.
func (c TurnContext) Clone() TurnContext {
	return maps.Clone(c)
}
