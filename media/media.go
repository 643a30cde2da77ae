package media

import (
	"context"
	stderrors "errors"
)

// ErrClosed is returned when sending on a connection that has been closed.
var ErrClosed = stderrors.New("media: connection closed")

// Input is one inbound participant utterance: text, or audio to transcribe.
type Input struct {
	Text   string `json:"text,omitempty"`
	Audio  []byte `json:"-"`
	Format string `json:"format,omitempty"`
}

// IsText reports whether the input needs no transcription.
func (in Input) IsText() bool { return len(in.Audio) == 0 }

// Text builds a text input.
func Text(s string) Input { return Input{Text: s} }

// Output is the agent's response to one turn.
type Output struct {
	TurnID      string `json:"turn_id"`
	Text        string `json:"text"`
	Audio       []byte `json:"-"`
	Format      string `json:"format,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	// Filtered is set when the response is a plugin replacement rather than
	// a generated reply.
	Filtered bool `json:"filtered,omitempty"`
}

// Conn is one attached conversation. Next returns (zero, false, nil) once
// the participant has left. Send and Next may be called from different
// goroutines.
type Conn interface {
	Next(ctx context.Context) (Input, bool, error)
	Send(ctx context.Context, out Output) error
	Close() error
}

// Attacher connects a session to its room.
type Attacher interface {
	Attach(ctx context.Context, sessionID, room string) (Conn, error)
}

// AttacherFunc adapts a function to Attacher.
type AttacherFunc func(ctx context.Context, sessionID, room string) (Conn, error)

func (f AttacherFunc) Attach(ctx context.Context, sessionID, room string) (Conn, error) {
	return f(ctx, sessionID, room)
}

// Attached returns an Attacher handing out an already established
// connection, as with a websocket accepted by the HTTP server.
func Attached(c Conn) Attacher {
	return AttacherFunc(func(context.Context, string, string) (Conn, error) {
		return c, nil
	})
}
