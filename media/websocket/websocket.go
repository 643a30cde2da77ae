// Package websocket carries a conversation over a websocket connection.
//
// Inbound text frames are JSON messages:
//
//	{"type":"input_text","text":"hello"}
//	{"type":"input_audio_format","format":"wav"}
//
// Binary frames are audio in the last announced format (wav by default).
// Each response is written as a binary audio frame, when synthesis produced
// audio, followed by a JSON "response" frame.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/media"
)

// Message types.
const (
	TypeInputText        = "input_text"
	TypeInputAudioFormat = "input_audio_format"
	TypeResponse         = "response"
	TypeSession          = "session"
	TypeError            = "error"
)

const (
	defaultAudioFormat = "wav"
	writeWait          = 10 * time.Second
)

// ClientMessage is an inbound JSON frame.
type ClientMessage struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Format string `json:"format,omitempty"`
}

// ServerMessage is an outbound JSON frame.
type ServerMessage struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id,omitempty"`
	TurnID      string `json:"turn_id,omitempty"`
	Text        string `json:"text,omitempty"`
	Format      string `json:"format,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Filtered    bool   `json:"filtered,omitempty"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Upgrader accepts conversation connections.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Conn adapts a websocket to media.Conn.
type Conn struct {
	ws  *websocket.Conn
	log *logger.Logger

	writeMu sync.Mutex
	format  string
	once    sync.Once
}

// Upgrade upgrades an HTTP request to a conversation connection.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return NewConn(ws), nil
}

// NewConn wraps an established websocket.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws, log: logger.Get("websocket"), format: defaultAudioFormat}
}

// Next implements media.Conn. A close frame or a closed socket ends the
// conversation.
func (c *Conn) Next(ctx context.Context) (media.Input, bool, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return media.Input{}, false, ctx.Err()
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("websocket read ended", logger.ErrorFields("read", err))
			}
			return media.Input{}, false, nil
		}

		switch kind {
		case websocket.BinaryMessage:
			return media.Input{Audio: data, Format: c.format}, true, nil
		case websocket.TextMessage:
			var msg ClientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				c.SendError("parse_error", "invalid JSON")
				continue
			}
			switch msg.Type {
			case TypeInputText:
				if msg.Text == "" {
					c.SendError("invalid_input", "text is required")
					continue
				}
				return media.Text(msg.Text), true, nil
			case TypeInputAudioFormat:
				if msg.Format != "" {
					c.format = msg.Format
				}
			default:
				c.SendError("unknown_message", "unknown type: "+msg.Type)
			}
		}
	}
}

// Send implements media.Conn.
func (c *Conn) Send(ctx context.Context, out media.Output) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.ws.SetWriteDeadline(deadline)

	if len(out.Audio) > 0 {
		if err := c.ws.WriteMessage(websocket.BinaryMessage, out.Audio); err != nil {
			return err
		}
	}
	return c.ws.WriteJSON(ServerMessage{
		Type:        TypeResponse,
		TurnID:      out.TurnID,
		Text:        out.Text,
		Format:      out.Format,
		ContentType: out.ContentType,
		Filtered:    out.Filtered,
	})
}

// SendSession announces the session id to the client.
func (c *Conn) SendSession(sessionID string) error {
	return c.write(ServerMessage{Type: TypeSession, SessionID: sessionID})
}

// SendError writes an error frame. Write failures are logged.
func (c *Conn) SendError(code, message string) {
	if err := c.write(ServerMessage{Type: TypeError, Code: code, Message: message}); err != nil {
		c.log.Debug("websocket error frame not sent", logger.ErrorFields("send_error", err))
	}
}

func (c *Conn) write(msg ServerMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(msg)
}

// Close sends a normal close frame and closes the socket.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
