package logger

import "context"

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	roomKey
	turnIDKey
	requestIDKey
)

var contextFields = []struct {
	key   ctxKey
	field string
}{
	{requestIDKey, FieldRequestID},
	{sessionIDKey, FieldSessionID},
	{roomKey, FieldRoom},
	{turnIDKey, FieldTurnID},
}

// ContextWithSession records the session and room on ctx for WithContext.
func ContextWithSession(ctx context.Context, sessionID, room string) context.Context {
	return context.WithValue(context.WithValue(ctx, sessionIDKey, sessionID), roomKey, room)
}

// ContextWithTurn records the turn id on ctx.
func ContextWithTurn(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, turnIDKey, turnID)
}

// ContextWithRequestID records the HTTP request id on ctx.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithContext returns l tagged with whichever of request, session, room and
// turn ids ctx carries.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.zl.With()
	for _, cf := range contextFields {
		if v, ok := ctx.Value(cf.key).(string); ok && v != "" {
			zc = zc.Str(cf.field, v)
		}
	}
	return l.derive(zc)
}
