package plugin

import (
	"context"
	"strconv"
	"strings"
)

// Result is what a stage produces for a message.
type Result struct {
	Message string
	// Terminal marks a replacement that must reach the user as is, such as
	// a content rejection.
	Terminal bool
}

// Pass returns msg unchanged.
func Pass(msg string) Result { return Result{Message: msg} }

// Terminate returns a terminal replacement.
func Terminate(msg string) Result { return Result{Message: msg, Terminal: true} }

// Plugin is one transformation stage.
type Plugin interface {
	Name() string
	Process(ctx context.Context, message string, tc TurnContext) (Result, error)
}

// Func adapts a function to Plugin.
type Func struct {
	ID string
	Fn func(ctx context.Context, message string, tc TurnContext) (Result, error)
}

func (f Func) Name() string { return f.ID }

func (f Func) Process(ctx context.Context, message string, tc TurnContext) (Result, error) {
	return f.Fn(ctx, message, tc)
}

// Config is a plugin's configuration mapping, as decoded from YAML, JSON or
// command-line flags.
type Config map[string]any

// String returns a string value or def.
func (c Config) String(key, def string) string {
	if s, ok := c[key].(string); ok && s != "" {
		return s
	}
	return def
}

// Float returns a numeric value or def. Numeric strings are accepted.
func (c Config) Float(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// Int returns an integer value or def.
func (c Config) Int(key string, def int) int {
	if _, ok := c[key]; !ok {
		return def
	}
	return int(c.Float(key, float64(def)))
}

// Bool returns a boolean value or def. "true" and "false" strings are
// accepted.
func (c Config) Bool(key string, def bool) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(v) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	}
	return def
}

// Strings returns a list value. A comma-separated string is split.
func (c Config) Strings(key string) []string {
	switch v := c[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
