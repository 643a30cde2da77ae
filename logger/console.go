package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

const (
	ansiReset   = "\033[0m"
	ansiBlue    = "\033[34m"
	ansiCyan    = "\033[36m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiRed     = "\033[31m"
	ansiMagenta = "\033[35m"
)

var levelStyles = map[string]struct{ tag, color string }{
	"trace": {"[TRC]", ""},
	"debug": {"[DBG]", ansiCyan},
	"info":  {"[INF]", ansiGreen},
	"warn":  {"[WRN]", ansiYellow},
	"error": {"[ERR]", ansiRed},
	"fatal": {"[FTL]", ansiMagenta},
}

func paint(s, color string, noColor bool) string {
	if noColor || color == "" {
		return s
	}
	return color + s + ansiReset
}

// consoleWriter renders "15:04:05 [VOI][INF] message key:value" lines. The
// service tag is the first three letters of the service name.
func consoleWriter(w io.Writer, serviceName string, noColor bool) zerolog.ConsoleWriter {
	svc := ""
	if len(serviceName) >= 3 {
		svc = paint("["+strings.ToUpper(serviceName[:3])+"]", ansiBlue, noColor)
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			lvl := fmt.Sprint(i)
			style, ok := levelStyles[lvl]
			if !ok {
				style.tag = "[" + strings.ToUpper(lvl) + "]"
			}
			return svc + paint(style.tag, style.color, noColor)
		},
		FormatFieldName: func(i interface{}) string { return fmt.Sprint(i) + ":" },
		FormatFieldValue: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprint(i)
		},
	}
}
