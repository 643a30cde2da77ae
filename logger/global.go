package logger

import "sync"

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// Init replaces the process logger with one built from cfg.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	l := New(&cfg, cfg.ServiceName)
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// GetGlobalLogger returns the process logger, a console logger at info level
// until Init runs.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		cfg := Config{ServiceName: "voixagent"}
		cfg.ApplyDefaults()
		globalLogger = New(&cfg, cfg.ServiceName)
	}
	return globalLogger
}

// Get returns the process logger tagged with component=name. Packages call
// it for their default logger; the result reflects Init only if Init ran
// first.
func Get(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

// Info logs through the process logger.
func Info(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Info(msg, fields...)
}

// Warn logs through the process logger.
func Warn(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Warn(msg, fields...)
}
