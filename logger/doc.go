// Package logger provides structured logging for the voice agent runtime
// using zerolog.
//
// Loggers are scoped per component and carry session, room and turn
// identifiers when derived from a context populated by ContextWithSession
// and ContextWithTurn.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("session")
//	log.Info("session active", logger.Fields(logger.FieldSessionID, id))
package logger
