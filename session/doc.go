// Package session owns the conversations served by one process.
//
// The Registry is the only holder of the session id to Session mapping.
// CreateSession walks a session through its lifecycle:
//
//	Created -> Initializing -> Active -> Closing -> Terminated
//	                 \            \
//	                  +-> Failed   +-> Failed
//
// Initializing resolves one provider per capability, builds the session's
// plugin pipeline and attaches the media connection. While Active, turns
// run strictly one at a time: input is transcribed, passed through the
// plugins, answered by the language model and synthesized. Sessions in a
// terminal state keep their record for a retention window and are then
// purged.
package session
