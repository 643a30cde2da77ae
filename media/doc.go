// Package media defines the boundary to the real-time media transport.
//
// A session asks an Attacher for a Conn when it starts. The Conn yields
// participant input one turn at a time (it is a pipeline.Iterator of Input)
// and accepts the agent's responses. Audio codecs and signaling stay on the
// transport side of this boundary.
//
// Loopback is an in-memory transport used by the chat command and tests;
// the websocket subpackage serves conversations over a websocket.
package media
