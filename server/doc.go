// Package server is the HTTP front end of the agent runtime: a gin engine
// mounted behind net/http middleware and served over HTTP/1.1 and h2c.
//
// Routes (see API.Register):
//
//   - GET /health, GET /info
//   - GET /token: LiveKit access token for a room and identity
//   - GET /metrics, /metrics/stream (SSE), /metrics/prometheus
//   - GET|POST /sessions, GET|DELETE /sessions/:id, POST /sessions/:id/turns
//   - GET /ws: a conversation over a websocket
//   - GET /providers, GET /plugins
//
// Middleware (server/middleware) wraps every request with panic recovery,
// request ids, CORS, body size limits and request logging. The token and
// session creation routes are also rate limited per client.
package server
