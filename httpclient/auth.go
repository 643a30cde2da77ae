package httpclient

import "net/http"

// Auth puts credentials on an outgoing request.
type Auth interface {
	apply(h http.Header)
}

type bearerAuth string

func (t bearerAuth) apply(h http.Header) { h.Set("Authorization", "Bearer "+string(t)) }

type headerAuth struct{ name, key string }

func (a headerAuth) apply(h http.Header) { h.Set(a.name, a.key) }

// BearerAuth sends "Authorization: Bearer <token>" (OpenAI).
func BearerAuth(token string) Auth { return bearerAuth(token) }

// APIKeyAuthHeader sends the key in its own header, x-api-key for Anthropic
// and xi-api-key for ElevenLabs. An empty name means X-API-Key.
func APIKeyAuthHeader(key, name string) Auth {
	if name == "" {
		name = "X-API-Key"
	}
	return headerAuth{name: name, key: key}
}
