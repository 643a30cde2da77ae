package llm

import "github.com/voixagent/voixagent/httpclient"

// Dialect maps universal generation types to and from one provider's HTTP
// format. Dialects live in sub-packages (llm/openai, llm/anthropic) and are
// handed to NewAdapter by their registration.
type Dialect interface {
	// Name returns the provider name, such as "openai".
	Name() string

	// DefaultBaseURL is used when the spec has no api_url.
	DefaultBaseURL() string

	// ChatPath returns the completion endpoint path.
	ChatPath() string

	// Auth returns the request authentication for an API key.
	Auth(apiKey string) httpclient.Auth

	// Headers returns extra headers sent with every request.
	Headers() map[string]string

	// BuildRequest maps a Request, with defaults applied, to the JSON body.
	BuildRequest(req Request) (any, error)

	// ParseResponse maps the provider's JSON body to a Response.
	ParseResponse(body []byte) (*Response, error)
}
