package llm

import "github.com/voixagent/voixagent/provider"

// ExtraKeys are the extra parameters generation providers understand.
var ExtraKeys = []string{"top_p", "presence_penalty", "frequency_penalty"}

// NewRegistry creates an empty registry for generation providers.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider](provider.Generation)
}
