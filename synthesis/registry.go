package synthesis

import "github.com/voixagent/voixagent/provider"

// NewRegistry creates an empty registry for synthesis providers.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider](provider.Synthesis)
}
