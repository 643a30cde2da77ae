package transcription

import "github.com/voixagent/voixagent/provider"

// NewRegistry creates an empty registry for transcription providers.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider](provider.Transcription)
}
