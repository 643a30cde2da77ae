package synthesis

import "github.com/voixagent/voixagent/provider"

// Provider is a speech synthesis backend.
type Provider = provider.RequestResponse[Request, Audio]

// Output formats.
const (
	FormatMP3  = "mp3"
	FormatWAV  = "wav"
	FormatPCM  = "pcm"
	FormatText = "text"
)

// Request holds the text to speak.
type Request struct {
	Text string `json:"text"`
	// Voice overrides the provider's configured voice.
	Voice string `json:"voice,omitempty"`
	// Format overrides the provider's configured output format.
	Format string `json:"format,omitempty"`
}

// Audio is synthesized speech.
type Audio struct {
	Data        []byte `json:"-"`
	Format      string `json:"format"`
	ContentType string `json:"content_type"`
	// Text is the spoken text, kept for transcripts and text-only clients.
	Text string `json:"text"`
}

// ExtraKeys are the extra parameters synthesis providers understand.
var ExtraKeys = []string{"speed", "format", "stability", "similarity_boost"}

// ContentType returns the MIME type for a format.
func ContentType(format string) string {
	switch format {
	case FormatMP3:
		return "audio/mpeg"
	case FormatWAV:
		return "audio/wav"
	case FormatPCM:
		return "audio/pcm"
	case FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
