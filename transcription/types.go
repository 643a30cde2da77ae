package transcription

import (
	"unicode/utf8"

	"github.com/voixagent/voixagent/provider"
)

// Provider is a speech-to-text backend.
type Provider = provider.RequestResponse[Request, Result]

// Audio formats understood by the built-in providers.
const (
	FormatWAV  = "wav"
	FormatMP3  = "mp3"
	FormatPCM  = "pcm"
	FormatText = "text"
)

// Request holds one utterance to transcribe.
type Request struct {
	// Audio is the encoded utterance.
	Audio []byte `json:"-"`
	// Format is the container or encoding of Audio, such as "wav".
	Format string `json:"format,omitempty"`
	// Language is the expected language (e.g. "en"). Empty lets the backend detect it.
	Language string `json:"language,omitempty"`
	// Prompt biases recognition toward expected vocabulary.
	Prompt string `json:"prompt,omitempty"`
}

// IsText reports whether the request carries UTF-8 text rather than audio.
func (r Request) IsText() bool {
	return r.Format == FormatText && utf8.Valid(r.Audio)
}

// Result holds the transcript of one utterance.
type Result struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// ExtraKeys are the extra parameters transcription providers understand.
var ExtraKeys = []string{"language", "prompt"}
