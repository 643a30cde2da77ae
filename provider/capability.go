package provider

import (
	"strings"

	"github.com/voixagent/voixagent/errors"
)

// Capability names a category of external AI function.
type Capability string

const (
	Transcription Capability = "transcription"
	Generation    Capability = "generation"
	Synthesis     Capability = "synthesis"
)

// Capabilities lists every capability in turn order.
var Capabilities = []Capability{Transcription, Generation, Synthesis}

// ParseCapability accepts the canonical names and the stt, llm and tts
// configuration keys.
func ParseCapability(s string) (Capability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "transcription", "stt":
		return Transcription, nil
	case "generation", "llm":
		return Generation, nil
	case "synthesis", "tts":
		return Synthesis, nil
	}
	return "", errors.InvalidInput("capability", "must be one of stt, llm, tts (got: "+s+")")
}

// ConfigKey returns the short key used in agent documents and environment
// variables.
func (c Capability) ConfigKey() string {
	switch c {
	case Transcription:
		return "stt"
	case Generation:
		return "llm"
	case Synthesis:
		return "tts"
	}
	return string(c)
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	return c == Transcription || c == Generation || c == Synthesis
}

func (c Capability) String() string { return string(c) }
