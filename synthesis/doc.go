// Package synthesis defines the text-to-speech capability.
//
// Backends:
//
//   - synthesis/openai: OpenAI audio speech (tts-1)
//   - synthesis/elevenlabs: ElevenLabs text-to-speech
//   - synthesis/local: built-in fallback that returns the text as a text frame
package synthesis
