// Package transcription defines the speech-to-text capability.
//
// Backends:
//
//   - transcription/openai: OpenAI audio transcriptions (whisper-1)
//   - transcription/local: built-in fallback that decodes text frames
package transcription
