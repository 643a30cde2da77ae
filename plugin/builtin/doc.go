// Package builtin provides the bundled conversation plugins:
//
//   - example: tags greetings
//   - sentiment_analysis: scores the message and sets tone hints
//   - content_filter (alias profanity_filter): rejects abusive or spam messages
//   - conversation_memory: keeps per-session history across turns
package builtin
