package llm

import (
	"context"
	"strings"
)

// Complete sends a system and user prompt and returns the text response. It
// accepts any Provider, including middleware-wrapped ones.
func Complete(ctx context.Context, p Provider, system, user string) (string, error) {
	resp, err := p.Execute(ctx, Request{
		SystemPrompt: system,
		Messages:     []Message{User(user)},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// BuildPrompt assembles a turn request: the instructions with an optional
// response prefix hint, the prior conversation, then the user message.
func BuildPrompt(instructions, responsePrefix string, history []Message, user string) Request {
	system := strings.TrimSpace(instructions)
	if responsePrefix != "" {
		hint := "Begin your reply with: " + responsePrefix
		if system == "" {
			system = hint
		} else {
			system += "\n\n" + hint
		}
	}
	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, User(user))
	return Request{SystemPrompt: system, Messages: msgs}
}
