// Package llm defines the generation capability: the request and response
// types, the provider contract and a dialect-driven HTTP adapter.
//
// Each backend is a Dialect that maps Request to and from its wire format;
// the Adapter adds transport, auth and defaults:
//
//	reg := llm.NewRegistry()
//	_ = reg.Register(openai.Registration())
//	_ = reg.Register(anthropic.Registration())
//	_ = reg.Register(echo.Registration())
//
//	p, err := reg.Create(provider.Spec{Provider: "openai", Model: "gpt-4o-mini", APIKey: key})
//	resp, err := p.Execute(ctx, llm.Request{Messages: []llm.Message{llm.User("hello")}})
package llm
