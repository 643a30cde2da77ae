package builtin

import (
	"time"

	"github.com/voixagent/voixagent/plugin"
	"github.com/voixagent/voixagent/provider"
)

// Options carries shared resources for plugins that need them.
type Options struct {
	// Memory stores conversation history. Defaults to an in-process store
	// shared by every session built from the same registry.
	Memory provider.ContextStore[History]
	// Now is the clock used for history timestamps.
	Now func() time.Time
}

// Register adds every bundled plugin to reg.
func Register(reg *plugin.Registry, opts Options) error {
	if opts.Memory == nil {
		opts.Memory = provider.NewMemoryStore[History]()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := reg.Register(ExampleName, "Tags greetings to show the pipeline is active.",
		func(plugin.Config) (plugin.Plugin, error) { return Example{}, nil }); err != nil {
		return err
	}
	if err := reg.Register(SentimentName, "Keyword sentiment scoring with tone and urgency hints.",
		func(cfg plugin.Config) (plugin.Plugin, error) { return NewSentiment(cfg), nil }); err != nil {
		return err
	}
	if err := reg.Register(ContentFilterName, "Rejects abusive or spam messages and masks blocked words.",
		func(cfg plugin.Config) (plugin.Plugin, error) { return NewContentFilter(cfg) }); err != nil {
		return err
	}
	if err := reg.Alias(ProfanityFilterAlias, ContentFilterName); err != nil {
		return err
	}
	return reg.Register(MemoryName, "Keeps recent conversation history per session.",
		func(cfg plugin.Config) (plugin.Plugin, error) { return NewMemory(cfg, opts.Memory, opts.Now), nil })
}

// NewRegistry returns a registry with every bundled plugin.
func NewRegistry(opts Options) (*plugin.Registry, error) {
	reg := plugin.NewRegistry()
	if err := Register(reg, opts); err != nil {
		return nil, err
	}
	return reg, nil
}
