package config

import "sync/atomic"

// Source yields the effective agent configuration for a new session.
type Source interface {
	Current() AgentConfig
}

// Static is a Source that never changes.
type Static AgentConfig

// Current returns the fixed configuration.
func (s Static) Current() AgentConfig { return AgentConfig(s).Merge(AgentConfig{}) }

// Layered composes the built-in layer, the environment layer and the persisted
// document. The document layer is swapped atomically on reload, so sessions
// created afterwards see the new document and running ones are unaffected.
type Layered struct {
	base AgentConfig
	doc  atomic.Pointer[AgentConfig]
}

// NewLayered creates a Layered source over Builtin and env.
func NewLayered(env AgentConfig) *Layered {
	l := &Layered{base: Builtin().Merge(env)}
	l.doc.Store(&AgentConfig{})
	return l
}

// Base returns the built-in and environment layers composed.
func (l *Layered) Base() AgentConfig { return l.base.Merge(AgentConfig{}) }

// SetDocument replaces the document layer.
func (l *Layered) SetDocument(doc AgentConfig) {
	d := doc
	l.doc.Store(&d)
}

// Document returns the current document layer.
func (l *Layered) Document() AgentConfig { return *l.doc.Load() }

// Current returns base overlaid with the document.
func (l *Layered) Current() AgentConfig {
	return l.base.Merge(*l.doc.Load())
}
