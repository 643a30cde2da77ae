package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/voixagent/voixagent/logger"
)

// Factory builds a fresh plugin instance for one session.
type Factory func(cfg Config) (Plugin, error)

// Descriptor selects one plugin for a pipeline. Order in a descriptor list is
// the execution order.
type Descriptor struct {
	Name    string
	Enabled bool
	Config  Config
}

// Info describes a registered plugin.
type Info struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases,omitempty"`
}

type entry struct {
	info    Info
	factory Factory
}

// Registry maps plugin names to factories. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	aliases map[string]string
	log     *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		aliases: make(map[string]string),
		log:     logger.Get("plugins"),
	}
}

// Register adds a plugin factory under name.
func (r *Registry) Register(name, description string, factory Factory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("plugin registration requires a name and a factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("plugin %q already registered", name)
	}
	if _, ok := r.aliases[name]; ok {
		return fmt.Errorf("plugin %q already registered as an alias", name)
	}
	r.entries[name] = &entry{info: Info{Name: name, Description: description}, factory: factory}
	return nil
}

// Alias makes alias resolve to the registered plugin name.
func (r *Registry) Alias(alias, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("plugin %q is not registered", name)
	}
	if _, taken := r.entries[alias]; taken {
		return fmt.Errorf("plugin alias %q collides with a plugin name", alias)
	}
	r.aliases[alias] = name
	e.info.Aliases = append(e.info.Aliases, alias)
	sort.Strings(e.info.Aliases)
	return nil
}

// Canonical returns the registered name for name or one of its aliases.
func (r *Registry) Canonical(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.entries[name]; ok {
		return name, true
	}
	target, ok := r.aliases[name]
	return target, ok
}

// Has reports whether name or alias is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Canonical(name)
	return ok
}

// List returns registered plugins sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		info := e.info
		info.Aliases = append([]string(nil), e.info.Aliases...)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Create builds one plugin instance.
func (r *Registry) Create(name string, cfg Config) (Plugin, error) {
	canonical, ok := r.Canonical(name)
	if !ok {
		return nil, fmt.Errorf("unknown plugin %q", name)
	}
	r.mu.RLock()
	e := r.entries[canonical]
	r.mu.RUnlock()
	return e.factory(cfg)
}

// Build creates a Pipeline from descriptors, in order. Disabled entries are
// left out. Unknown names and failing factories are skipped with a warning
// and returned in skipped, so one bad entry never prevents a session from
// starting.
func (r *Registry) Build(descriptors []Descriptor, opts ...Option) (p *Pipeline, skipped []string) {
	var stages []Plugin
	seen := make(map[string]bool)
	for _, d := range descriptors {
		if !d.Enabled {
			continue
		}
		canonical, ok := r.Canonical(d.Name)
		if !ok {
			r.log.Warn("unknown plugin skipped", logger.Fields(logger.FieldPlugin, d.Name))
			skipped = append(skipped, d.Name)
			continue
		}
		if seen[canonical] {
			r.log.Warn("plugin enabled twice, keeping the first", logger.Fields(logger.FieldPlugin, d.Name))
			skipped = append(skipped, d.Name)
			continue
		}
		pl, err := r.Create(canonical, d.Config)
		if err != nil {
			r.log.Warn("plugin failed to initialize", logger.MergeWithError(logger.Fields(logger.FieldPlugin, d.Name), err))
			skipped = append(skipped, d.Name)
			continue
		}
		seen[canonical] = true
		stages = append(stages, pl)
	}
	return New(stages, opts...), skipped
}
