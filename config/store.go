package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/util"
)

// Store persists the agent document. Writes replace the file atomically so a
// concurrently reloading watcher never reads a partial document.
type Store struct {
	path     string
	defaults AgentConfig
	mu       sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDefaults sets the layers a document without a plugin list inherits
// from. Plugin mutations on such a document start from these entries.
func WithDefaults(cfg AgentConfig) StoreOption {
	return func(s *Store) { s.defaults = cfg }
}

// NewStore creates a Store for the document at path. The extension selects
// the format: .json writes JSON, anything else YAML.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{path: path, defaults: Builtin()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the document path.
func (s *Store) Path() string { return s.path }

// Load reads the document. A missing file is an empty document.
func (s *Store) Load() (AgentConfig, error) {
	var cfg AgentConfig
	if _, err := os.Stat(s.path); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, errors.Configuration("cannot stat agent document").WithCause(err).WithDetail("path", s.path)
	}
	if err := ReadDocument(s.path, &cfg); err != nil {
		return AgentConfig{}, errors.Configuration("cannot read agent document").WithCause(err).WithDetail("path", s.path)
	}
	return cfg, nil
}

// Save writes the document atomically.
func (s *Store) Save(cfg AgentConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(cfg)
}

func (s *Store) save(cfg AgentConfig) error {
	// A written document always carries an explicit plugin list; an empty
	// list disables every plugin.
	s.seedPlugins(&cfg)
	data, err := s.encode(cfg)
	if err != nil {
		return errors.Internal(fmt.Errorf("encode agent document: %w", err))
	}
	// The document may hold literal API keys.
	if err := util.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return errors.Configuration("cannot write agent document").WithCause(err).WithDetail("path", s.path)
	}
	return nil
}

func (s *Store) encode(cfg AgentConfig) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(s.path), ".json") {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return yaml.Marshal(cfg)
}

// Update loads the document, applies fn and saves the result.
func (s *Store) Update(fn func(*AgentConfig) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(&cfg); err != nil {
		return err
	}
	return s.save(cfg)
}

// SetProvider overlays spec onto the document's entry for capability.
func (s *Store) SetProvider(capability provider.Capability, spec provider.Spec) error {
	if !capability.Valid() {
		return errors.InvalidInput("capability", string(capability))
	}
	return s.Update(func(cfg *AgentConfig) error {
		cfg.SetSpec(capability, cfg.Spec(capability).Merge(spec))
		return nil
	})
}

// EnablePlugin enables name, appending it when absent. Non-empty pluginCfg is
// merged into the entry's config.
func (s *Store) EnablePlugin(name string, pluginCfg map[string]any) error {
	return s.Update(func(cfg *AgentConfig) error {
		s.seedPlugins(cfg)
		for i := range cfg.Plugins {
			if cfg.Plugins[i].Name == name {
				cfg.Plugins[i].Enabled = true
				if len(pluginCfg) > 0 {
					if cfg.Plugins[i].Config == nil {
						cfg.Plugins[i].Config = make(map[string]any, len(pluginCfg))
					}
					maps.Copy(cfg.Plugins[i].Config, pluginCfg)
				}
				return nil
			}
		}
		cfg.Plugins = append(cfg.Plugins, PluginEntry{Name: name, Enabled: true, Config: maps.Clone(pluginCfg)})
		return nil
	})
}

// DisablePlugin keeps the entry and its config but turns it off.
func (s *Store) DisablePlugin(name string) error {
	return s.Update(func(cfg *AgentConfig) error {
		s.seedPlugins(cfg)
		for i := range cfg.Plugins {
			if cfg.Plugins[i].Name == name {
				cfg.Plugins[i].Enabled = false
				return nil
			}
		}
		return errors.NotFound("plugin", name)
	})
}

// RemovePlugin deletes the entry.
func (s *Store) RemovePlugin(name string) error {
	return s.Update(func(cfg *AgentConfig) error {
		s.seedPlugins(cfg)
		for i := range cfg.Plugins {
			if cfg.Plugins[i].Name == name {
				cfg.Plugins = append(cfg.Plugins[:i], cfg.Plugins[i+1:]...)
				return nil
			}
		}
		return errors.NotFound("plugin", name)
	})
}

func (s *Store) seedPlugins(cfg *AgentConfig) {
	if cfg.Plugins == nil {
		cfg.Plugins = clonePlugins(s.defaults.Plugins)
		if cfg.Plugins == nil {
			cfg.Plugins = []PluginEntry{}
		}
	}
}

// Template returns a starter document listing every provider and plugin
// setting with its default.
func Template() AgentConfig {
	cfg := Builtin()
	cfg.LLM.CredentialRef = "OPENAI_API_KEY"
	cfg.STT.CredentialRef = "OPENAI_API_KEY"
	cfg.TTS.CredentialRef = "OPENAI_API_KEY"
	cfg.Plugins = []PluginEntry{
		{Name: "example", Enabled: true},
		{Name: "sentiment_analysis", Enabled: false, Config: map[string]any{"threshold": 0.5}},
		{Name: "content_filter", Enabled: false, Config: map[string]any{"strict": false}},
		{Name: "conversation_memory", Enabled: false, Config: map[string]any{"memory_size": 10}},
	}
	return cfg
}
