// Package config loads service configuration and manages the agent document.
//
// Service configuration is read with Viper from config.yml, then environment
// variables, then a .env file:
//
//	var cfg AppConfig
//	err := config.LoadConfig("voixagent", &cfg, config.WithConfigFile("config.yml"))
//
// The agent document selects providers and plugins. The effective document
// for a session is composed from layers, lowest first:
//
//	config.Builtin()          // built-in defaults
//	config.FromEnv(lookup)    // LLM_PROVIDER, TTS_VOICE_ID, ENABLED_PLUGINS, ...
//	store.Load()              // the persisted YAML or JSON document
//	per-session override      // POST /sessions {"config": {...}}
//
// A Watcher reloads the document into a Layered source on change, so CLI edits
// made by another process apply to sessions created afterwards.
package config
