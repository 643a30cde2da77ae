package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/voixagent/voixagent/logger"
)

// FileSystem is the part of the OS the loader touches.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

type osFileSystem struct{}

func (osFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }

type loaderOptions struct {
	fs         FileSystem
	configFile string
	envFile    string
}

// LoaderOption customizes LoadConfig.
type LoaderOption func(*loaderOptions)

// WithFileSystem replaces the OS file system.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(o *loaderOptions) { o.fs = fs }
}

// WithConfigFile skips the search and reads path.
func WithConfigFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithEnvFile skips the search and loads path.
func WithEnvFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.envFile = path }
}

// LoadConfig fills cfg from config.yml, then the .env file, then the process
// environment. Every mapstructure key of cfg can be set from the environment
// by upper-casing its dotted path: server.port is SERVER_PORT. Missing files
// are not an error.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	o := loaderOptions{fs: osFileSystem{}}
	for _, opt := range opts {
		opt(&o)
	}
	configFile, envFile := o.configFile, o.envFile
	if configFile == "" {
		configFile = firstExisting(o.fs, configCandidates(serviceName))
	}
	if envFile == "" {
		envFile = firstExisting(o.fs, envCandidates(serviceName))
	}

	v := viper.New()
	if configFile != "" && o.fs.Exists(configFile) {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("failed to load config file", logger.Fields("file", configFile, logger.FieldError, err.Error()))
		}
	}
	// godotenv never overrides variables already set in the process.
	if envFile != "" && o.fs.Exists(envFile) {
		if err := o.fs.LoadEnv(envFile); err != nil {
			logger.Warn("failed to load .env file", logger.Fields("file", envFile, logger.FieldError, err.Error()))
		}
	}
	for _, key := range envKeys(reflect.TypeOf(cfg), "") {
		if err := v.BindEnv(key, envName(key)); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

func configCandidates(serviceName string) []string {
	return []string{
		filepath.Join("cmd", serviceName, "config.yml"),
		filepath.Join("config", "config.yml"),
		"config.yml",
		filepath.Join("..", "..", "cmd", serviceName, "config.yml"),
	}
}

func envCandidates(serviceName string) []string {
	return []string{
		".env." + serviceName,
		".env",
		filepath.Join("cmd", serviceName, ".env"),
		filepath.Join("..", "..", ".env"),
	}
}

func firstExisting(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

// envKeys lists the dotted mapstructure keys of every leaf field of t.
// Embedded structs tagged ",squash" share their parent's prefix.
func envKeys(t reflect.Type, prefix string) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && (opts == "squash" || (f.Anonymous && name == "")) {
			keys = append(keys, envKeys(ft, prefix)...)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if ft.Kind() == reflect.Struct {
			keys = append(keys, envKeys(ft, key)...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ReadDocument decodes a YAML or JSON file, chosen by extension, into out
// using the mapstructure tags of out.
func ReadDocument(path string, out any) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
