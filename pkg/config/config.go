// pkg/config/config.go
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

// Manager handles loading and accessing application configuration.
type Manager struct {
	mu            sync.RWMutex
	koanfInstance *koanf.Koanf
	currentConfig Config
	sources       []ConfigSource
}

// NewManager creates a Manager holding the default configuration.
func NewManager() *Manager {
	return &Manager{
		koanfInstance: koanf.New("."),
		currentConfig: DefaultConfig(),
	}
}

// DefaultConfig returns a new Config struct populated with hardcoded default values.
// These serve as the baseline configuration if no other sources override them.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: DefaultServerConfig(),
		Jobs:   DefaultJobsConfig(),
		Health: DefaultHealthConfig(),
	}
}

// Load loads configuration from defaults, the optional file at
// customConfigFilePath, TEXTSTREAM_* environment variables and flags.
func (m *Manager) Load(flags *pflag.FlagSet, customConfigFilePath string) error {
	debug := false
	if flags != nil {
		if f := flags.Lookup("debug"); f != nil && f.Value.String() == "true" {
			debug = true
		}
	}
	return m.LoadWithSources(DefaultSources(customConfigFilePath, flags, debug))
}

// LoadWithSources loads sources in priority order into a fresh koanf
// instance, validates the result and makes it current. On error the
// previously loaded configuration is kept.
func (m *Manager) LoadWithSources(sources []ConfigSource) error {
	ordered := make([]ConfigSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	k := koanf.New(".")
	for _, src := range ordered {
		if err := src.Load(k); err != nil {
			return fmt.Errorf("config source %s: %w", src.Name(), err)
		}
	}

	var newCfg Config
	if err := k.UnmarshalWithConf("", &newCfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("error unmarshaling final config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	m.mu.Lock()
	m.koanfInstance = k
	m.currentConfig = newCfg
	m.sources = ordered
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := m.currentConfig
	cfg.Server.AllowedOrigins = append([]string(nil), m.currentConfig.Server.AllowedOrigins...)
	return cfg
}

// String returns the raw value stored under key, or "" when unset.
func (m *Manager) String(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.koanfInstance.String(key)
}

// Watch reloads the configuration whenever the file at path changes and
// hands every successfully loaded result to fn. It blocks until ctx is done.
//
// The parent directory is watched so that editors replacing the file via
// rename are seen. Reload errors are logged and the old config is kept.
func (m *Manager) Watch(ctx context.Context, path string, fn func(Config)) error {
	if path == "" {
		return fmt.Errorf("watch: no config file")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	logger := log.With().Str("component", "config").Str("file", abs).Logger()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := m.Reload(); err != nil {
				logger.Warn().Err(err).Msg("Config reload failed, keeping previous configuration")
				continue
			}
			logger.Info().Msg("Configuration reloaded")
			if fn != nil {
				fn(m.Get())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("Config watcher error")
		}
	}
}

// Path returns the config file read by the last successful load, or "" when
// no file was used.
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, src := range m.sources {
		if fs, ok := src.(*FileSource); ok {
			return fs.Path
		}
	}
	return ""
}

// Reload re-reads the sources used by the last successful load.
func (m *Manager) Reload() error {
	m.mu.RLock()
	sources := m.sources
	m.mu.RUnlock()
	if len(sources) == 0 {
		return fmt.Errorf("configuration was never loaded")
	}
	return m.LoadWithSources(sources)
}

// DefaultConfigAsMap converts the DefaultConfig struct to a map[string]any
// for koanf's confmap.Provider. Every known key must be listed here so that
// env variables and flags can be matched against it.
func DefaultConfigAsMap() map[string]any {
	def := DefaultConfig()
	return map[string]any{
		"log.level":  def.Log.Level,
		"log.format": def.Log.Format,
		"log.file":   def.Log.File,

		"server.addr":                           def.Server.Addr,
		"server.port":                           def.Server.Port,
		"server.read_timeout":                   def.Server.ReadTimeout,
		"server.write_timeout":                  def.Server.WriteTimeout,
		"server.handler_timeout":                def.Server.HandlerTimeout,
		"server.shutdown_timeout":               def.Server.ShutdownTimeout,
		"server.allowed_origins":                def.Server.AllowedOrigins,
		"server.rate_limit.requests_per_second": def.Server.RateLimit.RequestsPerSecond,
		"server.rate_limit.burst":               def.Server.RateLimit.Burst,

		"jobs.max_queue_size": def.Jobs.MaxQueueSize,
		"jobs.min_delay_ms":   def.Jobs.MinDelayMilliseconds,
		"jobs.max_delay_ms":   def.Jobs.MaxDelayMilliseconds,
		"jobs.max_parallel":   def.Jobs.MaxParallelOperations,

		"health.unhealthy_queue_depth": def.Health.UnhealthyQueueDepth,
	}
}

// BindFlags defines global command-line flags that affect configuration.
// The --config flag itself lives on the root command.
func BindFlags(flags *pflag.FlagSet) {
	flags.Bool("debug", false, "Enable debug logging")
}
