package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSource_Priority(t *testing.T) {
	src := &DefaultSource{}
	assert.Equal(t, 10, src.Priority())
	assert.Equal(t, "defaults", src.Name())
}

func TestDefaultSource_Load(t *testing.T) {
	k := koanf.New(".")
	src := &DefaultSource{}

	err := src.Load(k)
	require.NoError(t, err)

	assert.Equal(t, "info", k.String("log.level"))
	assert.Equal(t, "text", k.String("log.format"))
}

func TestFileSource_Priority(t *testing.T) {
	src := &FileSource{Path: "/tmp/test.yaml"}
	assert.Equal(t, 20, src.Priority())
	assert.Equal(t, "file:/tmp/test.yaml", src.Name())
}

func TestFileSource_Load_EmptyPath(t *testing.T) {
	k := koanf.New(".")
	src := &FileSource{Path: ""}

	err := src.Load(k)
	require.NoError(t, err, "Empty path should skip silently")
}

func TestFileSource_Load_NonExistentFile(t *testing.T) {
	k := koanf.New(".")
	src := &FileSource{Path: "/nonexistent/path/config.yaml"}

	err := src.Load(k)
	require.NoError(t, err, "Non-existent file should skip silently")
}

func TestFileSource_Load_ValidFile(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
log:
  level: warn
  format: json
server:
  port: 9999
`
	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	require.NoError(t, err)

	k := koanf.New(".")
	src := &FileSource{Path: configPath}

	err = src.Load(k)
	require.NoError(t, err)

	assert.Equal(t, "warn", k.String("log.level"))
	assert.Equal(t, "json", k.String("log.format"))
	assert.Equal(t, 9999, k.Int("server.port"))
}

func TestEnvSource_Priority(t *testing.T) {
	src := &EnvSource{}
	assert.Equal(t, 30, src.Priority())
	assert.Equal(t, "env", src.Name())
}

func TestEnvSource_Load(t *testing.T) {
	t.Setenv("TS_TEST_LOG_LEVEL", "error")
	t.Setenv("TS_TEST_SERVER_PORT", "8888")

	k := koanf.New(".")
	src := &EnvSource{Prefix: "TS_TEST_"}

	err := src.Load(k)
	require.NoError(t, err)

	assert.Equal(t, "error", k.String("log.level"))
	assert.Equal(t, 8888, k.Int("server.port"))
}

func TestEnvSource_Load_KeysWithUnderscores(t *testing.T) {
	t.Setenv("TEXTSTREAM_JOBS_MAX_QUEUE_SIZE", "25")
	t.Setenv("TEXTSTREAM_SERVER_RATE_LIMIT_REQUESTS_PER_SECOND", "0.5")
	t.Setenv("TEXTSTREAM_HEALTH_UNHEALTHY_QUEUE_DEPTH", "3")

	k := koanf.New(".")
	require.NoError(t, (&EnvSource{}).Load(k))

	assert.Equal(t, 25, k.Int("jobs.max_queue_size"))
	assert.Equal(t, 0.5, k.Float64("server.rate_limit.requests_per_second"))
	assert.Equal(t, 3, k.Int("health.unhealthy_queue_depth"))
	assert.False(t, k.Exists("jobs.max.queue.size"))
}

func TestEnvSource_Load_UnknownKeyFallsBackToDots(t *testing.T) {
	t.Setenv("TEXTSTREAM_EXTRA_SETTING", "x")

	k := koanf.New(".")
	require.NoError(t, (&EnvSource{}).Load(k))
	assert.Equal(t, "x", k.String("extra.setting"))
}

func TestEnvSource_Load_DefaultPrefix(t *testing.T) {
	t.Setenv("TEXTSTREAM_LOG_FORMAT", "json")

	k := koanf.New(".")
	src := &EnvSource{} // No prefix specified, should default to TEXTSTREAM_

	err := src.Load(k)
	require.NoError(t, err)

	assert.Equal(t, "json", k.String("log.format"))
}

func TestFlagSource_Priority(t *testing.T) {
	src := &FlagSource{}
	assert.Equal(t, 40, src.Priority())
	assert.Equal(t, "flags", src.Name())
}

func TestFlagSource_Load_NilFlags(t *testing.T) {
	k := koanf.New(".")
	src := &FlagSource{Flags: nil}

	err := src.Load(k)
	require.NoError(t, err, "Nil flags should skip silently")
}

func TestFlagSource_Load(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log.level", "info", "")
	_ = flags.Set("log.level", "debug")

	k := koanf.New(".")
	// Load defaults first so koanf knows the keys
	_ = k.Load(nil, nil)

	src := &FlagSource{Flags: flags}
	err := src.Load(k)
	require.NoError(t, err)

	assert.Equal(t, "debug", k.String("log.level"))
}

func TestFlagSource_Load_IgnoresNonConfigFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("server", "", "")
	flags.Int("server.port", 5000, "")
	require.NoError(t, flags.Set("server", "http://127.0.0.1:5000"))
	require.NoError(t, flags.Set("server.port", "6000"))

	k := koanf.New(".")
	require.NoError(t, (&DefaultSource{}).Load(k))
	require.NoError(t, (&FlagSource{Flags: flags}).Load(k))

	var cfg Config
	require.NoError(t, k.Unmarshal("", &cfg))
	assert.Equal(t, 6000, cfg.Server.Port)
	assert.Equal(t, DefaultServerConfig().Addr, cfg.Server.Addr)
}

func TestFlagSource_Load_DebugFlag(t *testing.T) {
	k := koanf.New(".")

	src := &FlagSource{Flags: nil, Debug: true}
	err := src.Load(k)
	require.NoError(t, err)

	assert.Equal(t, "debug", k.String("log.level"))
}

func TestDefaultSources_Order(t *testing.T) {
	sources := DefaultSources("/tmp/config.yaml", nil, false)

	require.Len(t, sources, 4)
	assert.Equal(t, "defaults", sources[0].Name())
	assert.Equal(t, "file:/tmp/config.yaml", sources[1].Name())
	assert.Equal(t, "env", sources[2].Name())
	assert.Equal(t, "flags", sources[3].Name())
}

func TestDefaultSources_Priorities(t *testing.T) {
	sources := DefaultSources("", nil, false)

	// Verify priorities are in ascending order
	for i := 1; i < len(sources); i++ {
		assert.Greater(t, sources[i].Priority(), sources[i-1].Priority(),
			"Source %s should have higher priority than %s",
			sources[i].Name(), sources[i-1].Name())
	}
}

func TestLoadWithSources_CustomSource(t *testing.T) {
	// Create a custom source that inserts between file and env
	customSource := &mockConfigSource{
		name:     "custom",
		priority: 25, // Between file (20) and env (30)
		loadFunc: func(k *koanf.Koanf) error {
			return k.Set("log.level", "warn")
		},
	}

	manager := NewManager()
	sources := []ConfigSource{
		&DefaultSource{},
		customSource,
		&EnvSource{Prefix: "TS_UNSET_"},
	}

	err := manager.LoadWithSources(sources)
	require.NoError(t, err)

	cfg := manager.Get()
	// Nothing is set under the env prefix, so the custom value remains.
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadWithSources_PriorityOrdering(t *testing.T) {
	t.Setenv("TEXTSTREAM_LOG_LEVEL", "error")

	manager := NewManager()
	sources := []ConfigSource{
		&EnvSource{Prefix: EnvPrefix}, // priority 30
		&DefaultSource{},              // priority 10 - should be loaded first despite order
	}

	err := manager.LoadWithSources(sources)
	require.NoError(t, err)

	cfg := manager.Get()
	// ENV (priority 30) should override defaults (priority 10)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoadWithSources_SourceErrorIsWrapped(t *testing.T) {
	manager := NewManager()
	err := manager.LoadWithSources([]ConfigSource{&mockConfigSource{
		name:     "broken",
		loadFunc: func(*koanf.Koanf) error { return assert.AnError },
	}})
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "broken")
}

// mockConfigSource is a test helper for custom config sources
type mockConfigSource struct {
	name     string
	priority int
	loadFunc func(k *koanf.Koanf) error
}

func (m *mockConfigSource) Name() string  { return m.name }
func (m *mockConfigSource) Priority() int { return m.priority }
func (m *mockConfigSource) Load(k *koanf.Koanf) error {
	if m.loadFunc != nil {
		return m.loadFunc(k)
	}
	return nil
}
