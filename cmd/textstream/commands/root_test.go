package commands

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/textstream/textstream/pkg/appctx"
	"github.com/textstream/textstream/pkg/config"
	serversvc "github.com/textstream/textstream/pkg/server"
	"github.com/textstream/textstream/pkg/server/api"
	"github.com/textstream/textstream/pkg/server/jobs"
	"github.com/textstream/textstream/pkg/version"
)

func TestRootCommandRunsVersion(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := NewCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version", "--short"})

	require.NoError(t, cmd.Execute())
	require.Equal(t, version.Version+"\n", buf.String())
}

func TestVersionCommandTemplate(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := NewCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "Version:      "+version.Version)
	require.Contains(t, buf.String(), "Go version:")
}

func TestConfigShowMergesFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textstream.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs:\n  max_parallel: 3\n"), 0o600))
	t.Setenv("TEXTSTREAM_SERVER_PORT", "6001")

	cmd := NewCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"config", "show", "--config", path})

	require.NoError(t, cmd.Execute())

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &cfg))
	require.Equal(t, 3, cfg.Jobs.MaxParallelOperations)
	require.Equal(t, 6001, cfg.Server.Port)
	require.Equal(t, config.DefaultJobsConfig().MaxQueueSize, cfg.Jobs.MaxQueueSize)
}

func TestRootCommandRejectsInvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textstream.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs:\n  max_parallel: 0\n"), 0o600))

	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "show", "--config", path})

	err := cmd.Execute()
	require.Error(t, err)
	require.Equal(t, 2, serversvc.ExitCode(err))
}

func TestServerStatusAcceptsServerURLFlag(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, api.StatusResponse{
			Status: jobs.Status{QueueCapacity: 1000},
		})
	}))
	defer srv.Close()

	cmd := NewCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"server", "status", "--server", srv.URL})

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "1000")
}

func TestRootCommandLoadsDefaultConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	path := filepath.Join(home, "textstream", "textstream.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("jobs:\n  max_parallel: 2\n"), 0o600))

	var mgr *config.Manager
	cmd := NewCommand()
	cmd.AddCommand(&cobra.Command{
		Use: "capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _ = appctx.Config(cmd.Context())
			return nil
		},
	})
	cmd.SetArgs([]string{"capture"})

	require.NoError(t, cmd.Execute())
	require.NotNil(t, mgr)
	require.Equal(t, path, mgr.Path(), "server start watches this file")
	require.Equal(t, 2, mgr.Get().Jobs.MaxParallelOperations)
}
