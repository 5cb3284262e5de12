package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestConfigDir(t *testing.T) {
	t.Run("XDGOverride", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		got := ConfigDir()
		want := filepath.Join("/tmp/xdg-config", "textstream")
		if got != want {
			t.Fatalf("ConfigDir() = %s, want %s", got, want)
		}
	})

	t.Run("PlatformDefault", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		switch runtime.GOOS {
		case "windows":
			t.Setenv("AppData", `C:\AppData`)
			want := filepath.Join(`C:\AppData`, "textstream")
			if got := ConfigDir(); got != want {
				t.Fatalf("ConfigDir() = %s, want %s", got, want)
			}
		default:
			t.Setenv("HOME", "/home/tester")
			want := filepath.Join("/home/tester", ".config", "textstream")
			if got := ConfigDir(); got != want {
				t.Fatalf("ConfigDir() = %s, want %s", got, want)
			}
		}
	})
}

func TestDefaultConfigFile(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", root)

	if got := DefaultConfigFile(); got != "" {
		t.Fatalf("DefaultConfigFile() = %q, want empty when missing", got)
	}

	dir := filepath.Join(root, "textstream")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(want, []byte("log:\n  level: info\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := DefaultConfigFile(); got != want {
		t.Fatalf("DefaultConfigFile() = %q, want %q", got, want)
	}
}
