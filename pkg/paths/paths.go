package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigFileName is the name of the config file looked up in ConfigDir.
const ConfigFileName = "textstream.yaml"

// ConfigDir returns the config directory for textstream.
// Order: XDG_CONFIG_HOME/textstream, platform-specific fallback.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "textstream")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("AppData"); appData != "" {
			return filepath.Join(appData, "textstream")
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "textstream")
}

// DefaultConfigFile returns the config file in ConfigDir when it exists,
// and "" otherwise.
func DefaultConfigFile() string {
	path := filepath.Join(ConfigDir(), ConfigFileName)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return ""
	}
	return path
}
