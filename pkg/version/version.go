// pkg/version/version.go
// Package version provides version metadata for textstream.
package version

import (
	"fmt"
	"runtime"
	"time"

	"github.com/Masterminds/semver/v3"
)

// These variables are typically injected at build time using -ldflags
var (
	// Version holds the current version of textstream.
	Version = "dev"
	// Commit holds the current version commit of textstream.
	Commit = "none"
	// BuildDate holds the build date of textstream.
	BuildDate = "unknown"
	// StartDate holds the process start time.
	StartDate = time.Now()
)

// Struct returns version information in a structured format.
type Struct struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("textstream %s (commit: %s, date: %s)", Version, Commit, BuildDate)
}

// Get returns version information as a Struct.
func Get() Struct {
	return Struct{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Compatible reports whether a peer running version other speaks the same
// protocol as this build. Versions are compatible when their major versions
// match, or for 0.x when the minor versions match too. Development builds
// are compatible with everything.
func Compatible(other string) (bool, error) {
	return compatible(Version, other)
}

func compatible(local, other string) (bool, error) {
	if local == "dev" || other == "dev" || other == "" {
		return true, nil
	}

	lv, err := semver.NewVersion(local)
	if err != nil {
		return false, fmt.Errorf("parse local version %q: %w", local, err)
	}
	ov, err := semver.NewVersion(other)
	if err != nil {
		return false, fmt.Errorf("parse peer version %q: %w", other, err)
	}

	constraint := fmt.Sprintf("^%d.%d.0-0", lv.Major(), lv.Minor())
	if lv.Major() > 0 {
		constraint = fmt.Sprintf("^%d.0.0-0", lv.Major())
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, err
	}
	return c.Check(ov), nil
}
