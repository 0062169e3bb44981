package internal

import (
	"fmt"
	"runtime"
	"strings"
)

// Name of the binary.
const Name = "dokken"

// String to indicate a value not set at build time.
const defaultUndefined = "(undefined)"

var (
	version   = "" // Version number (e.g., "1.2.3"), set via ldflags.
	gitCommit = "" // Git commit hash, set via ldflags.
)

// Returns the current version without a leading "v".
func Version() string {
	if version == "" {
		return defaultUndefined
	}
	return strings.TrimPrefix(strings.TrimPrefix(version, "v"), "V")
}

// Returns a human readable version line.
func VersionString() string {
	commit := gitCommit
	if commit == "" {
		commit = defaultUndefined
	}
	return fmt.Sprintf("%s %s (%s, %s/%s)", Name, Version(), commit, runtime.GOOS, runtime.GOARCH)
}
