package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/soyeahso/kirpich/internal/version.Version=1.0.0
//	  -X github.com/soyeahso/kirpich/internal/version.Commit=abc123
//	  -X github.com/soyeahso/kirpich/internal/version.Date=2026-01-01"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("kirpich %s (commit: %s, built: %s, %s/%s)",
		Version, short(Commit), Date, runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies this client to the messaging backend.
func UserAgent() string {
	return fmt.Sprintf("kirpich-desktop/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}

// Short returns the commit abbreviated for display.
func Short() string {
	return short(Commit)
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
