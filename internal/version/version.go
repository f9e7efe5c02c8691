// Package version exposes build information injected with -ldflags, e.g.
//
//	-X github.com/re-tools/re-healthcheck/internal/version.version=v1.2.3
package version

//nolint:gochecknoglobals
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func GetVersion() string { return version }

func GetCommit() string { return commit }

func GetDate() string { return date }
