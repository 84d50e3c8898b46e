// Package buildinfo exposes build metadata injected with -ldflags -X.
package buildinfo

var (
	// Version is the release version.
	Version = "dev"
	// Commit is the source revision.
	Commit = "none"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)
