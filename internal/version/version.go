// Package version holds build-time version information.
package version

// Populated at build time via -ldflags
var (
	// Version is the semantic version of the build
	Version = "dev"
	// Commit is the git commit the binary was built from
	Commit = "unknown"
	// BuildTime is the timestamp of the build
	BuildTime = "unknown"
)
