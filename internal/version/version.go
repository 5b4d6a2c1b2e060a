// Package version holds build-time version information.
package version

// Version is the current released version.
// Override at build time:
//
//	go build -ldflags "-X github.com/glowmatch/glowmatch/internal/version.Version=v0.3.0"
var Version = "0.0.0-dev"

// GitCommit is the git commit hash at build time.
var GitCommit = "unknown"

// GetCurrentVersion returns the version string for the given run mode.
func GetCurrentVersion(mode string) string {
	if mode == "dev" {
		return Version + "+" + GitCommit
	}
	return Version
}
