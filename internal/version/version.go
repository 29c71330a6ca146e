// Package version provides centralized version information for commitgate.
package version

// These variables can be overridden at build time using ldflags:
// go build -ldflags "-X commitgate/internal/version.Version=1.0.0 -X commitgate/internal/version.Commit=abc123"
var (
	// Version is the semantic version of commitgate
	Version = "0.3.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"
)

// Info returns a formatted version string
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}
