// Package version carries build identity stamped in via -ldflags.
package version

var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"
	// GitSHA identifies the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String renders the build identity on one line for -version output
// and startup logs.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
