package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/MrSnakeDoc/hubfeed/internal/version.Version=...".
var (
	Version   = "dev"  // ex: v0.1.0
	Commit    = "none" // ex: abcd123
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// String is the one-line build description logged at startup.
func String() string {
	return fmt.Sprintf("hubfeed %s (commit=%s, built=%s, go=%s)", Version, Commit, BuildDate, GoVersion)
}
