// Package version holds build metadata injected with -ldflags.
package version

import (
	"runtime/debug"
)

// Set via -ldflags "-X github.com/Sumatoshi-tech/imgshard/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const revisionKey = "vcs.revision"

// InitBinaryVersion fills unset fields from the module build info, so
// `go install` builds still report a version and commit.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		if setting.Key == revisionKey && Commit == "none" {
			Commit = setting.Value
		}
	}
}
