package version

import "fmt"

var (
	// MajorMinor is the current version of the clmctl tool. It is set at
	// build time via ldflags for release builds.
	MajorMinor = "v0.3"

	GitCommit = ""
)

func String() string {
	if GitCommit == "" {
		return MajorMinor
	}
	return fmt.Sprintf("%s+git.%s", MajorMinor, GitCommit)
}
