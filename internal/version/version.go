package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const devVersion = "0.1.0-dev"

var (
	// Name of the binary
	AppName = "s3mirror"

	// Set via -ldflags "-X github.com/openmined/s3mirror/internal/version.Version=..."
	Version = devVersion

	// Git commit the binary was built from
	Revision = "HEAD"

	// RFC3339 build timestamp
	BuildDate = ""
)

// fillFromBuildInfo fills in whatever ldflags left at their placeholder values.
func fillFromBuildInfo(moduleVersion string, vcs map[string]string) {
	if Version == "" || Version == devVersion {
		if moduleVersion != "" && moduleVersion != "(devel)" {
			Version = strings.TrimPrefix(moduleVersion, "v")
		}
	}

	if Revision == "" || Revision == "HEAD" {
		if rev := vcs["vcs.revision"]; rev != "" {
			if vcs["vcs.modified"] == "true" {
				rev += "-dirty"
			}
			Revision = rev
		}
	}

	if BuildDate == "" {
		BuildDate = vcs["vcs.time"]
	}
}

// Short returns `0.1.0 (5e23a4)`
func Short() string {
	return fmt.Sprintf("%s (%s)", Version, Revision)
}

// Detailed returns `0.1.0 (5e23a4; go1.23.6; linux/amd64; 2025-01-01T00:00:00Z)`
func Detailed() string {
	return fmt.Sprintf("%s (%s; %s; %s/%s; %s)", Version, Revision, runtime.Version(), runtime.GOOS, runtime.GOARCH, BuildDate)
}

// UserAgentSuffix is appended to outbound HTTP user agents so source operators can identify the mirror.
func UserAgentSuffix() string {
	return fmt.Sprintf("%s/%s", AppName, Version)
}

func init() {
	if info, ok := debug.ReadBuildInfo(); ok && info != nil {
		vcs := make(map[string]string, len(info.Settings))
		for _, s := range info.Settings {
			vcs[s.Key] = s.Value
		}
		fillFromBuildInfo(info.Main.Version, vcs)
	}
	if BuildDate == "" {
		BuildDate = time.Now().UTC().Format(time.RFC3339)
	}
}
