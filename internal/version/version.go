// Package version reports build information for nesemu.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time via -ldflags "-X".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Modified  bool   `json:"modified"`
}

// GetBuildInfo merges the ldflags values with the VCS stamp of the binary.
func GetBuildInfo() BuildInfo {
	bi := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if bi.GitCommit == "unknown" {
					bi.GitCommit = s.Value
				}
			case "vcs.time":
				if bi.BuildTime == "unknown" {
					bi.BuildTime = s.Value
				}
			case "vcs.modified":
				bi.Modified = s.Value == "true"
			}
		}
	}
	return bi
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}

// GetVersion returns the version, or dev-<commit> for untagged builds.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	bi := GetBuildInfo()
	if bi.GitCommit == "unknown" {
		return Version
	}
	v := "dev-" + shortCommit(bi.GitCommit)
	if bi.Modified {
		v += "+dirty"
	}
	return v
}

// String renders bi as one line for -version.
func (bi BuildInfo) String() string {
	s := "nesemu " + bi.Version
	if bi.GitCommit != "unknown" {
		s += fmt.Sprintf(" (commit %s)", shortCommit(bi.GitCommit))
	}
	if bi.BuildTime != "unknown" {
		if t, err := time.Parse(time.RFC3339, bi.BuildTime); err == nil {
			s += " built " + t.UTC().Format("2006-01-02 15:04:05")
		} else {
			s += " built " + bi.BuildTime
		}
	}
	return s + fmt.Sprintf(" with %s for %s", bi.GoVersion, bi.Platform)
}
