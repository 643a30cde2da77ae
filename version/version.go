// Package version reports the build identity of the voixagent binary.
//
// Release builds stamp it through -ldflags:
//
//	go build -ldflags "-X github.com/voixagent/voixagent/version.Version=1.2.0 \
//	    -X github.com/voixagent/voixagent/version.Branch=release" ./cmd/voixagent
//
// Fields left unstamped fall back to the VCS settings recorded by the Go
// toolchain.
package version

import (
	"runtime"
	"runtime/debug"
	"strings"
)

// Set at build time.
var (
	Version   = "dev"
	Commit    = ""
	Branch    = ""
	BuildTime = ""
)

var readBuildInfo = debug.ReadBuildInfo

// Info is the resolved build identity.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Branch    string `json:"branch,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified"`
	Release   bool   `json:"release"`
}

// Get resolves the build identity.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Branch:    Branch,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
	if bi, ok := readBuildInfo(); ok {
		if bi.GoVersion != "" {
			info.GoVersion = bi.GoVersion
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}
	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
	info.Release = info.Version != "dev" && !info.Modified && !strings.HasSuffix(info.Version, "-dirty")
	return info
}

// Short returns version[-commit][-dirty], the form reported to telemetry.
func (i Info) Short() string {
	parts := []string{i.Version}
	if i.Commit != "" {
		parts = append(parts, i.Commit)
	}
	if i.Modified {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

// String returns the short form followed by the toolchain and build time.
func (i Info) String() string {
	s := i.Short() + " (" + i.GoVersion
	if i.BuildTime != "" {
		s += ", built " + i.BuildTime
	}
	return s + ")"
}
