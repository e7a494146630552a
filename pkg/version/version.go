// Package version reports how the running docwatch binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Version, Commit and Date are injected with
// -ldflags "-X github.com/Aman-CERP/docwatch/pkg/version.Version=...".
// Binaries built without them fall back to the VCS stamp Go embeds.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

const bleveModule = "github.com/blevesearch/bleve/v2"

// BuildInfo is structured version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Bleve     string `json:"bleve,omitempty"`
}

// Get collects the build information of the running binary.
func Get() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromBuild(&info, bi)
	}

	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return info
}

func fillFromBuild(info *BuildInfo, bi *debug.BuildInfo) {
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = shortRevision(s.Value)
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	for _, dep := range bi.Deps {
		if dep.Path == bleveModule {
			info.Bleve = dep.Version
			if dep.Replace != nil {
				info.Bleve = dep.Replace.Version
			}
		}
	}
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String renders the build information on one line.
func (b BuildInfo) String() string {
	commit := b.Commit
	if b.Modified {
		commit += "-dirty"
	}
	parts := []string{
		"commit: " + commit,
		"built: " + b.Date,
		"go: " + b.GoVersion,
		b.Platform,
	}
	if b.Bleve != "" {
		parts = append(parts, "bleve: "+b.Bleve)
	}
	return fmt.Sprintf("docwatch %s (%s)", b.Version, strings.Join(parts, ", "))
}
