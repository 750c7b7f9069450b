package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/quicktext"

// buildVersion is set via -ldflags "-X pkt.systems/quicktext/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running build.
type Info struct {
	Version  string
	Module   string
	Revision string
	Dirty    bool
}

// String renders the build info on one line.
func (i Info) String() string {
	out := fmt.Sprintf("%s %s", i.Module, i.Version)
	if i.Revision != "" {
		out += " (" + i.Revision
		if i.Dirty {
			out += ", modified"
		}
		out += ")"
	}
	return out
}

// Current returns the best available version string (without dirty suffix).
func Current() string {
	return currentFromBuildInfo(readBuildInfo(), false)
}

// CurrentWithDirty returns the best available version string (including dirty suffix when available).
func CurrentWithDirty() string {
	return currentFromBuildInfo(readBuildInfo(), true)
}

// Module returns the module path from build info when available.
func Module() string {
	return moduleFromBuildInfo(readBuildInfo())
}

// Describe gathers version, module and vcs details for the running binary.
func Describe() Info {
	info := readBuildInfo()
	rev, _, modified := vcsSettings(info)
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return Info{
		Version:  currentFromBuildInfo(info, false),
		Module:   moduleFromBuildInfo(info),
		Revision: rev,
		Dirty:    modified,
	}
}

func readBuildInfo() *debug.BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info
}

func moduleFromBuildInfo(info *debug.BuildInfo) string {
	if info != nil {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}

func currentFromBuildInfo(info *debug.BuildInfo, includeDirty bool) string {
	if strings.TrimSpace(buildVersion) != "" {
		return normalizeVersion(buildVersion, includeDirty)
	}
	if info != nil {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return normalizeVersion(v, includeDirty)
		}
		if v := pseudoFromBuildInfo(info, includeDirty); v != "" {
			return normalizeVersion(v, includeDirty)
		}
	}
	return "v0.0.0-unknown"
}

func normalizeVersion(v string, includeDirty bool) string {
	value := strings.TrimSpace(v)
	if includeDirty {
		return value
	}
	return strings.TrimSuffix(value, "+dirty")
}

func vcsSettings(info *debug.BuildInfo) (revision, vcsTime string, modified bool) {
	if info == nil {
		return "", "", false
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	return revision, vcsTime, modified
}

func pseudoFromBuildInfo(info *debug.BuildInfo, includeDirty bool) string {
	revision, vcsTime, modified := vcsSettings(info)
	if revision == "" || vcsTime == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, vcsTime)
	if err != nil {
		return ""
	}
	rev := revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	ver := "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + rev
	if modified && includeDirty {
		ver += "+dirty"
	}
	return ver
}
