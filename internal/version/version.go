package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/agstream"

// buildVersion is set via -ldflags "-X pkt.systems/agstream/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running binary.
type Info struct {
	Module    string
	Version   string
	Revision  string
	GoVersion string
	Dirty     bool
}

// Current returns the best available version string (without dirty suffix).
func Current() string {
	info, _ := debug.ReadBuildInfo()
	return resolve(info, false)
}

// CurrentWithDirty returns the best available version string (including dirty suffix when available).
func CurrentWithDirty() string {
	info, _ := debug.ReadBuildInfo()
	return resolve(info, true)
}

// Module returns the module path from build info when available.
func Module() string {
	info, ok := debug.ReadBuildInfo()
	if ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}

// Describe collects version details for the version command.
func Describe() Info {
	build, _ := debug.ReadBuildInfo()
	out := Info{
		Module:    Module(),
		Version:   resolve(build, false),
		GoVersion: runtime.Version(),
	}
	settings := vcsSettings(build)
	out.Revision = settings.revision
	out.Dirty = settings.modified
	return out
}

func resolve(info *debug.BuildInfo, includeDirty bool) string {
	if strings.TrimSpace(buildVersion) != "" {
		return normalizeVersion(buildVersion, includeDirty)
	}
	if info != nil {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return normalizeVersion(v, includeDirty)
		}
		if v := pseudoFromBuildInfo(info, includeDirty); v != "" {
			return v
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

type vcs struct {
	revision string
	time     string
	modified bool
}

func vcsSettings(info *debug.BuildInfo) vcs {
	var out vcs
	if info == nil {
		return out
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			out.revision = setting.Value
		case "vcs.time":
			out.time = setting.Value
		case "vcs.modified":
			out.modified = setting.Value == "true"
		}
	}
	return out
}

func pseudoFromBuildInfo(info *debug.BuildInfo, includeDirty bool) string {
	settings := vcsSettings(info)
	if settings.revision == "" || settings.time == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, settings.time)
	if err != nil {
		return ""
	}
	rev := settings.revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	ver := "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + rev
	if settings.modified && includeDirty {
		ver += "+dirty"
	}
	return ver
}
