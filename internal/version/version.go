// Package version reports build metadata, preferring values stamped at
// link time and falling back to debug.ReadBuildInfo.
package version

import "runtime/debug"

var (
	// Version and Commit are stamped via -ldflags at release build time.
	Version = "dev"
	Commit  = "none"
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	out := Info{
		Version: Version,
		Commit:  Commit,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		out.GoVersion = bi.GoVersion
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && out.Commit == "none" && s.Value != "" {
				out.Commit = s.Value
			}
		}
	}
	return out
}
