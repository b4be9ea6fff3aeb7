// SPDX-License-Identifier: MIT
//
// Package build manages build information embedded into the binary at
// compile time via linker flags, for example:
//
//	go build -ldflags "-X github.com/mrcool7387/BarScreenSaver/internal/build.buildName=barscreensaver"
//
// Development builds without ldflags fall back to "dev" placeholders.
package build

type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

// GetInfo returns the build information, substituting development
// placeholders for any flag that was not injected.
func GetInfo() Info {
	info := Info{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}
	if info.Name == "" {
		info.Name = "barscreensaver"
	}
	if info.Time == "" {
		info.Time = "unknown"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}
