package version

import "runtime/debug"

// Version can be set at build time:
// go build -ldflags "-X github.com/sonigraph/sonify/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short vcs revision the binary was built from, with a -dirty
// suffix for modified trees. Empty if the build has no vcs info.
var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	revision, modified := "", false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if revision != "" && modified {
		return revision + "-dirty"
	}
	return revision
}()

// VersionOrHash is what sonify -v prints: Version if set, otherwise the
// module version of a go install build, otherwise Hash.
var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Hash
}()
