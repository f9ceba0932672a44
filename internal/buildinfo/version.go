// Package buildinfo carries the release stamp of the buildhelper binary.
package buildinfo

const unreleased = "dev"

// Version is stamped by release builds:
//
//	go build -ldflags "-X github.com/YoshitsuguKoike/buildhelper/internal/buildinfo.Version=v0.3.0" ./cmd/buildhelper
var Version = unreleased

// GetVersion reports the stamped release. Local builds, and builds that
// stamp an empty string, report "dev".
func GetVersion() string {
	if Version == "" {
		return unreleased
	}
	return Version
}
