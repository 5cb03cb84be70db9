// Package version reports the build of pmdakit binaries.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/pmdakit/version.Version=1.0.0" ./cmd/pmdactl
package version
