// Package version reports build metadata for the longparallel binary.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/longparallel/version.Version=1.2.0"
//
// Missing values are filled from the VCS stamp in debug.ReadBuildInfo.
package version
