// Package version reports the voxkit build.
//
// Values are stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/voxkit/version.Version=1.2.0 \
//	  -X github.com/kbukum/voxkit/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Unstamped builds fall back to the VCS settings embedded by the Go
// toolchain.
package version
