// Package version holds build information, set with -ldflags at build time:
//
//	go build -ldflags "-X github.com/charlie0129/tankmon/pkg/version.Version=v0.1.0 -X github.com/charlie0129/tankmon/pkg/version.GitCommit=$(git rev-parse --short HEAD)"
package version

var (
	Version   = "v0.0.0-dev"
	GitCommit = "unknown"
)
