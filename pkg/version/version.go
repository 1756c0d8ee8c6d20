// Package version contains build information about goasm64.
package version

import "runtime"

// Version is the canonical release version, overridable at build time
// via -ldflags "-X goasm64/pkg/version.Version=...".
var Version = "0.2.0-dev"

// GoVersion is the version of Go this was built with.
var GoVersion = runtime.Version()

// Platform is the runtime OS and architecture.
var Platform = runtime.GOOS + "/" + runtime.GOARCH
