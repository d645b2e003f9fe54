package governance

import (
	"fmt"
	"runtime"
)

// build info, set by ldflags
var (
	CurrentVersion = "dev"
	CurrentBranch  = "unknown"
	CurrentCommit  = "unknown"
	BuildDate      = "unknown"
)

var (
	GoVersion = runtime.Version()
	Platform  = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
)
