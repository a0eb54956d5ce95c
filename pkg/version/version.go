package version

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Set at build time with -ldflags
var (
	GitSource   string
	GitTag      string
	GitBranch   string
	GitHash     string
	GoBuildTime string
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// ExecName returns the name of the running executable.
func ExecName() string {
	exec, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Base(exec)
}

// Version returns the version of the running executable, preferring the
// git tag set at build time, then the module version.
func Version() string {
	if GitTag != "" {
		return GitTag
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

// Compiler returns the go compiler version.
func Compiler() string {
	return runtime.Version()
}
