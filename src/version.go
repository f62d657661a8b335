package cwkey

import (
	"fmt"
	"io"
	"runtime/debug"
	"strconv"
)

// Set at build time via `-ldflags "-X 'github.com/doismellburning/cwkey/src.CWKEY_VERSION=X'"`
var CWKEY_VERSION string

func buildSetting(bi *debug.BuildInfo, key string, defaultValue string) string {
	if bi == nil {
		return defaultValue
	}

	for _, bs := range bi.Settings {
		if bs.Key == key {
			return bs.Value
		}
	}

	return defaultValue
}

// Version is one line for --version.
func Version() string {
	var buildInfo, _ = debug.ReadBuildInfo()

	var buildTimeStr = buildSetting(buildInfo, "vcs.time", "UNKNOWN")

	var (
		buildCommit               = buildSetting(buildInfo, "vcs.revision", "UNKNOWN")
		buildDirtyStr             = buildSetting(buildInfo, "vcs.modified", "INVALID")
		buildDirty, buildDirtyErr = strconv.ParseBool(buildDirtyStr)
	)

	if buildDirty {
		buildCommit += "-DIRTY"
	} else if buildDirtyErr != nil {
		buildCommit += "-UNKNOWNDIRTY"
	}

	var version = CWKEY_VERSION
	if version == "" {
		version = "!UNKNOWN!"
	}

	return fmt.Sprintf("cwkey - Version %s (revision %s, built at %s)", version, buildCommit, buildTimeStr)
}

func PrintVersion(w io.Writer) {
	fmt.Fprintln(w, Version())
}
