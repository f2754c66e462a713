// SPDX-License-Identifier: MIT

// Package version holds build identification for the bridge.
package version

import (
	"strconv"
	"strings"
)

var (
	// Version is the bridge version advertised in manifests and /version.
	// It may be overridden by the build system (ldflags).
	Version = "3.0.0"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// Parts splits a dotted version into major, minor and patch.
// Missing or non-numeric components read as 0; a leading "v" is ignored.
func Parts(v string) (major, minor, patch int) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	var out [3]int
	for i, p := range strings.SplitN(v, ".", 3) {
		if n, err := strconv.Atoi(p); err == nil {
			out[i] = n
		}
	}
	return out[0], out[1], out[2]
}
