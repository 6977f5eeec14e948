package version

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.9.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}

// IsNewer reports whether candidate is a strictly higher semantic version than current.
// Unparseable versions never count as newer.
func IsNewer(candidate, current string) bool {
	c, ok := parse(candidate)
	if !ok {
		return false
	}

	cur, ok := parse(current)
	if !ok {
		return true
	}

	for i := range c {
		if c[i] != cur[i] {
			return c[i] > cur[i]
		}
	}

	return false
}

// parse splits "v1.2.3" (pre-release and build suffixes dropped) into numbers.
func parse(s string) ([3]int, bool) {
	var out [3]int

	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		s = s[:i]
	}

	parts := strings.Split(s, ".")
	if s == "" || len(parts) > len(out) {
		return out, false
	}

	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return out, false
		}

		out[i] = n
	}

	return out, true
}
