package job

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ExistsFunc reports whether a path exists.
type ExistsFunc func(path string) bool

// ResolvePath picks the folder for a configured candidate:
// an empty candidate yields defaultPath, an existing or absolute candidate is
// kept, and anything else is taken relative to base.
func ResolvePath(exists ExistsFunc, candidate, base, defaultPath string) string {
	if candidate == "" {
		return defaultPath
	}

	if filepath.IsAbs(candidate) || exists(candidate) {
		return candidate
	}

	return filepath.Join(base, candidate)
}

// NormalizeSeparators rewrites both '/' and '\' to the host separator.
func NormalizeSeparators(p string) string {
	if p == "" {
		return p
	}

	sep := string(os.PathSeparator)

	return strings.NewReplacer(`\`, sep, "/", sep).Replace(p)
}

// existsIn adapts an afero filesystem to ExistsFunc.
func existsIn(fsys afero.Fs) ExistsFunc {
	return func(path string) bool {
		ok, err := afero.Exists(fsys, path)

		return err == nil && ok
	}
}

// joinBase joins p onto base unless p is already absolute.
func joinBase(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}

	return filepath.Join(base, p)
}

// workingDir anchors relative paths.
//
//nolint:gochecknoglobals // Replaced in tests to simulate a vanished working folder.
var workingDir = os.Getwd

// absolute makes p absolute without touching the filesystem.
func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}

	wd, err := workingDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(wd, p), nil
}
