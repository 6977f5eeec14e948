package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/mlops-launch/internal/logger"
)

const (
	// lockSuffix is appended to the scratch folder path to name its lock file.
	lockSuffix = ".lock"
	// lockLifetime is the period after which a lock is considered abandoned.
	lockLifetime = 10 * time.Minute

	dirMode  os.FileMode = 0o755
	fileMode os.FileMode = 0o644
)

// ErrBuildRunning is returned when another build holds the scratch folder.
var ErrBuildRunning = errors.New("another package build is running")

// buildLock guards a scratch folder against concurrent builds.
type buildLock struct {
	path string
}

// LockPath returns the lock file guarding buildDir.
func LockPath(buildDir string) string {
	return filepath.Clean(buildDir) + lockSuffix
}

// IsBuildRunning reports whether a live process holds the lock of buildDir.
// Abandoned locks are removed.
func IsBuildRunning(ctx context.Context, buildDir string) bool {
	path := LockPath(buildDir)

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	if err != nil {
		logger.WarnKV(ctx, "Unable to read build lock", "path", path, "error", err)

		return true
	}

	if time.Since(info.ModTime()) <= lockLifetime && ownerAlive(path) {
		return true
	}

	logger.InfoKV(ctx, "Removing abandoned build lock", "path", path)

	if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return true
	}

	return false
}

// acquireLock takes the lock of buildDir for the current process.
func acquireLock(ctx context.Context, buildDir string) (*buildLock, error) {
	if IsBuildRunning(ctx, buildDir) {
		return nil, ErrBuildRunning
	}

	path := LockPath(buildDir)

	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return nil, fmt.Errorf("create lock folder: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, fileMode)
	if errors.Is(err, os.ErrExist) {
		return nil, ErrBuildRunning
	}

	if err != nil {
		return nil, fmt.Errorf("create build lock: %w", err)
	}

	_, err = file.WriteString(strconv.Itoa(os.Getpid()))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(path)

		return nil, fmt.Errorf("write build lock: %w", err)
	}

	return &buildLock{path: path}, nil
}

func (l *buildLock) release() {
	if l != nil {
		_ = os.Remove(l.path)
	}
}

// ownerAlive reports whether the process recorded in the lock file still runs.
func ownerAlive(path string) bool {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		return false
	}

	process, err := ps.FindProcess(pid)

	return err == nil && process != nil
}
