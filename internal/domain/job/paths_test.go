package job

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var errMkdirRefused = errors.New("mkdir refused")

// refusingFs rejects folder creation below a prefix.
type refusingFs struct {
	afero.Fs

	prefix string
}

func (f *refusingFs) MkdirAll(path string, perm os.FileMode) error {
	if strings.HasPrefix(path, f.prefix) {
		return errMkdirRefused
	}

	return f.Fs.MkdirAll(path, perm)
}

// easyConfig builds a minimal easy-mode JobConfig on fsys.
func easyConfig(t *testing.T, fsys afero.Fs) *JobConfig {
	t.Helper()

	docPath := filepath.FromSlash("/jobs/demo/job.yaml")
	writeDocument(t, fsys, docPath, "job: echo hi\n")

	cfg, err := NewJobConfig(fsys, docPath, Options{})
	require.NoError(t, err)

	return cfg
}

// TestNewLaunchPaths_Defaults derives every location for an easy-mode job.
func TestNewLaunchPaths_Defaults(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	cfg := easyConfig(t, fsys)
	home := filepath.FromSlash("/home/user/.fedml")

	paths, err := NewLaunchPaths(fsys, cfg, home, "linux")
	require.NoError(t, err)

	folder := cfg.ExecutableFileFolder
	require.Equal(t, filepath.Join(folder, DefaultEntryName), paths.SourceFullPath)
	require.Equal(t, folder, paths.SourceFullFolder)
	require.Equal(t, filepath.Join(folder, DefaultServerEntryName), paths.ServerSourceFullPath)
	require.Equal(t, DefaultEntryName, paths.EntryPoint)
	require.Equal(t, DefaultServerEntryName, paths.ServerEntryPoint)
	require.Equal(t, filepath.Join(folder, DefaultConfFolderName, DefaultConfName), paths.ConfigFullPath)
	require.Equal(t, filepath.Join(folder, DefaultConfFolderName), paths.ConfigFullFolder)
	require.Equal(t, filepath.Join(folder, BootstrapFileName), paths.BootstrapFullPath)
	require.Equal(t, filepath.Join(home, LaunchTempDir), paths.DestFolder)
	require.Equal(t,
		filepath.Join(home, LaunchTempDir, DistPackagesDir, "client-package.zip"),
		paths.PackagePath("client-package"))

	require.True(t, dirExists(t, fsys, paths.SourceFullFolder))
	require.True(t, dirExists(t, fsys, paths.ConfigFullFolder))
	require.True(t, dirExists(t, fsys, paths.DestFolder))
}

// TestNewLaunchPaths_BootstrapExtension swaps the script extension on Windows only.
func TestNewLaunchPaths_BootstrapExtension(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	cfg := easyConfig(t, fsys)

	unix, err := NewLaunchPaths(fsys, cfg, filepath.FromSlash("/home/u/.fedml"), "linux")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(unix.BootstrapFullPath, ".sh"))

	windows, err := NewLaunchPaths(fsys, cfg, filepath.FromSlash("/home/u/.fedml"), "windows")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(windows.BootstrapFullPath, ".bat"))
	require.Equal(t, filepath.Dir(unix.BootstrapFullPath), filepath.Dir(windows.BootstrapFullPath))
}

// TestNewLaunchPaths_ConfigCollision relocates a config that would overwrite the source file.
func TestNewLaunchPaths_ConfigCollision(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	folder := filepath.FromSlash("/jobs/demo/src")
	require.NoError(t, fsys.MkdirAll(folder, 0o755))

	cfg := &JobConfig{
		BaseDir:                  filepath.FromSlash("/jobs/demo"),
		ExecutableFileFolder:     folder,
		ExecutableFile:           "main.sh",
		ExecutableConfFileFolder: folder,
		ExecutableConfFile:       "main.sh",
		ServerExecutableFile:     DefaultServerEntryName,
	}

	paths, err := NewLaunchPaths(fsys, cfg, filepath.FromSlash("/home/u/.fedml"), "linux")
	require.NoError(t, err)

	require.NotEqual(t, paths.SourceFullPath, paths.ConfigFullPath)
	require.Equal(t, filepath.Join(folder, DefaultConfFolderName, "main.sh"), paths.ConfigFullPath)
	require.Equal(t, filepath.Join(folder, DefaultConfFolderName), paths.ConfigFolder)
	require.True(t, dirExists(t, fsys, paths.ConfigFullFolder))
}

// TestNewLaunchPaths_RerootsConfig moves an uncreatable config folder under the fedml home.
func TestNewLaunchPaths_RerootsConfig(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	folder := filepath.FromSlash("/jobs/demo/src")
	require.NoError(t, mem.MkdirAll(folder, 0o755))

	confFolder := filepath.FromSlash("/locked/conf")
	cfg := &JobConfig{
		BaseDir:                  filepath.FromSlash("/jobs/demo"),
		ExecutableFileFolder:     folder,
		ExecutableFile:           "main.sh",
		ExecutableConfFileFolder: confFolder,
		ExecutableConfFile:       "app.yaml",
		ServerExecutableFile:     DefaultServerEntryName,
	}

	home := filepath.FromSlash("/home/u/.fedml")
	fsys := &refusingFs{Fs: mem, prefix: filepath.FromSlash("/locked")}

	paths, err := NewLaunchPaths(fsys, cfg, home, "linux")
	require.NoError(t, err)

	rerooted := filepath.Join(home, LaunchTempDir, "locked", "conf")
	require.Equal(t, rerooted, paths.ConfigFolder)
	require.Equal(t, filepath.Join(rerooted, "app.yaml"), paths.ConfigFullPath)
	require.True(t, dirExists(t, mem, rerooted))
}

// TestNewLaunchPaths_SourceFolderFailure reports an uncreatable source folder.
func TestNewLaunchPaths_SourceFolderFailure(t *testing.T) {
	t.Parallel()

	cfg := &JobConfig{
		BaseDir:                  filepath.FromSlash("/jobs/demo"),
		ExecutableFileFolder:     filepath.FromSlash("/locked/src"),
		ExecutableFile:           "main.sh",
		ExecutableConfFileFolder: filepath.FromSlash("/jobs/demo/conf"),
		ExecutableConfFile:       "app.yaml",
		ServerExecutableFile:     DefaultServerEntryName,
	}

	fsys := &refusingFs{Fs: afero.NewMemMapFs(), prefix: filepath.FromSlash("/locked")}

	_, err := NewLaunchPaths(fsys, cfg, filepath.FromSlash("/home/u/.fedml"), "linux")
	require.ErrorIs(t, err, ErrFilesystem)
	require.ErrorIs(t, err, errMkdirRefused)
}
