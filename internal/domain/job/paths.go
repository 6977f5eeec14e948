package job

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// LaunchPaths holds every location used while materializing and packaging a job.
type LaunchPaths struct {
	SourceFullPath       string
	SourceFullFolder     string
	ServerSourceFullPath string
	// EntryPoint is the base name of the client entry file.
	EntryPoint string
	// ServerEntryPoint is the base name of the server entry file.
	ServerEntryPoint string

	ConfigFullPath   string
	ConfigFullFolder string
	// ConfigFolder is the config folder after collision and re-rooting fixes.
	ConfigFolder string

	BootstrapFullPath string
	// DestFolder receives dist-packages/<label>.zip.
	DestFolder string
}

// NewLaunchPaths derives the launch locations for cfg and creates the source,
// config and destination folders. homeDir is the fedml home folder, goos the
// target operating system name as in runtime.GOOS.
func NewLaunchPaths(fsys afero.Fs, cfg *JobConfig, homeDir, goos string) (*LaunchPaths, error) {
	exists := existsIn(fsys)
	launchDir := filepath.Join(homeDir, LaunchTempDir)

	sourceFolder := cfg.ExecutableFileFolder
	if !exists(sourceFolder) {
		sourceFolder = joinBase(cfg.BaseDir, sourceFolder)
	}

	paths := &LaunchPaths{
		SourceFullPath:       filepath.Join(sourceFolder, cfg.ExecutableFile),
		ServerSourceFullPath: filepath.Join(sourceFolder, cfg.ServerExecutableFile),
		EntryPoint:           filepath.Base(cfg.ExecutableFile),
		ServerEntryPoint:     filepath.Base(cfg.ServerExecutableFile),
		ConfigFolder:         cfg.ExecutableConfFileFolder,
		DestFolder:           launchDir,
	}
	paths.SourceFullFolder = filepath.Dir(paths.SourceFullPath)

	confFolder := cfg.ExecutableConfFileFolder
	if !exists(confFolder) {
		confFolder = joinBase(cfg.BaseDir, confFolder)
	}

	paths.ConfigFullPath = filepath.Join(confFolder, cfg.ExecutableConfFile)
	if paths.ConfigFullPath == paths.SourceFullPath {
		paths.ConfigFullPath = filepath.Join(filepath.Dir(paths.ConfigFullPath), DefaultConfFolderName,
			filepath.Base(cfg.ExecutableConfFile))
		paths.ConfigFolder = filepath.Join(paths.ConfigFolder, DefaultConfFolderName)
	}

	paths.ConfigFullFolder = filepath.Dir(paths.ConfigFullPath)

	if err := fsys.MkdirAll(paths.SourceFullFolder, os.ModePerm); err != nil {
		return nil, fmt.Errorf("%w: create source folder %s: %w", ErrFilesystem, paths.SourceFullFolder, err)
	}

	if err := fsys.MkdirAll(paths.ConfigFullFolder, os.ModePerm); err != nil || !exists(paths.ConfigFullFolder) {
		paths.rerootConfig(launchDir, cfg.ExecutableConfFile)

		if err = fsys.MkdirAll(paths.ConfigFullFolder, os.ModePerm); err != nil {
			return nil, fmt.Errorf("%w: create config folder %s: %w", ErrFilesystem, paths.ConfigFullFolder, err)
		}
	}

	paths.BootstrapFullPath = filepath.Join(paths.SourceFullFolder, BootstrapFileName)
	if goos == osWindows {
		paths.BootstrapFullPath = strings.TrimSuffix(paths.BootstrapFullPath, shellScriptExtension) +
			batchScriptExtension
	}

	if err := fsys.MkdirAll(paths.DestFolder, os.ModePerm); err != nil {
		return nil, fmt.Errorf("%w: create destination folder %s: %w", ErrFilesystem, paths.DestFolder, err)
	}

	return paths, nil
}

// PackagePath returns where the archive with the given label is produced.
func (p *LaunchPaths) PackagePath(label string) string {
	return filepath.Join(p.DestFolder, DistPackagesDir, label+".zip")
}

// rerootConfig moves the config location under the launch folder of the fedml home.
func (p *LaunchPaths) rerootConfig(launchDir, confFile string) {
	relative := strings.TrimPrefix(p.ConfigFolder, filepath.VolumeName(p.ConfigFolder))
	relative = strings.TrimLeft(relative, string(os.PathSeparator))

	p.ConfigFolder = filepath.Join(launchDir, relative)
	p.ConfigFullPath = filepath.Join(p.ConfigFolder, confFile)
	p.ConfigFullFolder = filepath.Dir(p.ConfigFullPath)
}
