package packager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/oshokin/mlops-launch/internal/domain/job"
)

// Builder produces a package archive from a BuildRequest.
type Builder interface {
	Build(ctx context.Context, req *BuildRequest) error
}

// BuildRequest describes one package build.
type BuildRequest struct {
	// Platform is the MLOps platform the package targets.
	Platform string
	// IgnoreList holds caller patterns excluded from the source tree.
	IgnoreList []string
	// SourceFolder is copied into <kind>/fedml.
	SourceFolder string
	// EntryPoint is the entry file name relative to SourceFolder.
	EntryPoint string
	// ConfigFolder is copied into <kind>/fedml/config.
	ConfigFolder string
	// ConfFile is the config file name inside ConfigFolder.
	ConfFile string
	// DestFolder receives dist-packages/<PackageLabel>.zip.
	DestFolder string
	// BuildDir is the scratch folder, wiped before every build.
	BuildDir string
	// PackageKind is KindClient or KindServer.
	PackageKind string
	// PackageLabel is the archive base name.
	PackageLabel string
	// IndexPlaceholder becomes dynamic_args.rank in conf/fedml.yaml.
	IndexPlaceholder string
}

const (
	// KindClient is the client package template folder.
	KindClient = "fedml-client"
	// KindServer is the server package template folder.
	KindServer = "fedml-server"

	// LabelClient names the client archive.
	LabelClient = "client-package"
	// LabelServer names the server archive.
	LabelServer = "server-package"

	// ClientIndexPlaceholder is substituted by the platform with the client rank.
	ClientIndexPlaceholder = "${FEDSYS.CLIENT_INDEX}"
	// ServerIndexPlaceholder is the fixed server rank.
	ServerIndexPlaceholder = "0"
)

// PreIgnoreList is always excluded from packaged source trees.
var PreIgnoreList = []string{
	"dist-packages",
	"client-package.zip",
	"server-package.zip",
	"__pycache__",
	"*.pyc",
	"*.git",
}

var (
	errFieldRequired = errors.New("build request field is required")
	errUnknownKind   = errors.New("unknown package kind")
)

// ArchivePath returns where the archive for this request is written.
func (r *BuildRequest) ArchivePath() string {
	return filepath.Join(r.DestFolder, job.DistPackagesDir, r.PackageLabel+".zip")
}

// IgnorePatterns combines the caller list with PreIgnoreList.
func (r *BuildRequest) IgnorePatterns() []string {
	patterns := make([]string, 0, len(r.IgnoreList)+len(PreIgnoreList))
	patterns = append(patterns, r.IgnoreList...)

	return append(patterns, PreIgnoreList...)
}

func (r *BuildRequest) validate() error {
	if !job.IsValidPlatform(r.Platform) {
		return fmt.Errorf("%w: %q", job.ErrInvalidPlatform, r.Platform)
	}

	if r.PackageKind != KindClient && r.PackageKind != KindServer {
		return fmt.Errorf("%w: %q", errUnknownKind, r.PackageKind)
	}

	required := map[string]string{
		"source folder": r.SourceFolder,
		"entry point":   r.EntryPoint,
		"config folder": r.ConfigFolder,
		"dest folder":   r.DestFolder,
		"build dir":     r.BuildDir,
		"package label": r.PackageLabel,
	}

	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%w: %s", errFieldRequired, name)
		}
	}

	return nil
}
