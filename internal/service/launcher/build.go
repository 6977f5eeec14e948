package launcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/oshokin/mlops-launch/internal/domain/job"
	"github.com/oshokin/mlops-launch/internal/logger"
	"github.com/oshokin/mlops-launch/internal/service/packager"
)

// packageTarget selects what a single build produces.
type packageTarget struct {
	kind        string
	label       string
	entryPoint  string
	placeholder string
}

func clientBuild(paths *job.LaunchPaths) packageTarget {
	return packageTarget{
		kind:        packager.KindClient,
		label:       packager.LabelClient,
		entryPoint:  paths.EntryPoint,
		placeholder: packager.ClientIndexPlaceholder,
	}
}

func serverBuild(paths *job.LaunchPaths) packageTarget {
	return packageTarget{
		kind:        packager.KindServer,
		label:       packager.LabelServer,
		entryPoint:  paths.ServerEntryPoint,
		placeholder: packager.ServerIndexPlaceholder,
	}
}

// buildPackage packages the materialized job and returns the archive path.
func (m *Manager) buildPackage(ctx context.Context, paths *job.LaunchPaths, target packageTarget) (string, error) {
	if !job.IsValidPlatform(m.platform) {
		return "", fmt.Errorf("%w: %q", job.ErrInvalidPlatform, m.platform)
	}

	request := &packager.BuildRequest{
		Platform:         m.platform,
		IgnoreList:       m.ignore,
		SourceFolder:     paths.SourceFullFolder,
		EntryPoint:       target.entryPoint,
		ConfigFolder:     paths.ConfigFullFolder,
		ConfFile:         filepath.Base(paths.ConfigFullPath),
		DestFolder:       paths.DestFolder,
		BuildDir:         m.buildDir,
		PackageKind:      target.kind,
		PackageLabel:     target.label,
		IndexPlaceholder: target.placeholder,
	}

	ctx = logger.WithFields(ctx, "package", target.label)
	logger.DebugKV(ctx, "Building package", "source", request.SourceFolder, "config", request.ConfigFolder)

	if err := m.builder.Build(ctx, request); err != nil {
		if errors.Is(err, job.ErrInvalidPlatform) {
			return "", err
		}

		return "", fmt.Errorf("%w: build %s: %w", job.ErrRemoteFailure, target.label, err)
	}

	archive := paths.PackagePath(target.label)
	logger.InfoKV(ctx, "Package built", "path", archive)

	return archive, nil
}
