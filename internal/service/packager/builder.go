package packager

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/otiai10/copy"
	"github.com/spf13/afero"

	"github.com/oshokin/mlops-launch/internal/logger"
	"github.com/oshokin/mlops-launch/internal/yamldoc"
)

//go:embed templates
var templates embed.FS

const (
	templateRoot     = "templates/build-package"
	sourceSubdir     = "fedml"
	configSubdir     = "config"
	packageConfDir   = "conf"
	packageConfFile  = "fedml.yaml"
	entryConfigKey   = "entry_config"
	dynamicArgsKey   = "dynamic_args"
	templateIgnores  = "__pycache__,*.pyc,*.git"
	writePermissions = 0o200
)

// ZipBuilder builds packages natively.
type ZipBuilder struct {
	// templateDir replaces the embedded template tree when set.
	templateDir string
	fsys        afero.Fs
}

// ZipBuilderOption customizes a ZipBuilder.
type ZipBuilderOption func(*ZipBuilder)

// WithTemplateDir uses an on-disk template tree instead of the embedded one.
func WithTemplateDir(dir string) ZipBuilderOption {
	return func(b *ZipBuilder) {
		b.templateDir = dir
	}
}

// NewZipBuilder creates a native builder.
func NewZipBuilder(opts ...ZipBuilderOption) *ZipBuilder {
	builder := &ZipBuilder{
		fsys: afero.NewOsFs(),
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder
}

// Build lays the package out in the scratch folder and zips it.
func (b *ZipBuilder) Build(ctx context.Context, req *BuildRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	ctx = logger.WithFields(ctx, "kind", req.PackageKind)

	lock, err := acquireLock(ctx, req.BuildDir)
	if err != nil {
		return err
	}

	defer lock.release()

	if err = prepareScratch(ctx, b.templateDir, req.BuildDir); err != nil {
		return err
	}

	packageDir := filepath.Join(req.BuildDir, req.PackageKind)

	if err = copySource(ctx, req, packageDir); err != nil {
		return err
	}

	if err = b.writePackageConf(req, packageDir); err != nil {
		return err
	}

	archive := req.ArchivePath()

	logger.InfoKV(ctx, "Compressing package", "archive", archive)

	if err = ZipDirToFile(ctx, packageDir, archive, nil); err != nil {
		return fmt.Errorf("compress package: %w", err)
	}

	return nil
}

// prepareScratch recreates the scratch folder from the template tree.
// An empty templateDir selects the embedded tree.
func prepareScratch(ctx context.Context, templateDir, buildDir string) error {
	if err := os.RemoveAll(buildDir); err != nil {
		return fmt.Errorf("clean build dir: %w", err)
	}

	matcher, err := NewIgnoreMatcher(ParseIgnoreList(templateIgnores))
	if err != nil {
		return err
	}

	src := templateRoot
	options := copy.Options{
		PermissionControl: copy.AddPermission(writePermissions),
		OnSymlink:         func(string) copy.SymlinkAction { return copy.Skip },
	}

	if templateDir != "" {
		src = templateDir
	} else {
		options.FS = templates
	}

	options.Skip = skipFunc(src, options.FS != nil, matcher)

	logger.DebugKV(ctx, "Copying package template", "from", src, "to", buildDir)

	if err = copy.Copy(src, buildDir, options); err != nil {
		return fmt.Errorf("copy package template: %w", err)
	}

	return nil
}

// copySource copies the source and config folders into the package tree.
func copySource(ctx context.Context, req *BuildRequest, packageDir string) error {
	matcher, err := ReadIgnoreMatcher(req.SourceFolder, req.IgnorePatterns())
	if err != nil {
		return err
	}

	options := copy.Options{
		OnSymlink: func(string) copy.SymlinkAction { return copy.Shallow },
	}

	sourceDest := filepath.Join(packageDir, sourceSubdir)
	options.Skip = skipFunc(req.SourceFolder, false, matcher)

	logger.DebugKV(ctx, "Copying job source", "from", req.SourceFolder, "to", sourceDest)

	if err = copy.Copy(req.SourceFolder, sourceDest, options); err != nil {
		return fmt.Errorf("copy source folder: %w", err)
	}

	configDest := filepath.Join(sourceDest, configSubdir)
	options.Skip = skipFunc(req.ConfigFolder, false, matcher)

	logger.DebugKV(ctx, "Copying job config", "from", req.ConfigFolder, "to", configDest)

	if err = copy.Copy(req.ConfigFolder, configDest, options); err != nil {
		return fmt.Errorf("copy config folder: %w", err)
	}

	return nil
}

// writePackageConf points conf/fedml.yaml at the entry and config files.
func (b *ZipBuilder) writePackageConf(req *BuildRequest, packageDir string) error {
	confPath := filepath.Join(packageDir, packageConfDir, packageConfFile)

	base, err := yamldoc.Load(b.fsys, confPath)
	if err != nil {
		return fmt.Errorf("load package conf: %w", err)
	}

	entry := map[string]any{"entry_file": req.EntryPoint}
	if req.ConfFile != "" {
		entry["conf_file"] = path.Join(configSubdir, filepath.Base(req.ConfFile))
	}

	overlay := yamldoc.Document{
		entryConfigKey: entry,
		dynamicArgsKey: map[string]any{"rank": req.IndexPlaceholder},
	}

	merged, err := yamldoc.Merge(base, overlay)
	if err != nil {
		return fmt.Errorf("merge package conf: %w", err)
	}

	if err = yamldoc.Write(b.fsys, merged, confPath); err != nil {
		return fmt.Errorf("write package conf: %w", err)
	}

	return nil
}

// skipFunc adapts an IgnoreMatcher to copy.Options.Skip for the tree at root.
func skipFunc(root string, embedded bool, matcher *IgnoreMatcher) func(os.FileInfo, string, string) (bool, error) {
	return func(info os.FileInfo, src, _ string) (bool, error) {
		var (
			rel string
			err error
		)

		if embedded {
			rel, err = relSlash(root, src)
		} else {
			rel, err = filepath.Rel(root, src)
		}

		if err != nil {
			return false, err
		}

		return matcher.Ignored(rel, info.IsDir()), nil
	}
}

// relSlash is filepath.Rel for slash separated fs.FS paths.
func relSlash(root, p string) (string, error) {
	p = filepath.ToSlash(p)
	if p == root {
		return ".", nil
	}

	if !fs.ValidPath(p) || len(p) <= len(root) || p[:len(root)+1] != root+"/" {
		return "", fmt.Errorf("%s is outside %s: %w", p, root, fs.ErrInvalid)
	}

	return p[len(root)+1:], nil
}
