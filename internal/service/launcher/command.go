package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/oshokin/mlops-launch/internal/config"
	"github.com/oshokin/mlops-launch/internal/logger"
	"github.com/oshokin/mlops-launch/internal/repository/credentials"
	"github.com/oshokin/mlops-launch/internal/service/common"
	"github.com/oshokin/mlops-launch/internal/service/packager"
	"github.com/oshokin/mlops-launch/internal/service/registry"
	"github.com/oshokin/mlops-launch/internal/service/updater"
	"github.com/oshokin/mlops-launch/internal/version"
)

// Options controls a single launch preparation.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// JobPath is the job description document.
	JobPath string
	// IgnoreList adds patterns excluded from the packages.
	IgnoreList []string
	// Platform overrides the configured platform.
	Platform string
	// Output receives the built package paths, one per line. Nil discards them.
	Output io.Writer
}

// LoginOptions controls storing the API key.
type LoginOptions struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// APIKey is the key to store.
	APIKey string
	// FedMLHome overrides the configured home folder and is written back to the settings.
	FedMLHome string
}

// errAPIKeyIsEmpty is returned when login is called without a key.
var errAPIKeyIsEmpty = errors.New("api key is empty")

// Run prepares the packages for the job document and logs where they were written.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "mlops-launch")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	manager, err := newManagerFromConfig(cfg, opts)
	if err != nil {
		return err
	}

	result, err := manager.PrepareLaunch(ctx, opts.JobPath)
	if err != nil {
		return fmt.Errorf("prepare launch: %w", err)
	}

	logger.InfoKV(ctx, "Launch packages are ready",
		"application", result.JobConfig.ApplicationName,
		"client_package", result.ClientPackage,
		"server_package", result.ServerPackage)

	if opts.Output != nil {
		for _, archive := range []string{result.ClientPackage, result.ServerPackage} {
			if archive != "" {
				_, _ = fmt.Fprintln(opts.Output, archive)
			}
		}
	}

	if result.Model != nil {
		logger.InfoKV(ctx, "Model endpoint applied",
			"model_name", result.Model.ModelName,
			"model_version", result.Model.ModelVersion,
			"endpoint_id", result.Model.EndpointID)
	}

	return nil
}

// Login stores the API key in the credentials file of the configured home folder.
func Login(ctx context.Context, opts *LoginOptions) error {
	ctx = logger.WithName(ctx, "mlops-launch-login")

	if strings.TrimSpace(opts.APIKey) == "" {
		return errAPIKeyIsEmpty
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err = persistSettings(ctx, opts, cfg); err != nil {
		return err
	}

	repo := credentials.NewFileRepository(cfg.CredentialsPath())
	if err = credentials.NewStore(repo).SaveAPIKey(ctx, opts.APIKey); err != nil {
		return fmt.Errorf("save api key: %w", err)
	}

	logger.InfoKV(ctx, "API key saved", "path", repo.Path())

	return nil
}

// persistSettings writes the settings when the file is missing or the home folder changed.
func persistSettings(ctx context.Context, opts *LoginOptions, cfg *config.Config) error {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultConfigFilename
	}

	_, statErr := os.Stat(path)
	if opts.FedMLHome == "" && !errors.Is(statErr, fs.ErrNotExist) {
		return nil
	}

	if opts.FedMLHome != "" {
		cfg.FedMLHome = opts.FedMLHome
	}

	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}

	logger.InfoKV(ctx, "Settings saved", "path", path, "fedml_home", cfg.FedMLHome)

	return nil
}

// newManagerFromConfig wires the remote clients, credentials and builder for cfg.
func newManagerFromConfig(cfg *config.Config, opts *Options) (*Manager, error) {
	actor, err := common.DetectActor()
	if err != nil {
		return nil, fmt.Errorf("detect actor: %w", err)
	}

	api, err := common.NewClient(cfg.APIURL, common.WithCallTimeout(cfg.Timeout), common.WithActor(actor))
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	models := registry.NewClient(api)

	builder, err := newBuilder(cfg)
	if err != nil {
		return nil, err
	}

	platform := cfg.Platform
	if opts.Platform != "" {
		platform = opts.Platform
	}

	checker := updater.NewChecker(cfg.VersionURL,
		updater.WithSelfUpdate(cfg.SelfUpdate),
		updater.WithCurrentVersion(version.Short()))

	return NewManager(cfg.FedMLHome,
		WithCredentials(credentials.NewStore(credentials.NewFileRepository(cfg.CredentialsPath()))),
		WithVersionChecker(checker),
		WithModelRegistry(models),
		WithEndpointRegistry(models),
		WithBuilder(builder),
		WithPlatform(platform),
		WithIgnoreList(append(append([]string(nil), cfg.Ignore...), opts.IgnoreList...)),
		WithBuildDir(cfg.BuildDir()),
	)
}

func newBuilder(cfg *config.Config) (packager.Builder, error) {
	if cfg.PackageCommand == "" {
		return packager.NewZipBuilder(packager.WithTemplateDir(cfg.TemplateDir)), nil
	}

	builder, err := packager.NewCommandBuilder(cfg.PackageCommand, packager.WithCommandTemplateDir(cfg.TemplateDir))
	if err != nil {
		return nil, fmt.Errorf("create package command: %w", err)
	}

	return builder, nil
}
