package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/spf13/afero"

	"github.com/oshokin/mlops-launch/internal/domain/job"
	"github.com/oshokin/mlops-launch/internal/logger"
	"github.com/oshokin/mlops-launch/internal/service/packager"
	"github.com/oshokin/mlops-launch/internal/yamldoc"
)

// LaunchResult is the outcome of PrepareLaunch.
type LaunchResult struct {
	// JobConfig is the resolved job configuration.
	JobConfig *job.JobConfig
	// AppConfig is the written app config with the raw job document under job_yaml.
	AppConfig yamldoc.Document
	// ClientPackage is the client archive path.
	ClientPackage string
	// ServerPackage is the server archive path, empty without a server job.
	ServerPackage string
	// Model is set when the model flow ran.
	Model *job.ModelUploadResult
}

// Manager runs the launch preparation pipeline and keeps matched resource results.
type Manager struct {
	credentials CredentialStore
	checker     VersionChecker
	models      ModelRegistry
	endpoints   EndpointRegistry
	builder     packager.Builder

	fsys     afero.Fs
	goos     string
	homeDir  string
	buildDir string
	platform string
	ignore   []string
	getwd    func() (string, error)

	// matched maps resource ids to the last GPU matching result.
	matched map[string]*job.MatchedResult
	// mu protects matched.
	mu sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithCredentials sets the API key source.
func WithCredentials(store CredentialStore) Option {
	return func(m *Manager) {
		m.credentials = store
	}
}

// WithVersionChecker sets the release checker run before every launch.
func WithVersionChecker(checker VersionChecker) Option {
	return func(m *Manager) {
		if checker != nil {
			m.checker = checker
		}
	}
}

// WithModelRegistry sets the model registry used by deploy and serve jobs.
func WithModelRegistry(models ModelRegistry) Option {
	return func(m *Manager) {
		m.models = models
	}
}

// WithEndpointRegistry sets the endpoint registry used by deploy and serve jobs.
func WithEndpointRegistry(endpoints EndpointRegistry) Option {
	return func(m *Manager) {
		m.endpoints = endpoints
	}
}

// WithBuilder sets the packaging builder.
func WithBuilder(builder packager.Builder) Option {
	return func(m *Manager) {
		m.builder = builder
	}
}

// WithGOOS overrides the target operating system name.
func WithGOOS(goos string) Option {
	return func(m *Manager) {
		m.goos = goos
	}
}

// WithPlatform sets the target MLOps platform.
func WithPlatform(platform string) Option {
	return func(m *Manager) {
		m.platform = platform
	}
}

// WithIgnoreList sets patterns left out of the packages.
func WithIgnoreList(patterns []string) Option {
	return func(m *Manager) {
		m.ignore = append([]string(nil), patterns...)
	}
}

// WithBuildDir sets the packaging scratch folder.
func WithBuildDir(dir string) Option {
	return func(m *Manager) {
		m.buildDir = dir
	}
}

const (
	defaultPlatform   = "falcon"
	defaultBuildDir   = "fedml-mlops-build"
	scriptPermissions = 0o755
)

var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = fmt.Errorf("%w: api key is not configured, run mlops-launch login", job.ErrMissingInput)

	errBuilderRequired     = errors.New("packaging builder must be provided")
	errCredentialsRequired = errors.New("credential store must be provided")
	errRegistryRequired    = errors.New("model and endpoint registries must be provided")
)

// NewManager creates a Manager keeping its launch files under homeDir.
func NewManager(homeDir string, opts ...Option) (*Manager, error) {
	m := &Manager{
		checker:  noopChecker{},
		fsys:     afero.NewOsFs(),
		goos:     runtime.GOOS,
		homeDir:  homeDir,
		buildDir: filepath.Join(homeDir, defaultBuildDir),
		platform: defaultPlatform,
		getwd:    os.Getwd,
		matched:  make(map[string]*job.MatchedResult),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.credentials == nil {
		return nil, errCredentialsRequired
	}

	if m.builder == nil {
		return nil, errBuilderRequired
	}

	return m, nil
}

// PrepareLaunch turns the job document at documentPath into packages ready for upload.
// Every failure is terminal and classified with the job error sentinels.
func (m *Manager) PrepareLaunch(ctx context.Context, documentPath string) (*LaunchResult, error) {
	ctx = logger.WithFields(ctx, "job", documentPath)

	apiKey, err := m.credentials.GetAPIKey(ctx)
	if err != nil || apiKey == "" {
		return nil, errors.Join(ErrMissingAPIKey, err)
	}

	if err = m.checker.UpgradeIfNotLatest(ctx); err != nil {
		logger.WarnKV(ctx, "Version check failed", "error", err)
	}

	documentPath, err = m.resolveDocument(documentPath)
	if err != nil {
		return nil, err
	}

	cfg, err := job.NewJobConfig(m.fsys, documentPath, job.Options{})
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Parsed job description",
		"application", cfg.ApplicationName, "task_type", cfg.TaskType, "easy_mode", cfg.UsingEasyMode)

	result := &LaunchResult{}

	if job.IsModelTask(cfg.TaskType) {
		cfg, result.Model, err = m.prepareModel(ctx, documentPath, cfg, apiKey)
		if err != nil {
			return nil, err
		}
	}

	result.JobConfig = cfg

	paths, err := job.NewLaunchPaths(m.fsys, cfg, m.homeDir, m.goos)
	if err != nil {
		return nil, err
	}

	if err = m.materialize(paths, cfg, result.Model, apiKey); err != nil {
		return nil, err
	}

	result.AppConfig, err = m.writeBootstrap(paths, cfg)
	if err != nil {
		return nil, err
	}

	result.ClientPackage, err = m.buildPackage(ctx, paths, clientBuild(paths))
	if err != nil {
		return nil, err
	}

	if cfg.ServerJob != nil {
		result.ServerPackage, err = m.buildPackage(ctx, paths, serverBuild(paths))
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// resolveDocument checks the document exists and anchors a bare file name to the working folder.
func (m *Manager) resolveDocument(documentPath string) (string, error) {
	if documentPath == "" {
		return "", fmt.Errorf("%w: job description path is empty", job.ErrMissingInput)
	}

	exists, err := afero.Exists(m.fsys, documentPath)
	if err != nil || !exists {
		return "", fmt.Errorf("%w: %s can not be found, specify the full path of the job yaml file",
			job.ErrMissingInput, documentPath)
	}

	if filepath.Dir(documentPath) != "." || filepath.IsAbs(documentPath) {
		return documentPath, nil
	}

	wd, err := m.getwd()
	if err != nil {
		return "", fmt.Errorf("%w: working folder: %w", job.ErrFilesystem, err)
	}

	return filepath.Join(wd, documentPath), nil
}
