package job

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/oshokin/mlops-launch/internal/yamldoc"
)

// JobConfig is the normalized view of a job description document.
type JobConfig struct {
	// Document is the raw parsed job description.
	Document yamldoc.Document
	// DocumentPath is the absolute path the document was read from.
	DocumentPath string
	// BaseDir is the folder containing the job document.
	BaseDir string
	// ProjectName comes from fedml_env.project_name and is informational only.
	ProjectName string

	// UsingEasyMode is true unless the document has an expert_mode section.
	UsingEasyMode bool
	// ExecutableInterpreter runs the entry file.
	ExecutableInterpreter string
	// ExecutableCommands is the inline job text written into the entry file in easy mode.
	ExecutableCommands string
	// Bootstrap holds the bootstrap command lines.
	Bootstrap string

	ExecutableFile           string
	ExecutableFileFolder     string
	ExecutableConfFile       string
	ExecutableConfFileFolder string
	ExecutableConfOption     string
	ExecutableArgs           string
	DataLocation             string

	// ServerExecutableFile is always DefaultServerEntryName.
	ServerExecutableFile string
	// ServerJob is nil unless the document declares server_job.
	ServerJob *string

	MinimumNumGPUs     int
	MaximumCostPerHour string
	DeviceType         string
	ResourceType       string
	TaskType           string
	FrameworkType      string

	ServingModelName       string
	ServingModelVersion    string
	ServingModelStorageURL string
	ServingEndpointName    string
	// ServingEndpointID stays empty until the endpoint registry assigns one.
	ServingEndpointID string

	// Workspace is the resolved executable folder.
	Workspace string
	// ApplicationName is "<workspace base name>_FedMLLaunchApp".
	ApplicationName string
	// ModelAppName is the model name used with the registry.
	ModelAppName string
}

// Options tunes JobConfig construction.
type Options struct {
	// IgnoreWorkspace skips the workspace key when resolving the executable folder,
	// so the default job folder is used unless expert mode names one.
	IgnoreWorkspace bool
	// EndpointName is used when the document has no serving_args.endpoint_name.
	// An empty value generates a fresh unique name.
	EndpointName string
}

// NewJobConfig parses the document at documentPath and applies defaults.
// The executable folder and the config folder exist once it returns.
func NewJobConfig(fsys afero.Fs, documentPath string, opts Options) (*JobConfig, error) {
	resolved, err := absolute(documentPath)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", ErrMissingInput, documentPath, err)
	}

	doc, err := yamldoc.Load(fsys, resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrMissingInput, resolved, err)
		}

		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, resolved, err)
	}

	cfg := &JobConfig{
		Document:              doc,
		DocumentPath:          resolved,
		BaseDir:               filepath.Dir(resolved),
		ProjectName:           doc.String("fedml_env", "project_name"),
		UsingEasyMode:         true,
		ExecutableInterpreter: DefaultInterpreter,
		ExecutableCommands:    doc.String("job"),
		Bootstrap:             doc.String("bootstrap"),
		ServerExecutableFile:  DefaultServerEntryName,
	}

	workspace := doc.String("workspace")
	if !opts.IgnoreWorkspace && workspace != "" {
		cfg.ExecutableFileFolder = joinBase(cfg.BaseDir, NormalizeSeparators(workspace))
	}

	if doc.Has("server_job") {
		serverJob := doc.String("server_job")
		cfg.ServerJob = &serverJob
	}

	if expert := doc.Section("expert_mode"); expert != nil {
		cfg.applyExpertMode(expert)
	}

	if err = cfg.resolveFolders(fsys); err != nil {
		return nil, err
	}

	cfg.applyComputing(doc)
	cfg.applyServing(doc, opts.EndpointName)

	cfg.Workspace = cfg.ExecutableFileFolder

	appSource := workspace
	if appSource == "" {
		appSource = cfg.ExecutableFileFolder
	}

	cfg.ApplicationName = ApplicationName(appSource)

	cfg.ModelAppName = cfg.ApplicationName
	if cfg.ServingModelName != "" {
		cfg.ModelAppName = cfg.ServingModelName
	}

	return cfg, nil
}

// ApplicationName derives the application name from a workspace path.
// Trailing separators of either style are ignored.
func ApplicationName(workspace string) string {
	trimmed := strings.TrimRight(NormalizeSeparators(workspace), string(os.PathSeparator))

	return fmt.Sprintf("%s_%s", filepath.Base(trimmed), AppNameSuffix)
}

// applyExpertMode switches to expert mode and takes the executable fields verbatim.
func (c *JobConfig) applyExpertMode(expert yamldoc.Document) {
	c.UsingEasyMode = false
	c.ExecutableInterpreter = expert.String("executable_interpreter")
	c.ExecutableCommands = ""
	c.Bootstrap = expert.String("bootstrap")
	c.ExecutableFileFolder = NormalizeSeparators(expert.String("executable_file_folder"))
	c.ExecutableFile = NormalizeSeparators(expert.String("executable_file"))
	c.ExecutableConfOption = expert.String("executable_conf_option")
	c.ExecutableConfFileFolder = NormalizeSeparators(expert.String("executable_conf_file_folder"))
	c.ExecutableConfFile = NormalizeSeparators(expert.String("executable_conf_file"))
	c.ExecutableArgs = expert.String("executable_args")
	c.DataLocation = expert.String("data_location")
}

// resolveFolders fills the executable and config locations and creates both folders.
func (c *JobConfig) resolveFolders(fsys afero.Fs) error {
	exists := existsIn(fsys)
	defaultJobDir := filepath.Join(c.BaseDir, DefaultJobFolderName)
	defaultConfDir := filepath.Join(defaultJobDir, DefaultConfFolderName)

	folder := ResolvePath(exists, c.ExecutableFileFolder, c.BaseDir, defaultJobDir)

	folder, err := absolute(NormalizeSeparators(folder))
	if err != nil {
		return fmt.Errorf("%w: resolve executable folder: %w", ErrFilesystem, err)
	}

	if err = fsys.MkdirAll(folder, os.ModePerm); err != nil {
		return fmt.Errorf("%w: create executable folder %s: %w", ErrFilesystem, folder, err)
	}

	c.ExecutableFileFolder = folder
	if c.ExecutableFile == "" {
		c.ExecutableFile = DefaultEntryName
	}

	confDefault := defaultConfDir
	if exists(folder) {
		confDefault = filepath.Join(folder, DefaultConfFolderName)
	}

	confFolder := ResolvePath(exists, c.ExecutableConfFileFolder, c.BaseDir, confDefault)

	confFolder, err = absolute(NormalizeSeparators(confFolder))
	if err != nil {
		return fmt.Errorf("%w: resolve config folder: %w", ErrFilesystem, err)
	}

	if err = fsys.MkdirAll(confFolder, os.ModePerm); err != nil {
		return fmt.Errorf("%w: create config folder %s: %w", ErrFilesystem, confFolder, err)
	}

	c.ExecutableConfFileFolder = confFolder
	if c.ExecutableConfFile == "" {
		c.ExecutableConfFile = DefaultConfName
	}

	c.ExecutableFile = NormalizeSeparators(c.ExecutableFile)
	c.ExecutableConfFile = NormalizeSeparators(c.ExecutableConfFile)

	return nil
}

// applyComputing reads compute requirements and task metadata with their defaults.
func (c *JobConfig) applyComputing(doc yamldoc.Document) {
	c.MinimumNumGPUs = doc.Int(0, "computing", "minimum_num_gpus")
	c.MaximumCostPerHour = doc.StringOr(DefaultMaxCostPerHour, "computing", "maximum_cost_per_hour")
	c.DeviceType = doc.StringOr(DeviceTypeGPU, "computing", "device_type")
	c.ResourceType = doc.String("computing", "resource_type")

	c.TaskType = doc.String("task_type")
	if c.TaskType == "" {
		c.TaskType = doc.StringOr(TaskTypeTrain, "job_type")
	}

	c.FrameworkType = doc.StringOr(FrameworkTypeGeneral, "framework_type")
}

// applyServing reads serving_args and generates an endpoint name when none is given.
func (c *JobConfig) applyServing(doc yamldoc.Document, fallbackEndpoint string) {
	c.ServingModelName = doc.String(ServingSectionKey, "model_name")
	c.ServingModelVersion = doc.String(ServingSectionKey, "model_version")
	c.ServingModelStorageURL = doc.String(ServingSectionKey, "model_storage_url")

	c.ServingEndpointName = doc.String(ServingSectionKey, "endpoint_name")
	if c.ServingEndpointName == "" {
		c.ServingEndpointName = fallbackEndpoint
	}

	if c.ServingEndpointName == "" {
		c.ServingEndpointName = EndpointNamePrefix + uuid.NewString()
	}
}
