package job

const (
	// DefaultInterpreter runs inline job text in easy mode.
	DefaultInterpreter = "bash"

	// DefaultJobFolderName is the folder created next to the job document when no workspace is usable.
	DefaultJobFolderName = "fedml_launch_job"
	// DefaultConfFolderName holds the generated config inside the job folder.
	DefaultConfFolderName = "config"
	// DefaultEntryName is the generated client entry script.
	DefaultEntryName = "fedml_job_entry_pack.sh"
	// DefaultServerEntryName is the generated server aggregation script.
	DefaultServerEntryName = "fedml_server_job_entry_pack.sh"
	// DefaultConfName is the generated config document.
	DefaultConfName = "fedml_job_entry_pack.yaml"

	// AppNameSuffix is appended to the workspace name to form the application name.
	AppNameSuffix = "FedMLLaunchApp"
	// EndpointNamePrefix prefixes generated endpoint names.
	EndpointNamePrefix = "Endpoint-"

	// BootstrapFileName is the bootstrap script referenced from the config.
	BootstrapFileName = "bootstrap.sh"
	// LaunchTempDir is the folder under the fedml home that receives packages.
	LaunchTempDir = "launch"
	// DistPackagesDir is the folder under the destination holding built archives.
	DistPackagesDir = "dist-packages"
	// ModelConfigFileName must exist in a workspace before a model can be uploaded.
	ModelConfigFileName = "fedml_model_config.yaml"

	// TaskTypeTrain is the default task type.
	TaskTypeTrain = "train"
	// TaskTypeDeploy and TaskTypeServe trigger the model registration flow.
	TaskTypeDeploy = "deploy"
	TaskTypeServe  = "serve"

	// FrameworkTypeGeneral is the default framework type.
	FrameworkTypeGeneral = "general"
	// DeviceTypeGPU is the default device type.
	DeviceTypeGPU = "gpu"
	// DefaultMaxCostPerHour is used when the computing section omits a cost cap.
	DefaultMaxCostPerHour = "$0"

	// EnvSectionKey and BootstrapKey locate the bootstrap reference in the config.
	EnvSectionKey = "environment_args"
	BootstrapKey  = "bootstrap"
	// ServingSectionKey holds the model and endpoint block.
	ServingSectionKey = "serving_args"
	// JobDocumentKey carries the raw job document in the returned app config.
	JobDocumentKey = "job_yaml"
)

const (
	osWindows            = "windows"
	shellScriptExtension = ".sh"
	batchScriptExtension = ".bat"
)

// Platforms accepted by the packaging step.
//
//nolint:gochecknoglobals // Read-only lookup table.
var validPlatforms = map[string]struct{}{
	"octopus": {},
	"parrot":  {},
	"spider":  {},
	"beehive": {},
	"falcon":  {},
	"cheetah": {},
	"launch":  {},
}

// IsValidPlatform reports whether the platform string names a supported target.
func IsValidPlatform(platform string) bool {
	_, ok := validPlatforms[platform]

	return ok
}

// IsModelTask reports whether the task type needs a registered model and endpoint.
func IsModelTask(taskType string) bool {
	return taskType == TaskTypeDeploy || taskType == TaskTypeServe
}
