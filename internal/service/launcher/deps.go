package launcher

import (
	"context"

	"github.com/oshokin/mlops-launch/internal/domain/job"
	"github.com/oshokin/mlops-launch/internal/service/registry"
)

// CredentialStore returns the API key used for remote calls.
type CredentialStore interface {
	GetAPIKey(ctx context.Context) (string, error)
}

// VersionChecker reports or applies newer releases of the launcher.
type VersionChecker interface {
	UpgradeIfNotLatest(ctx context.Context) error
}

// ModelRegistry looks up and uploads models.
type ModelRegistry interface {
	CheckModelExists(ctx context.Context, name, apiKey string) (*registry.ModelList, error)
	CheckModelPackage(workspace string) bool
	UpdateModel(ctx context.Context, name, workspace, apiKey string) (*job.ModelUploadResult, error)
}

// EndpointRegistry assigns endpoint ids to model deployments.
type EndpointRegistry interface {
	ApplyEndpointID(ctx context.Context, apiKey, endpointName, modelID, modelName, modelVersion string) (string, error)
}

// noopChecker is used when no version checker is configured.
type noopChecker struct{}

func (noopChecker) UpgradeIfNotLatest(context.Context) error { return nil }
