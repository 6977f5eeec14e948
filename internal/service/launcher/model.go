package launcher

import (
	"context"
	"fmt"

	"github.com/oshokin/mlops-launch/internal/domain/job"
	"github.com/oshokin/mlops-launch/internal/logger"
	"github.com/oshokin/mlops-launch/internal/service/registry"
)

// prepareModel resolves or uploads the model of a deploy or serve job and
// applies for its endpoint. It returns the re-parsed job configuration.
func (m *Manager) prepareModel(
	ctx context.Context,
	documentPath string,
	cfg *job.JobConfig,
	apiKey string,
) (*job.JobConfig, *job.ModelUploadResult, error) {
	if m.models == nil || m.endpoints == nil {
		return nil, nil, errRegistryRequired
	}

	modelName := cfg.ModelAppName

	ctx = logger.WithFields(ctx, "model_name", modelName)

	models, err := m.models.CheckModelExists(ctx, modelName, apiKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: check model: %w", job.ErrRemoteFailure, err)
	}

	var result *job.ModelUploadResult

	if models.Empty() {
		result, models, err = m.uploadModel(ctx, cfg, modelName, apiKey)
		if err != nil {
			return nil, nil, err
		}
	} else {
		logger.Info(ctx, "Model already registered")

		result = &job.ModelUploadResult{
			ModelName:       modelName,
			ModelStorageURL: cfg.ServingModelStorageURL,
		}
	}

	model, _ := models.First()
	result.ModelID = model.ID.String()
	result.ModelVersion = model.ModelVersion.String()
	result.EndpointName = cfg.ServingEndpointName

	reparsed, err := job.NewJobConfig(m.fsys, documentPath, job.Options{
		IgnoreWorkspace: true,
		EndpointName:    cfg.ServingEndpointName,
	})
	if err != nil {
		return nil, nil, err
	}

	reparsed.ModelAppName = modelName

	endpointID, err := m.endpoints.ApplyEndpointID(ctx, apiKey,
		reparsed.ServingEndpointName, model.ID.String(), model.ModelName, model.ModelVersion.String())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: apply endpoint for the model: %w", job.ErrRemoteFailure, err)
	}

	if endpointID == "" {
		return nil, nil, fmt.Errorf("%w: no endpoint id for %s", job.ErrRemoteFailure, reparsed.ServingEndpointName)
	}

	logger.InfoKV(ctx, "Endpoint applied", "endpoint_name", reparsed.ServingEndpointName, "endpoint_id", endpointID)

	reparsed.ServingEndpointID = endpointID
	result.EndpointID = endpointID

	return reparsed, result, nil
}

// uploadModel uploads the workspace as a new model and reads back its id and version.
func (m *Manager) uploadModel(
	ctx context.Context,
	cfg *job.JobConfig,
	modelName, apiKey string,
) (*job.ModelUploadResult, *registry.ModelList, error) {
	if !m.models.CheckModelPackage(cfg.Workspace) {
		return nil, nil, fmt.Errorf("%w: make sure %s exists in your workspace %s",
			job.ErrMissingInput, job.ModelConfigFileName, cfg.Workspace)
	}

	logger.InfoKV(ctx, "Uploading the model package", "workspace", cfg.Workspace)

	result, err := m.models.UpdateModel(ctx, modelName, cfg.Workspace, apiKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: upload the model package: %w", job.ErrRemoteFailure, err)
	}

	if result == nil {
		return nil, nil, fmt.Errorf("%w: upload returned no model", job.ErrRemoteFailure)
	}

	models, err := m.models.CheckModelExists(ctx, modelName, apiKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: check the uploaded model: %w", job.ErrRemoteFailure, err)
	}

	if models.Empty() {
		return nil, nil, fmt.Errorf("%w: the uploaded model %s is not listed", job.ErrRemoteFailure, modelName)
	}

	return result, models, nil
}
