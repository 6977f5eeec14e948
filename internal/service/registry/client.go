package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/oshokin/mlops-launch/internal/domain/job"
	"github.com/oshokin/mlops-launch/internal/logger"
	"github.com/oshokin/mlops-launch/internal/service/common"
	"github.com/oshokin/mlops-launch/internal/service/packager"
)

const (
	modelListPath     = "fedmlModelServer/api/v1/model/list"
	modelUploadPath   = "fedmlModelServer/api/v1/model/upload"
	endpointApplyPath = "fedmlModelServer/api/v1/endpoint/apply"
)

var errNoEndpointID = errors.New("endpoint id is empty")

// Client calls the model and endpoint registries.
type Client struct {
	api  *common.Client
	fsys afero.Fs
}

// Option customizes a Client.
type Option func(*Client)

// WithFs replaces the filesystem used to inspect workspaces.
func WithFs(fsys afero.Fs) Option {
	return func(c *Client) {
		c.fsys = fsys
	}
}

// NewClient wraps an MLOps API client.
func NewClient(api *common.Client, opts ...Option) *Client {
	client := &Client{
		api:  api,
		fsys: afero.NewOsFs(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

type modelListRequest struct {
	ModelName string `json:"model_name"`
}

type uploadResponse struct {
	ModelStorageURL string `json:"model_storage_url"`
}

type endpointRequest struct {
	EndpointName string `json:"endpoint_name"`
	ModelID      string `json:"model_id"`
	ModelName    string `json:"model_name"`
	ModelVersion string `json:"model_version"`
}

type endpointResponse struct {
	EndpointID ID `json:"endpoint_id"`
}

// CheckModelExists lists the models registered under name.
// An empty list means the model does not exist yet.
func (c *Client) CheckModelExists(ctx context.Context, name, apiKey string) (*ModelList, error) {
	list := new(ModelList)
	if err := c.api.PostJSON(ctx, modelListPath, apiKey, modelListRequest{ModelName: name}, list); err != nil {
		return nil, fmt.Errorf("list models %q: %w", name, err)
	}

	logger.DebugKV(ctx, "Listed models", "model_name", name, "found", len(list.Models))

	return list, nil
}

// CheckModelPackage reports whether workspace holds the model config file.
func (c *Client) CheckModelPackage(workspace string) bool {
	ok, err := afero.Exists(c.fsys, filepath.Join(workspace, job.ModelConfigFileName))

	return err == nil && ok
}

// UpdateModel zips workspace and uploads it as a new version of the named model.
// The result carries the model name and storage URL; the id and version are
// assigned by the registry and read back with CheckModelExists.
func (c *Client) UpdateModel(ctx context.Context, name, workspace, apiKey string) (*job.ModelUploadResult, error) {
	matcher, err := packager.ReadIgnoreMatcher(workspace, packager.PreIgnoreList)
	if err != nil {
		return nil, err
	}

	var archive bytes.Buffer
	if err = packager.ZipDir(ctx, workspace, &archive, matcher); err != nil {
		return nil, fmt.Errorf("pack model workspace: %w", err)
	}

	logger.InfoKV(ctx, "Uploading model package", "model_name", name, "bytes", archive.Len())

	var reply uploadResponse

	err = c.api.PostMultipart(ctx, modelUploadPath, apiKey,
		map[string]string{"model_name": name},
		&common.FilePart{Field: "file", Name: name + ".zip", Contents: &archive},
		&reply)
	if err != nil {
		return nil, fmt.Errorf("upload model %q: %w", name, err)
	}

	return &job.ModelUploadResult{
		ModelName:       name,
		ModelStorageURL: reply.ModelStorageURL,
	}, nil
}

// ApplyEndpointID requests the endpoint id for a model deployment.
func (c *Client) ApplyEndpointID(
	ctx context.Context,
	apiKey, endpointName, modelID, modelName, modelVersion string,
) (string, error) {
	request := endpointRequest{
		EndpointName: endpointName,
		ModelID:      modelID,
		ModelName:    modelName,
		ModelVersion: modelVersion,
	}

	var reply endpointResponse
	if err := c.api.PostJSON(ctx, endpointApplyPath, apiKey, request, &reply); err != nil {
		return "", fmt.Errorf("apply endpoint %q: %w", endpointName, err)
	}

	if reply.EndpointID == "" {
		return "", fmt.Errorf("apply endpoint %q: %w", endpointName, errNoEndpointID)
	}

	return reply.EndpointID.String(), nil
}
