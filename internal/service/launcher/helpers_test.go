package launcher

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mlops-launch/internal/domain/job"
	"github.com/oshokin/mlops-launch/internal/repository/credentials"
	"github.com/oshokin/mlops-launch/internal/service/registry"
)

const testAPIKey = "test-api-key"

type staticCredentials struct {
	key string
}

func (c staticCredentials) GetAPIKey(context.Context) (string, error) {
	if c.key == "" {
		return "", credentials.ErrNotFound
	}

	return c.key, nil
}

type countingChecker struct {
	calls int
	err   error
}

func (c *countingChecker) UpgradeIfNotLatest(context.Context) error {
	c.calls++

	return c.err
}

// fakeRegistry serves model lists in order and records uploads and endpoint applications.
type fakeRegistry struct {
	mu         sync.Mutex
	lists      []*registry.ModelList
	listErr    error
	hasPackage bool
	uploadErr  error
	uploads    []string
	endpoint   string
	applied    []string
}

func (r *fakeRegistry) CheckModelExists(_ context.Context, _, _ string) (*registry.ModelList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listErr != nil {
		return nil, r.listErr
	}

	if len(r.lists) == 0 {
		return &registry.ModelList{}, nil
	}

	list := r.lists[0]
	if len(r.lists) > 1 {
		r.lists = r.lists[1:]
	}

	return list, nil
}

func (r *fakeRegistry) CheckModelPackage(string) bool {
	return r.hasPackage
}

func (r *fakeRegistry) UpdateModel(_ context.Context, name, workspace, _ string) (*job.ModelUploadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.uploadErr != nil {
		return nil, r.uploadErr
	}

	r.uploads = append(r.uploads, workspace)

	return &job.ModelUploadResult{ModelName: name, ModelStorageURL: "s3://models/" + name}, nil
}

func (r *fakeRegistry) ApplyEndpointID(_ context.Context, _, endpointName, modelID, _, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.applied = append(r.applied, endpointName+"/"+modelID)

	return r.endpoint, nil
}

// writeJob writes a job document into a fresh folder and returns its path.
func writeJob(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

// readZipNames returns the archive's file names, directories excluded.
func readZipNames(t *testing.T, path string) []string {
	t.Helper()

	reader, err := zip.OpenReader(path)
	require.NoError(t, err)

	defer reader.Close()

	var names []string

	for _, file := range reader.File {
		if !file.FileInfo().IsDir() {
			names = append(names, file.Name)
		}
	}

	sort.Strings(names)

	return names
}

// readZipFile returns one file of the archive.
func readZipFile(t *testing.T, path, name string) string {
	t.Helper()

	reader, err := zip.OpenReader(path)
	require.NoError(t, err)

	defer reader.Close()

	rc, err := reader.Open(name)
	require.NoError(t, err)

	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	return string(data)
}
