package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Credentials is the stored API key with the moment it was saved.
type Credentials struct {
	APIKey  string    `yaml:"api_key"`
	SavedAt time.Time `yaml:"saved_at,omitempty"`
}

// Repository defines persistence operations for credentials.
type Repository interface {
	Load(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, creds *Credentials) error
}

// FileRepository persists credentials to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the credentials file.
	path string
	// mu protects concurrent access to the credentials file.
	mu sync.Mutex
}

const (
	// APIKeyEnvVar overrides the stored API key when set.
	APIKeyEnvVar = "MLOPS_API_KEY"

	filePermissions = 0o600
	dirPermissions  = 0o700
)

var (
	// ErrNotFound is returned when no credentials are stored yet.
	ErrNotFound = errors.New("credentials not found")
	// errEmptyAPIKey is returned when saving a blank key.
	errEmptyAPIKey = errors.New("api key is empty")
)

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the credentials file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the credentials from disk.
func (r *FileRepository) Load(_ context.Context) (*Credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var creds Credentials
	if err = yaml.Unmarshal(contents, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials file: %w", err)
	}

	if strings.TrimSpace(creds.APIKey) == "" {
		return nil, ErrNotFound
	}

	return &creds, nil
}

// Save writes the credentials to disk, readable by the owner only.
func (r *FileRepository) Save(_ context.Context, creds *Credentials) error {
	if creds == nil || strings.TrimSpace(creds.APIKey) == "" {
		return errEmptyAPIKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), dirPermissions); err != nil {
		return fmt.Errorf("create credentials folder: %w", err)
	}

	if err = os.WriteFile(r.path, data, filePermissions); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}

	return nil
}
