package launcher

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/oshokin/mlops-launch/internal/domain/job"
	"github.com/oshokin/mlops-launch/internal/yamldoc"
)

const (
	tokenPrefix = "FEDML@"
	tokenKey    = "FEDML@9999GREAT"
)

// materialize writes the entry files and the app config. Easy mode always
// rewrites them; expert mode only fills in missing files.
func (m *Manager) materialize(
	paths *job.LaunchPaths,
	cfg *job.JobConfig,
	model *job.ModelUploadResult,
	apiKey string,
) error {
	if cfg.UsingEasyMode || !m.exists(paths.SourceFullPath) {
		contents := ""
		if cfg.UsingEasyMode {
			contents = cfg.ExecutableCommands
		}

		if err := m.writeFile(paths.SourceFullPath, contents, scriptPermissions); err != nil {
			return err
		}
	}

	if cfg.ServerJob != nil && (cfg.UsingEasyMode || !m.exists(paths.ServerSourceFullPath)) {
		contents := ""
		if cfg.UsingEasyMode {
			contents = *cfg.ServerJob
		}

		if err := m.writeFile(paths.ServerSourceFullPath, contents, scriptPermissions); err != nil {
			return err
		}
	}

	if cfg.UsingEasyMode || !m.exists(paths.ConfigFullPath) {
		if err := yamldoc.Write(m.fsys, appConfig(model, apiKey), paths.ConfigFullPath); err != nil {
			return fmt.Errorf("%w: write config %s: %w", job.ErrFilesystem, paths.ConfigFullPath, err)
		}
	}

	return nil
}

// writeBootstrap points the config at the bootstrap file and writes the bootstrap commands.
// The returned document also carries the raw job document under job_yaml.
func (m *Manager) writeBootstrap(paths *job.LaunchPaths, cfg *job.JobConfig) (yamldoc.Document, error) {
	loaded, err := yamldoc.Load(m.fsys, paths.ConfigFullPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load config %s: %w", job.ErrInvalidDocument, paths.ConfigFullPath, err)
	}

	configured, err := yamldoc.Merge(loaded, yamldoc.Nested(job.BootstrapFileName, job.EnvSectionKey, job.BootstrapKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", job.ErrInvalidDocument, err)
	}

	if err = yamldoc.Write(m.fsys, configured, paths.ConfigFullPath); err != nil {
		return nil, fmt.Errorf("%w: write config %s: %w", job.ErrFilesystem, paths.ConfigFullPath, err)
	}

	if err = m.writeFile(paths.BootstrapFullPath, cfg.Bootstrap, scriptPermissions); err != nil {
		return nil, err
	}

	withJob, err := yamldoc.Merge(configured, yamldoc.Document{job.JobDocumentKey: map[string]any(cfg.Document)})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", job.ErrInvalidDocument, err)
	}

	return withJob, nil
}

// appConfig builds the minimal app config, with the serving block after a model flow.
func appConfig(model *job.ModelUploadResult, apiKey string) yamldoc.Document {
	doc := yamldoc.Nested(job.BootstrapFileName, job.EnvSectionKey, job.BootstrapKey)
	if model == nil {
		return doc
	}

	doc[job.ServingSectionKey] = map[string]any{
		"model_id":          model.ModelID,
		"model_name":        model.ModelName,
		"model_version":     model.ModelVersion,
		"model_storage_url": model.ModelStorageURL,
		"endpoint_name":     model.EndpointName,
		"endpoint_id":       model.EndpointID,
		"random":            RandomToken(tokenPrefix+apiKey, tokenKey),
	}

	return doc
}

// RandomToken derives the serving token: message XOR the cycled key, hex encoded.
// It is deterministic for a given message and key. The platform decodes the
// serving_args.random value with the same key, so this format is its contract
// and must not change on this side alone.
func RandomToken(message, key string) string {
	if key == "" {
		return hex.EncodeToString([]byte(message))
	}

	out := make([]byte, len(message))
	for i := range len(message) {
		out[i] = message[i] ^ key[i%len(key)]
	}

	return hex.EncodeToString(out)
}

func (m *Manager) exists(path string) bool {
	ok, err := afero.Exists(m.fsys, path)

	return err == nil && ok
}

func (m *Manager) writeFile(path, contents string, perm os.FileMode) error {
	if err := afero.WriteFile(m.fsys, path, []byte(contents), perm); err != nil {
		return fmt.Errorf("%w: write %s: %w", job.ErrFilesystem, path, err)
	}

	return nil
}
