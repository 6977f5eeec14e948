package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the launcher settings.
type Config struct {
	// FedMLHome is the local folder holding credentials, launch output and build scratch space.
	FedMLHome string `yaml:"fedml_home"`
	// APIURL is the base URL of the MLOps API.
	APIURL string `yaml:"api_url"`
	// Platform is the target platform of the built packages.
	Platform string `yaml:"platform"`
	// Timeout bounds every remote call.
	Timeout time.Duration `yaml:"timeout"`
	// VersionURL points at the release manifest. Empty disables the version check.
	VersionURL string `yaml:"version_url,omitempty"`
	// SelfUpdate replaces the running binary when a newer release is published.
	SelfUpdate bool `yaml:"self_update,omitempty"`
	// PackageCommand is an external packaging command used instead of the built-in zip builder.
	PackageCommand string `yaml:"package_command,omitempty"`
	// TemplateDir overrides the embedded packaging template tree.
	TemplateDir string `yaml:"template_dir,omitempty"`
	// Ignore lists patterns excluded from the packaged source tree.
	Ignore []string `yaml:"ignore,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for launcher settings.
	DefaultConfigFilename = "mlops-launch-settings.yaml"

	// DefaultHomeFolderName is created in the user's home directory.
	DefaultHomeFolderName = ".fedml"

	// DefaultAPIURL is the public MLOps endpoint.
	DefaultAPIURL = "https://open.fedml.ai"

	// DefaultPlatform is used when no platform is configured.
	DefaultPlatform = "falcon"

	// DefaultTimeout is the default duration for remote calls.
	DefaultTimeout = 30 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	buildFolderName       = "fedml-mlops-build"
	credentialsFilename   = "credentials.yaml"
	defaultDirPermissions = 0o755
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errAPIURLScheme is returned when the API URL is not http(s).
	errAPIURLScheme = errors.New("api url must use http or https")
)

// Default returns settings with every default applied.
func Default() *Config {
	cfg := new(Config)
	applyDefaults(cfg)

	return cfg
}

// Load reads settings from the provided path and validates them.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err = os.MkdirAll(dir, defaultDirPermissions); err != nil {
			return fmt.Errorf("create settings folder: %w", err)
		}
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks URLs. The platform is checked when packages are built.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	applyDefaults(settings)

	if err := checkURL(settings.APIURL); err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}

	if settings.VersionURL == "" {
		return nil
	}

	if err := checkURL(settings.VersionURL); err != nil {
		return fmt.Errorf("invalid version url: %w", err)
	}

	return nil
}

// BuildDir is the scratch folder the packaging builder works in.
func (c *Config) BuildDir() string {
	return filepath.Join(c.FedMLHome, buildFolderName)
}

// CredentialsPath is the location of the stored API key.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.FedMLHome, credentialsFilename)
}

func applyDefaults(settings *Config) {
	if settings.FedMLHome == "" {
		settings.FedMLHome = defaultHome()
	}

	if settings.APIURL == "" {
		settings.APIURL = DefaultAPIURL
	}

	if settings.Platform == "" {
		settings.Platform = DefaultPlatform
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultHomeFolderName
	}

	return filepath.Join(home, DefaultHomeFolderName)
}

func checkURL(raw string) error {
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errAPIURLScheme
	}

	return nil
}
