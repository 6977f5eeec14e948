package updater

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	goupdate "github.com/doitdistributed/go-update"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/mlops-launch/internal/logger"
	"github.com/oshokin/mlops-launch/internal/version"
)

// Release is the published release manifest.
type Release struct {
	// Version is the semantic version of the release.
	Version string `yaml:"version"`
	// URL points at the binary for this platform, absolute or relative to the manifest.
	URL string `yaml:"url"`
	// Checksum is the SHA-512 digest of the binary, hex or base64 encoded.
	Checksum string `yaml:"checksum"`
}

// Checker compares the running version against the release manifest.
type Checker struct {
	manifestURL    string
	selfUpdate     bool
	currentVersion string
	// targetPath is the binary replaced by a self-update; empty means the running executable.
	targetPath string
	httpClient *http.Client
}

// Option customizes a Checker.
type Option func(*Checker)

// WithSelfUpdate enables replacing the binary when a newer release exists.
func WithSelfUpdate(enabled bool) Option {
	return func(c *Checker) {
		c.selfUpdate = enabled
	}
}

// WithCurrentVersion overrides the version compared against the manifest.
func WithCurrentVersion(current string) Option {
	return func(c *Checker) {
		c.currentVersion = current
	}
}

// WithTargetPath sets the binary replaced by a self-update.
func WithTargetPath(path string) Option {
	return func(c *Checker) {
		c.targetPath = path
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Checker) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

const (
	// DefaultFileMode is applied to a replaced binary.
	DefaultFileMode os.FileMode = 0o755

	maxManifestSize = 64 << 10
)

var (
	errBadHTTPStatus   = errors.New("unexpected http status")
	errEmptyReleaseURL = errors.New("release url is empty")
)

// NewChecker creates a checker for the manifest at manifestURL.
// An empty manifestURL disables the check.
func NewChecker(manifestURL string, opts ...Option) *Checker {
	checker := &Checker{
		manifestURL:    manifestURL,
		currentVersion: version.Short(),
		httpClient:     http.DefaultClient,
	}

	for _, opt := range opts {
		opt(checker)
	}

	return checker
}

// UpgradeIfNotLatest warns about a newer release and applies it when self-update is on.
func (c *Checker) UpgradeIfNotLatest(ctx context.Context) error {
	if c.manifestURL == "" {
		logger.Debug(ctx, "Version check disabled")

		return nil
	}

	release, err := c.fetchRelease(ctx)
	if err != nil {
		return fmt.Errorf("fetch release manifest: %w", err)
	}

	if !version.IsNewer(release.Version, c.currentVersion) {
		logger.DebugKV(ctx, "Running the latest version", "version", c.currentVersion)

		return nil
	}

	if !c.selfUpdate {
		logger.WarnKV(ctx, "A newer mlops-launch release is available",
			"current", c.currentVersion, "latest", release.Version)

		return nil
	}

	logger.InfoKV(ctx, "Updating mlops-launch", "from", c.currentVersion, "to", release.Version)

	if err = c.apply(ctx, release); err != nil {
		return fmt.Errorf("apply release %s: %w", release.Version, err)
	}

	logger.InfoKV(ctx, "Updated mlops-launch, the new version is used from the next run",
		"version", release.Version)

	return nil
}

func (c *Checker) fetchRelease(ctx context.Context) (*Release, error) {
	body, err := c.get(ctx, c.manifestURL)
	if err != nil {
		return nil, err
	}

	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxManifestSize))
	if err != nil {
		return nil, err
	}

	var release Release
	if err = yaml.Unmarshal(data, &release); err != nil {
		return nil, fmt.Errorf("decode release manifest: %w", err)
	}

	return &release, nil
}

// apply downloads the release binary and swaps it in with go-update.
func (c *Checker) apply(ctx context.Context, release *Release) error {
	if release.URL == "" {
		return errEmptyReleaseURL
	}

	checksum, err := decodeChecksum(release.Checksum)
	if err != nil {
		return err
	}

	target := c.targetPath
	if target == "" {
		if target, err = os.Executable(); err != nil {
			return fmt.Errorf("locate running binary: %w", err)
		}
	}

	if current, sumErr := GetFileChecksum(target); sumErr == nil && bytes.Equal(current, checksum) {
		logger.InfoKV(ctx, "Release binary is already installed",
			"path", target, "checksum", EncodeChecksum(checksum))

		return nil
	}

	binaryURL, err := c.resolve(release.URL)
	if err != nil {
		return err
	}

	body, err := c.get(ctx, binaryURL)
	if err != nil {
		return err
	}

	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("download release: %w", err)
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: DefaultFileMode,
		Checksum:   checksum,
		Hash:       DefaultChecksumFunction,
	}

	return goupdate.Apply(bytes.NewReader(data), options)
}

// resolve makes a release URL absolute against the manifest URL.
func (c *Checker) resolve(ref string) (string, error) {
	base, err := url.Parse(c.manifestURL)
	if err != nil {
		return "", err
	}

	target, err := url.Parse(ref)
	if err != nil {
		return "", err
	}

	return base.ResolveReference(target).String(), nil
}

func (c *Checker) get(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()

		return nil, fmt.Errorf("%s, %s: %w", target, response.Status, errBadHTTPStatus)
	}

	return response.Body, nil
}
