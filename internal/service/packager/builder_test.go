package packager

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/mlops-launch/internal/domain/job"
	"github.com/oshokin/mlops-launch/internal/logger"
	"github.com/oshokin/mlops-launch/internal/yamldoc"
)

// newRequest prepares a source tree and a client build request for it.
func newRequest(t *testing.T) *BuildRequest {
	t.Helper()

	root := t.TempDir()
	source := filepath.Join(root, "job")

	writeTree(t, source, map[string]string{
		job.DefaultEntryName:                         "echo hi\n",
		job.BootstrapFileName:                        "pip install -r requirements.txt\n",
		"config/" + job.DefaultConfName:              "environment_args:\n  bootstrap: bootstrap.sh\n",
		"__pycache__/mod.pyc":                        "bytecode",
		"data/weights.bin":                           "weights",
		"secret.txt":                                 "token",
		IgnoreFilename:                               "secret.txt\n",
		"src/model.py":                               "print('model')\n",
		"src/__pycache__/model.cpython-311.pyc":      "bytecode",
		"dist-packages/client-package.zip":           "old",
		"notes/client-package.zip":                   "old",
		"config/__pycache__/ignored-config-file.pyc": "bytecode",
	})

	return &BuildRequest{
		Platform:         "falcon",
		IgnoreList:       []string{"data"},
		SourceFolder:     source,
		EntryPoint:       job.DefaultEntryName,
		ConfigFolder:     filepath.Join(source, "config"),
		ConfFile:         job.DefaultConfName,
		DestFolder:       filepath.Join(root, "launch"),
		BuildDir:         filepath.Join(root, "fedml-mlops-build"),
		PackageKind:      KindClient,
		PackageLabel:     LabelClient,
		IndexPlaceholder: ClientIndexPlaceholder,
	}
}

// TestZipBuilder_Build checks the archive layout, ignore handling and conf/fedml.yaml.
func TestZipBuilder_Build(t *testing.T) {
	t.Parallel()

	req := newRequest(t)

	// Leftovers from a previous build are wiped.
	writeTree(t, req.BuildDir, map[string]string{"fedml-client/stale.txt": "stale"})

	require.NoError(t, NewZipBuilder().Build(context.Background(), req))

	archive := filepath.Join(req.DestFolder, "dist-packages", "client-package.zip")
	require.Equal(t, archive, req.ArchivePath())
	require.FileExists(t, archive)
	require.NoFileExists(t, LockPath(req.BuildDir))

	names, contents := readZip(t, archive)
	require.Equal(t, []string{
		"conf/fedml.yaml",
		"fedml/" + IgnoreFilename,
		"fedml/" + job.BootstrapFileName,
		"fedml/config/" + job.DefaultConfName,
		"fedml/" + job.DefaultEntryName,
		"fedml/src/model.py",
	}, names)
	require.Equal(t, "echo hi\n", contents["fedml/"+job.DefaultEntryName])

	conf, err := yamldoc.Parse([]byte(contents["conf/fedml.yaml"]))
	require.NoError(t, err)
	require.Equal(t, job.DefaultEntryName, conf.String("entry_config", "entry_file"))
	require.Equal(t, "config/"+job.DefaultConfName, conf.String("entry_config", "conf_file"))
	require.Equal(t, ClientIndexPlaceholder, conf.String("dynamic_args", "rank"))
	require.Equal(t, "${FEDSYS.RUN_ID}", conf.String("dynamic_args", "run_id"))
}

// TestZipBuilder_ServerPackage uses the server template and rank.
func TestZipBuilder_ServerPackage(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	req.PackageKind = KindServer
	req.PackageLabel = LabelServer
	req.IndexPlaceholder = ServerIndexPlaceholder
	req.EntryPoint = job.DefaultServerEntryName

	require.NoError(t, NewZipBuilder().Build(context.Background(), req))

	_, contents := readZip(t, filepath.Join(req.DestFolder, "dist-packages", "server-package.zip"))

	conf, err := yamldoc.Parse([]byte(contents["conf/fedml.yaml"]))
	require.NoError(t, err)
	require.Equal(t, job.DefaultServerEntryName, conf.String("entry_config", "entry_file"))
	require.Equal(t, "0", conf.String("dynamic_args", "rank"))
}

// TestZipBuilder_TemplateDir reads the template tree from disk when configured.
func TestZipBuilder_TemplateDir(t *testing.T) {
	t.Parallel()

	templateDir := t.TempDir()
	writeTree(t, templateDir, map[string]string{
		"fedml-client/conf/fedml.yaml": "dynamic_args:\n  custom: yes-please\n",
		"fedml-client/README.md":       "custom template\n",
		"fedml-client/cache.pyc":       "bytecode",
	})

	req := newRequest(t)
	require.NoError(t, NewZipBuilder(WithTemplateDir(templateDir)).Build(context.Background(), req))

	names, contents := readZip(t, req.ArchivePath())
	require.Contains(t, names, "README.md")
	require.NotContains(t, names, "cache.pyc")

	conf, err := yamldoc.Parse([]byte(contents["conf/fedml.yaml"]))
	require.NoError(t, err)
	require.Equal(t, "yes-please", conf.String("dynamic_args", "custom"))
	require.Equal(t, ClientIndexPlaceholder, conf.String("dynamic_args", "rank"))
}

// TestZipBuilder_Rejects covers request validation and the build lock.
func TestZipBuilder_Rejects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	builder := NewZipBuilder()

	req := newRequest(t)
	req.Platform = "mars"
	require.ErrorIs(t, builder.Build(ctx, req), job.ErrInvalidPlatform)

	req = newRequest(t)
	req.PackageKind = "fedml-edge"
	require.ErrorIs(t, builder.Build(ctx, req), errUnknownKind)

	req = newRequest(t)
	req.EntryPoint = ""
	require.ErrorIs(t, builder.Build(ctx, req), errFieldRequired)

	req = newRequest(t)
	require.NoError(t, os.WriteFile(LockPath(req.BuildDir), []byte(strconv.Itoa(os.Getpid())), 0o644))
	require.ErrorIs(t, builder.Build(ctx, req), ErrBuildRunning)
}

// TestZipBuilder_LogFields tags builder log lines with the package kind only once.
func TestZipBuilder_LogFields(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer

	scoped := logger.NewWithWriter(&buffer, zapcore.DebugLevel).With("package", LabelClient)
	ctx := logger.ToContext(context.Background(), scoped)

	require.NoError(t, NewZipBuilder().Build(ctx, newRequest(t)))

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	require.NotEmpty(t, lines)

	for _, line := range lines {
		require.Equal(t, 1, strings.Count(line, `"package"`), line)
		require.Equal(t, 1, strings.Count(line, `"kind"`), line)
	}
}
