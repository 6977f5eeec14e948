package packager

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/oshokin/mlops-launch/internal/logger"
)

// ExitError reports a packaging command that finished with a non-zero status.
type ExitError struct {
	Code   int
	Output string
}

// Error implements error.
func (e *ExitError) Error() string {
	return fmt.Sprintf("packaging command exited with code %d", e.Code)
}

// CommandBuilder delegates the build to an external packaging command.
type CommandBuilder struct {
	command []string
	// templateDir replaces the embedded template tree when set.
	templateDir string
}

// CommandBuilderOption customizes a CommandBuilder.
type CommandBuilderOption func(*CommandBuilder)

// WithCommandTemplateDir copies an on-disk template tree into the scratch folder
// instead of the embedded one.
func WithCommandTemplateDir(dir string) CommandBuilderOption {
	return func(b *CommandBuilder) {
		b.templateDir = dir
	}
}

var errEmptyCommand = errors.New("packaging command is empty")

// NewCommandBuilder splits command on whitespace; the first field is the program.
func NewCommandBuilder(command string, opts ...CommandBuilderOption) (*CommandBuilder, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errEmptyCommand
	}

	builder := &CommandBuilder{command: fields}
	for _, opt := range opts {
		opt(builder)
	}

	return builder, nil
}

// Build recreates the scratch folder from the template tree and runs the
// command with the request encoded as flags.
func (b *CommandBuilder) Build(ctx context.Context, req *BuildRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	ctx = logger.WithFields(ctx, "kind", req.PackageKind)

	lock, err := acquireLock(ctx, req.BuildDir)
	if err != nil {
		return err
	}

	defer lock.release()

	if err = prepareScratch(ctx, b.templateDir, req.BuildDir); err != nil {
		return err
	}

	args := append(append([]string(nil), b.command[1:]...), commandArgs(req)...)

	logger.DebugKV(ctx, "Running packaging command", "program", b.command[0], "args", args)

	//nolint:gosec // The program comes from the user's own settings file.
	cmd := exec.CommandContext(ctx, b.command[0], args...)

	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Code:   exitErr.ExitCode(),
			Output: strings.TrimSpace(string(output)),
		}
	}

	return fmt.Errorf("run packaging command: %w", err)
}

func commandArgs(req *BuildRequest) []string {
	args := []string{
		"--platform", req.Platform,
		"--type", strings.TrimPrefix(req.PackageKind, "fedml-"),
		"--source-folder", req.SourceFolder,
		"--entry-point", req.EntryPoint,
		"--config-folder", req.ConfigFolder,
		"--dest-folder", req.DestFolder,
		"--build-dir", req.BuildDir,
		"--label", req.PackageLabel,
		"--index", req.IndexPlaceholder,
	}

	if patterns := req.IgnorePatterns(); len(patterns) > 0 {
		args = append(args, "--ignore", strings.Join(patterns, ","))
	}

	return args
}
