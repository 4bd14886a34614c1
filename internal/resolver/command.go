package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ariel-frischer/shipset/internal/config"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/google/shlex"
	"github.com/rs/zerolog/log"
)

// Runner executes configured commands for resolvers.
type Runner struct {
	Stdout     io.Writer
	Stderr     io.Writer
	HTTPClient *http.Client
}

// RunCommands runs cmds in order inside dir. In dry-run mode only commands
// marked dry-run execute. The first non-zero exit aborts the remaining ones.
func (r *Runner) RunCommands(ctx context.Context, phase, dir string, cmds []config.CommandConfig, dryRun bool) error {
	for _, cc := range cmds {
		if dryRun && !cc.DryRun {
			log.Info().Str("phase", phase).Str("command", cc.Command).Msg("dry run: skipping command")
			continue
		}
		if err := r.run(ctx, phase, dir, cc); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) run(ctx context.Context, phase, dir string, cc config.CommandConfig) error {
	name, args, err := commandLine(cc)
	if err != nil {
		return err
	}
	display := strings.Join(append([]string{name}, args...), " ")

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), envList(cc.ExtraEnv)...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = route(cc.Stdout, r.Stdout, &stdoutBuf)
	cmd.Stderr = route(cc.Stderr, r.Stderr, &stderrBuf)

	log.Info().Str("phase", phase).Str("command", display).Str("dir", dir).Msg("running command")
	runErr := cmd.Run()

	if stdoutBuf.Len() > 0 {
		log.Debug().Str("command", display).Str("stdout", stdoutBuf.String()).Msg("command output")
	}
	if stderrBuf.Len() > 0 {
		log.Debug().Str("command", display).Str("stderr", stderrBuf.String()).Msg("command output")
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return shiperrors.NewCommandFailed(display, exitErr.ExitCode(), nil)
		}
		return shiperrors.NewCommandFailed(display, -1, runErr)
	}
	return nil
}

// commandLine returns the executable and arguments. A command without args
// is split shell-style, so `command = "cargo publish --locked"` works.
func commandLine(cc config.CommandConfig) (string, []string, error) {
	if len(cc.Args) > 0 {
		return cc.Command, cc.Args, nil
	}
	parts, err := shlex.Split(cc.Command)
	if err != nil {
		return "", nil, shiperrors.NewInvalidConfig("", fmt.Sprintf("cannot split command %q: %v", cc.Command, err))
	}
	if len(parts) == 0 {
		return "", nil, shiperrors.NewInvalidConfig("", "command is empty")
	}
	return parts[0], parts[1:], nil
}

func route(kind config.StdioType, inherit io.Writer, pipe *bytes.Buffer) io.Writer {
	switch kind {
	case config.StdioPipe:
		return pipe
	case config.StdioNull:
		return nil
	default:
		return inherit
	}
}

func envList(extra map[string]string) []string {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

// publisher implements Publish for every resolver.
type publisher struct {
	runner *Runner
}

// Publish runs the publish pipeline shared by all ecosystems: private
// packages and dry runs without opted-in commands are skipped, a configured
// registry pre-check skips versions that are already published, then the
// prepublish and publish commands run in order.
func (p publisher) Publish(ctx context.Context, root string, pkg *ResolvedPackage, cfg config.ResolverConfig, dryRun bool) error {
	logger := log.With().Str("package", pkg.Name).Str("version", pkg.Version).Logger()

	if pkg.Private {
		logger.Info().Msg("package is private, skipping publish")
		return nil
	}
	if dryRun && !anyDryRun(cfg.Prepublish, cfg.Publish) {
		logger.Info().Msg("dry run: skipping publish")
		return nil
	}

	if cfg.PreCheck != nil {
		published, err := p.runner.PreCheck(ctx, pkg, *cfg.PreCheck)
		if err != nil {
			logger.Warn().Err(err).Msg("pre-check failed, publishing anyway")
		} else if published {
			logger.Info().Msg("version already published, skipping publish")
			return nil
		}
	}

	dir := filepath.Join(root, filepath.FromSlash(pkg.Path))
	if err := p.runner.RunCommands(ctx, "prepublish", dir, cfg.Prepublish, dryRun); err != nil {
		return shiperrors.WithPackage(err, pkg.Name)
	}
	if err := p.runner.RunCommands(ctx, "publish", dir, cfg.Publish, dryRun); err != nil {
		return shiperrors.WithPackage(err, pkg.Name)
	}
	logger.Info().Msg("published")
	return nil
}

func anyDryRun(lists ...[]config.CommandConfig) bool {
	for _, list := range lists {
		for _, cc := range list {
			if cc.DryRun {
				return true
			}
		}
	}
	return false
}

// RunPostVersion runs the post-version commands for a bumped package.
func RunPostVersion(ctx context.Context, runner *Runner, root string, pkg *ResolvedPackage, cfg config.ResolverConfig, dryRun bool) error {
	if len(cfg.PostVersion) == 0 {
		return nil
	}
	dir := filepath.Join(root, filepath.FromSlash(pkg.Path))
	return shiperrors.WithPackage(runner.RunCommands(ctx, "post-version", dir, cfg.PostVersion, dryRun), pkg.Name)
}
