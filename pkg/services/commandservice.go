package services

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/jkroepke/nyx/pkg/template"
	"github.com/rs/zerolog"
)

// CommandService is the built-in asset service delegating asset production
// to a configured shell command. The command is a template rendered against
// the state, so it can reference the computed version.
type CommandService struct {
	logger zerolog.Logger
}

// NewCommandService creates the command asset service.
func NewCommandService(logger zerolog.Logger) *CommandService {
	return &CommandService{logger: logger}
}

func (s *CommandService) BuildAsset(path string, st *state.State, repo git.Repository) (string, error) {
	asset, ok := st.Configuration().Assets()[assetNameByPath(st, path)]
	if !ok || asset.Command == "" {
		return "", errs.NewIllegalPropertyError(nil, "asset %s has no command configured", path)
	}

	command, err := template.Render(asset.Command, st)
	if err != nil {
		return "", errs.NewIllegalPropertyError(err, "cannot render asset command for %s", path)
	}

	s.logger.Info().Str("command", command).Str("path", path).Msg("building asset")

	if err := run(command, st.Configuration().Directory()); err != nil {
		return "", errs.NewReleaseError(errs.ReleaseUpstreamFailure, err, "asset command for %s failed", path)
	}

	return path, nil
}

func assetNameByPath(st *state.State, path string) string {
	for name, asset := range st.Configuration().Assets() {
		if asset.Path == path || st.Configuration().ResolvePath(asset.Path) == path {
			return name
		}
	}

	return filepath.Base(path)
}

func run(command, dir string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/C", command)
	default:
		cmd = exec.Command("sh", "-c", command)
	}

	var stdout, stderr bytes.Buffer

	cmd.Env = os.Environ()
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command failed: %w\n\nSTDOUT:\n\n%s\n\nSTDERR:\n\n%s", err, stdout.String(), stderr.String())
	}

	return nil
}
