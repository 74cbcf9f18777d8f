package command

import (
	"errors"
	"os"

	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/rs/zerolog"
)

// Clean removes the artifacts a previous run left behind: the state file
// and the files of assets built by the changelog service. Files of assets
// built by other services are left in place. It also drops the stored
// internals so every command re-derives from the repository.
type Clean struct {
	core
}

// NewClean creates the Clean command.
func NewClean(logger zerolog.Logger, st *state.State, repository git.Repository) *Clean {
	return &Clean{core: core{logger: logger.With().Str("command", "Clean").Logger(), state: st, repository: repository}}
}

func (c *Clean) Name() string {
	return "Clean"
}

// IsUpToDate always reports false; Clean is never cached.
func (c *Clean) IsUpToDate() (bool, error) {
	return false, nil
}

func (c *Clean) Run() (*state.State, error) {
	cfg := c.state.Configuration()

	if stateFile := cfg.StateFile(); stateFile != "" {
		if err := c.removeFile(stateFile); err != nil {
			return nil, err
		}
	}

	for name, asset := range cfg.Assets() {
		if asset.Service != "changelog" || asset.Path == "" {
			continue
		}

		c.logger.Debug().Str("asset", name).Msg("removing rendered asset")

		if err := c.removeFile(cfg.ResolvePath(asset.Path)); err != nil {
			return nil, err
		}
	}

	for key := range c.state.Internals {
		delete(c.state.Internals, key)
	}

	return c.state, nil
}

func (c *Clean) removeFile(path string) error {
	if c.state.Configuration().DryRun() {
		c.logger.Info().Str("path", path).Msg("dry run, not removing file")

		return nil
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errs.NewDataAccessError(err, "cannot remove %s", path)
	}

	return nil
}
