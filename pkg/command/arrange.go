package command

import (
	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/rs/zerolog"
)

const internalArrangeFingerprint = "Arrange.configuration.fingerprint"

// Arrange settles the configuration before the pipeline touches the
// repository: the composite blocks and the scheme are resolved so dangling
// enabled names and malformed options fail fast.
type Arrange struct {
	core
}

// NewArrange creates the Arrange command.
func NewArrange(logger zerolog.Logger, st *state.State, repository git.Repository) *Arrange {
	return &Arrange{core: core{logger: logger.With().Str("command", "Arrange").Logger(), state: st, repository: repository}}
}

func (c *Arrange) Name() string {
	return "Arrange"
}

func (c *Arrange) IsUpToDate() (bool, error) {
	return c.isInternalAttributeUpToDate(internalArrangeFingerprint, c.state.Configuration().Fingerprint()), nil
}

func (c *Arrange) Run() (*state.State, error) {
	cfg := c.state.Configuration()

	conventions, err := cfg.CommitMessageConventions()
	if err != nil {
		return nil, err
	}

	releaseTypes, err := cfg.ReleaseTypes()
	if err != nil {
		return nil, err
	}

	scheme, err := cfg.Scheme()
	if err != nil {
		return nil, err
	}

	c.state.Scheme = string(scheme)

	c.logger.Debug().
		Int("conventions", len(conventions)).
		Int("releaseTypes", len(releaseTypes)).
		Msg("configuration arranged")

	c.storeInternalAttribute(internalArrangeFingerprint, cfg.Fingerprint())

	return c.state, nil
}
