package command

import (
	"sort"

	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/services"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/rs/zerolog"
)

const (
	internalPublishVersion     = "Publish.state.version"
	internalPublishFingerprint = "Publish.configuration.fingerprint"
)

// Publish creates the release on every configured hosting service. A
// release that already exists for the tag is left untouched, so the command
// is safe to re-run.
type Publish struct {
	core
	registry *services.Registry
}

// NewPublish creates the Publish command.
func NewPublish(logger zerolog.Logger, st *state.State, repository git.Repository, registry *services.Registry) *Publish {
	return &Publish{
		core:     core{logger: logger.With().Str("command", "Publish").Logger(), state: st, repository: repository},
		registry: registry,
	}
}

func (c *Publish) Name() string {
	return "Publish"
}

func (c *Publish) IsUpToDate() (bool, error) {
	if c.state.Version == "" {
		return false, nil
	}

	return c.isInternalAttributeUpToDate(internalPublishVersion, c.state.Version) &&
		c.isInternalAttributeUpToDate(internalPublishFingerprint, c.state.Configuration().Fingerprint()), nil
}

func (c *Publish) Run() (*state.State, error) {
	if !c.state.NewRelease {
		c.logger.Info().Msg("no new release to publish")
		c.storeInternals()

		return c.state, nil
	}

	cfg := c.state.Configuration()
	serviceConfigs := cfg.Services()
	tagName := cfg.ReleasePrefix() + c.state.Version

	body, err := c.releaseBody()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(serviceConfigs))
	for name := range serviceConfigs {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if cfg.DryRun() {
			c.logger.Info().Str("service", name).Str("tag", tagName).Msg("dry run, not publishing")

			continue
		}

		publisher, err := c.registry.Publisher(serviceConfigs[name], c.state)
		if err != nil {
			return nil, err
		}

		if _, exists, err := publisher.GetRelease(tagName); err != nil {
			return nil, err
		} else if exists {
			c.logger.Info().Str("service", name).Str("tag", tagName).Msg("release already exists")

			continue
		}

		handle, err := publisher.CreateRelease(tagName, body, c.state.ReleaseAssets)
		if err != nil {
			return nil, err
		}

		c.logger.Info().Str("service", name).Str("release", handle).Msg("release published")
	}

	c.storeInternals()

	return c.state, nil
}

func (c *Publish) releaseBody() (string, error) {
	selected, err := SelectReleaseType(c.state.Configuration(), c.state.Branch)
	if err != nil {
		return "", err
	}

	message := selected.ReleaseType.PublishMessage
	if message == "" {
		message = "Release {{version}}"
	}

	return c.renderTemplate(message)
}

func (c *Publish) storeInternals() {
	c.storeInternalAttribute(internalPublishVersion, c.state.Version)
	c.storeInternalAttribute(internalPublishFingerprint, c.state.Configuration().Fingerprint())
}
