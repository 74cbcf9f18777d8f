package command

import (
	"errors"
	"sort"

	"github.com/jkroepke/nyx/pkg/config"
	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/services"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/rs/zerolog"
)

const (
	internalMakeLastCommit  = "Make.last.commit"
	internalMakeFingerprint = "Make.configuration.fingerprint"
	internalMakeAssets      = "Make.assets"
)

// Make produces the configured assets through their asset services and
// records the produced paths in the state.
type Make struct {
	core
	registry *services.Registry
}

// NewMake creates the Make command.
func NewMake(logger zerolog.Logger, st *state.State, repository git.Repository, registry *services.Registry) *Make {
	return &Make{
		core:     core{logger: logger.With().Str("command", "Make").Logger(), state: st, repository: repository},
		registry: registry,
	}
}

func (c *Make) Name() string {
	return "Make"
}

func (c *Make) IsUpToDate() (bool, error) {
	if len(c.state.Configuration().Assets()) == 0 {
		// Nothing to produce, nothing to get stale.
		return c.state.Version != "", nil
	}

	latest, err := c.repository.LatestCommit()
	if err != nil {
		return false, nil //nolint:nilerr // an empty repository is simply not up to date
	}

	return c.isInternalAttributeUpToDate(internalMakeLastCommit, latest) &&
		c.isInternalAttributeUpToDate(internalMakeFingerprint, c.state.Configuration().Fingerprint()) &&
		c.isInternalAttributeUpToDate(internalMakeAssets, c.assetFingerprint()), nil
}

func (c *Make) Run() (*state.State, error) {
	cfg := c.state.Configuration()
	assets := cfg.Assets()

	for _, name := range sortedAssetNames(assets) {
		asset := assets[name]

		if asset.Service == "" {
			c.logger.Debug().Str("asset", name).Msg("asset has no service, skipping")

			continue
		}

		service, ok := c.registry.Asset(asset.Service)
		if !ok {
			return nil, errs.NewIllegalPropertyError(nil, "asset %q references unknown service %q", name, asset.Service)
		}

		path := cfg.ResolvePath(asset.Path)

		if cfg.DryRun() {
			c.logger.Info().Str("asset", name).Str("path", path).Msg("dry run, not building asset")

			continue
		}

		produced, err := service.BuildAsset(path, c.state, c.repository)
		if err != nil {
			return nil, wrapAssetError(name, err)
		}

		c.state.ReleaseAssets = append(c.state.ReleaseAssets, produced)
		c.logger.Info().Str("asset", name).Str("path", produced).Msg("asset built")
	}

	if latest, err := c.repository.LatestCommit(); err == nil {
		c.storeInternalAttribute(internalMakeLastCommit, latest)
	}

	c.storeInternalAttribute(internalMakeFingerprint, cfg.Fingerprint())
	c.storeInternalAttribute(internalMakeAssets, c.assetFingerprint())

	return c.state, nil
}

func (c *Make) assetFingerprint() string {
	assets := c.state.Configuration().Assets()
	fingerprint := ""

	for _, name := range sortedAssetNames(assets) {
		fingerprint += name + "=" + assets[name].Service + ":" + assets[name].Path + ";"
	}

	return fingerprint
}

func sortedAssetNames(assets map[string]*config.Asset) []string {
	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func wrapAssetError(name string, err error) error {
	var (
		illegalProperty *errs.IllegalPropertyError
		releaseError    *errs.ReleaseError
	)

	if errors.As(err, &illegalProperty) || errors.As(err, &releaseError) {
		return err
	}

	return errs.NewReleaseError(errs.ReleaseUpstreamFailure, err, "asset %q failed to build", name)
}
