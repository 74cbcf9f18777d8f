package command

import (
	"sort"

	"github.com/jkroepke/nyx/pkg/config"
	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/rs/zerolog"
)

const (
	internalMarkLastCommit  = "Mark.last.commit"
	internalMarkVersion     = "Mark.state.version"
	internalMarkNewVersion  = "Mark.state.newVersion"
	internalMarkFingerprint = "Mark.configuration.fingerprint"
)

// Mark mutates the repository for the release: it commits pending changes,
// tags the final commit and pushes to the remotes, each step guarded by the
// release type flags and the dry-run option.
type Mark struct {
	core
}

// NewMark creates the Mark command.
func NewMark(logger zerolog.Logger, st *state.State, repository git.Repository) *Mark {
	return &Mark{core: core{logger: logger.With().Str("command", "Mark").Logger(), state: st, repository: repository}}
}

func (c *Mark) Name() string {
	return "Mark"
}

func (c *Mark) IsUpToDate() (bool, error) {
	if c.state.Version == "" {
		return false, nil
	}

	clean, err := c.repository.IsClean()
	if err != nil || !clean {
		// A dirty worktree always needs another pass.
		return false, err
	}

	latest, err := c.repository.LatestCommit()
	if err != nil {
		return false, nil //nolint:nilerr // an empty repository is simply not up to date
	}

	return c.isInternalAttributeUpToDate(internalMarkLastCommit, latest) &&
		c.isInternalAttributeUpToDate(internalMarkVersion, c.state.Version) &&
		c.isInternalAttributeUpToDate(internalMarkNewVersion, boolString(c.state.NewVersion)) &&
		c.isInternalAttributeUpToDate(internalMarkFingerprint, c.state.Configuration().Fingerprint()), nil
}

func (c *Mark) Run() (*state.State, error) {
	if !c.state.NewVersion {
		c.logger.Info().Msg("no new version, nothing to mark")
		c.storeInternals()

		return c.state, nil
	}

	releaseType, err := c.releaseType()
	if err != nil {
		return nil, err
	}

	if commitFlag, err := c.renderFlag(releaseType.GitCommit); err != nil {
		return nil, err
	} else if commitFlag {
		if err := c.commit(releaseType); err != nil {
			return nil, err
		}
	}

	if tagFlag, err := c.renderFlag(releaseType.GitTag); err != nil {
		return nil, err
	} else if tagFlag {
		if err := c.tag(releaseType); err != nil {
			return nil, err
		}
	}

	if pushFlag, err := c.renderFlag(releaseType.GitPush); err != nil {
		return nil, err
	} else if pushFlag {
		if err := c.push(); err != nil {
			return nil, err
		}
	}

	c.storeInternals()

	return c.state, nil
}

func (c *Mark) releaseType() (*config.ReleaseType, error) {
	selected, err := SelectReleaseType(c.state.Configuration(), c.state.Branch)
	if err != nil {
		return nil, err
	}

	return selected.ReleaseType, nil
}

// commit stages every worktree change, untracked files included, and
// creates the release commit, then
// rewrites the release scope so the new commit becomes the final one.
func (c *Mark) commit(releaseType *config.ReleaseType) error {
	clean, err := c.repository.IsClean()
	if err != nil {
		return err
	}

	if clean {
		c.logger.Debug().Msg("worktree is clean, no release commit needed")

		return nil
	}

	message := releaseType.GitCommitMessage
	if message == "" {
		message = "Release version {{version}}"
	}

	rendered, err := c.renderTemplate(message)
	if err != nil {
		return err
	}

	if c.state.Configuration().DryRun() {
		c.logger.Info().Str("message", rendered).Msg("dry run, not committing")

		return nil
	}

	if err := c.repository.Add(nil); err != nil {
		return err
	}

	commit, err := c.repository.Commit(rendered, nil, nil)
	if err != nil {
		return err
	}

	c.state.ReleaseScope.FinalCommit = &commit
	c.state.ReleaseScope.Commits = append([]git.Commit{commit}, c.state.ReleaseScope.Commits...)
	c.logger.Info().Str("sha", commit.ShortSHA()).Msg("release commit created")

	return nil
}

func (c *Mark) tag(releaseType *config.ReleaseType) error {
	tagName := c.state.Configuration().ReleasePrefix() + c.state.Version

	tagMessage, err := c.renderTemplate(releaseType.GitTagMessage)
	if err != nil {
		return err
	}

	if c.state.Configuration().DryRun() {
		c.logger.Info().Str("tag", tagName).Msg("dry run, not tagging")

		return nil
	}

	target := ""
	if c.state.ReleaseScope.FinalCommit != nil {
		target = c.state.ReleaseScope.FinalCommit.SHA
	}

	tag, err := c.repository.CreateTag(tagName, tagMessage, target, nil)
	if err != nil {
		return err
	}

	c.logger.Info().Str("tag", tag.Name).Str("target", tag.Target).Bool("annotated", tag.Annotated).Msg("tag created")

	return nil
}

// push pushes the branch and tags to every configured remote, defaulting to
// the repository's remotes. Credentials come from the Git configuration.
func (c *Mark) push() error {
	cfg := c.state.Configuration()

	remotes := c.configuredRemotes()
	if len(remotes) == 0 {
		discovered, err := c.repository.Remotes()
		if err != nil {
			return err
		}

		remotes = discovered
	}

	for _, remote := range remotes {
		if cfg.DryRun() {
			c.logger.Info().Str("remote", remote).Msg("dry run, not pushing")

			continue
		}

		user, password := c.credentialsFor(remote)

		if _, err := c.repository.Push(remote, user, password); err != nil {
			return err
		}

		c.logger.Info().Str("remote", remote).Msg("pushed")
	}

	return nil
}

func (c *Mark) configuredRemotes() []string {
	gitConfig := c.state.Configuration().Git()
	if gitConfig == nil || len(gitConfig.Remotes) == 0 {
		return nil
	}

	remotes := make([]string, 0, len(gitConfig.Remotes))
	for name := range gitConfig.Remotes {
		remotes = append(remotes, name)
	}

	sort.Strings(remotes)

	return remotes
}

func (c *Mark) credentialsFor(remote string) (string, string) {
	gitConfig := c.state.Configuration().Git()
	if gitConfig == nil {
		return "", ""
	}

	remoteConfig, ok := gitConfig.Remotes[remote]
	if !ok {
		return "", ""
	}

	return remoteConfig.User, remoteConfig.Password
}

func (c *Mark) storeInternals() {
	if latest, err := c.repository.LatestCommit(); err == nil {
		c.storeInternalAttribute(internalMarkLastCommit, latest)
	}

	c.storeInternalAttribute(internalMarkVersion, c.state.Version)
	c.storeInternalAttribute(internalMarkNewVersion, boolString(c.state.NewVersion))
	c.storeInternalAttribute(internalMarkFingerprint, c.state.Configuration().Fingerprint())
}

func boolString(value bool) string {
	if value {
		return "true"
	}

	return "false"
}
