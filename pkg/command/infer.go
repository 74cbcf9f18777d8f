package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/jkroepke/nyx/pkg/version"
	"github.com/rs/zerolog"
)

const (
	internalInferLastCommit  = "Infer.last.commit"
	internalInferBranch      = "Infer.current.branch"
	internalInferFingerprint = "Infer.configuration.fingerprint"
)

// maintenanceRange derives a version range from maintenance branch names
// like 1.x, v1.2.x or release-2.3.x.
var maintenanceRange = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)*)\.x$`)

// Infer computes the release scope and the next version: it selects the
// release type for the current branch, walks first-parent history back to
// the most recent matching release tag, classifies the commits in between
// and bumps the previous version accordingly.
type Infer struct {
	core
}

// NewInfer creates the Infer command.
func NewInfer(logger zerolog.Logger, st *state.State, repository git.Repository) *Infer {
	return &Infer{core: core{logger: logger.With().Str("command", "Infer").Logger(), state: st, repository: repository}}
}

func (c *Infer) Name() string {
	return "Infer"
}

func (c *Infer) IsUpToDate() (bool, error) {
	if c.state.Version == "" {
		return false, nil
	}

	latest, err := c.repository.LatestCommit()
	if err != nil {
		return false, nil //nolint:nilerr // an empty repository is simply not up to date
	}

	branch, err := c.repository.CurrentBranch()
	if err != nil {
		return false, err
	}

	return c.isInternalAttributeUpToDate(internalInferLastCommit, latest) &&
		c.isInternalAttributeUpToDate(internalInferBranch, branch) &&
		c.isInternalAttributeUpToDate(internalInferFingerprint, c.state.Configuration().Fingerprint()), nil
}

func (c *Infer) Run() (*state.State, error) {
	cfg := c.state.Configuration()

	scheme, err := cfg.Scheme()
	if err != nil {
		return nil, err
	}

	c.state.Scheme = string(scheme)

	branch, err := c.repository.CurrentBranch()
	if err != nil {
		return nil, err
	}

	c.state.Branch = branch

	selected, err := SelectReleaseType(cfg, branch)
	if err != nil {
		return nil, err
	}

	c.state.ReleaseType = selected.Name
	releaseType := selected.ReleaseType
	c.logger.Info().Str("branch", branch).Str("releaseType", selected.Name).Msg("release type selected")

	versionRange := releaseType.VersionRange
	if releaseType.VersionRangeFromBranchName {
		versionRange, err = rangeFromBranchName(branch)
		if err != nil {
			return nil, err
		}
	}

	qualifier := ""
	if releaseType.CollapseVersions {
		qualifier, err = c.renderTemplate(releaseType.CollapsedVersionQualifier)
		if err != nil {
			return nil, err
		}

		if qualifier == "" {
			return nil, errs.NewIllegalPropertyError(nil, "release type %q collapses versions but has no qualifier", selected.Name)
		}
	}

	scope, err := c.walkReleaseScope(scheme, releaseType.CollapseVersions, qualifier, versionRange)
	if err != nil {
		return nil, err
	}

	previous, err := c.previousVersion(scheme, scope)
	if err != nil {
		return nil, err
	}

	bumpIDs, significant, err := c.classify(scheme, scope.commits)
	if err != nil {
		return nil, err
	}

	betweenIDs, _, err := c.classify(scheme, scope.betweenCommits)
	if err != nil {
		return nil, err
	}

	bump := cfg.Bump()
	if bump == "" {
		bump = version.MostSignificantBump(scheme, bumpIDs)
	}

	next, newVersion, err := c.nextVersion(scheme, releaseType.CollapseVersions, qualifier, previous, scope, bump, append(bumpIDs, betweenIDs...))
	if err != nil {
		return nil, err
	}

	if override := cfg.Version(); override != "" {
		parsed, err := version.Parse(scheme, override)
		if err != nil {
			return nil, err
		}

		next = parsed
		newVersion = scope.previousCommit == nil || next.CompareTo(previous) != 0
	}

	if versionRange != "" {
		satisfied, err := version.SatisfiesRange(next, versionRange)
		if err != nil {
			return nil, err
		}

		if !satisfied {
			return nil, errs.NewReleaseError(errs.ReleaseUpstreamFailure, nil,
				"version %s does not satisfy the range %q of release type %q", next, versionRange, selected.Name)
		}
	}

	publish, err := c.renderFlag(releaseType.Publish)
	if err != nil {
		return nil, err
	}

	c.populateState(scope, previous, next, bump, significant, newVersion, publish)

	latest, err := c.repository.LatestCommit()
	if err == nil {
		c.storeInternalAttribute(internalInferLastCommit, latest)
	}

	c.storeInternalAttribute(internalInferBranch, branch)
	c.storeInternalAttribute(internalInferFingerprint, cfg.Fingerprint())

	c.logger.Info().
		Str("previousVersion", c.state.ReleaseScope.PreviousVersion).
		Str("version", c.state.Version).
		Str("bump", bump).
		Bool("newVersion", newVersion).
		Msg("version inferred")

	return c.state, nil
}

// releaseScope is the raw outcome of the history walk.
type releaseScope struct {
	commits        []git.Commit
	previous       version.Version
	previousCommit *git.Commit
	prime          version.Version
	primeCommit    *git.Commit
	// betweenCommits are the commits between the previous version and the
	// prime version, only tracked under collapsed versioning.
	betweenCommits []git.Commit
	// qualifierFloors are the prerelease versions seen on the branch under
	// the collapsed qualifier; the next prerelease number must exceed them.
	qualifierFloors []version.Version
}

// walkReleaseScope walks first-parent history from HEAD collecting the
// commits in scope and the previous (and, under collapsed versioning,
// prime) version tags.
func (c *Infer) walkReleaseScope(scheme version.Scheme, collapse bool, qualifier, versionRange string) (*releaseScope, error) {
	scope := &releaseScope{}

	walkErr := c.repository.WalkHistory("", "", func(commit git.Commit) bool {
		commitVersions := c.tagVersions(scheme, commit, versionRange)

		if collapse {
			for _, candidate := range commitVersions {
				if _, ok := prereleaseTail(candidate, qualifier); ok {
					scope.qualifierFloors = append(scope.qualifierFloors, candidate)
				}
			}
		}

		if scope.previousCommit == nil {
			accepted := version.MostRecent(commitVersions, func(candidate version.Version) bool {
				if len(version.PrereleaseIdentifiers(candidate)) == 0 {
					return true
				}

				if !collapse {
					return false
				}

				_, ok := prereleaseTail(candidate, qualifier)

				return ok
			})

			if accepted == nil {
				scope.commits = append(scope.commits, commit)

				return true
			}

			scope.previous = accepted
			previousCommit := commit
			scope.previousCommit = &previousCommit

			if len(version.PrereleaseIdentifiers(accepted)) == 0 {
				scope.prime = accepted
				scope.primeCommit = &previousCommit
			}

			// Keep walking for the prime version under collapsed versioning.
			return collapse && scope.primeCommit == nil
		}

		core := version.MostRecent(commitVersions, func(candidate version.Version) bool {
			return len(version.PrereleaseIdentifiers(candidate)) == 0
		})

		if core == nil {
			scope.betweenCommits = append(scope.betweenCommits, commit)

			return true
		}

		scope.prime = core
		primeCommit := commit
		scope.primeCommit = &primeCommit

		return false
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return scope, nil
}

// tagVersions parses the tags on a commit into versions, stripping the
// release prefix and applying the configured range filter. Unparseable tags
// are ignored.
func (c *Infer) tagVersions(scheme version.Scheme, commit git.Commit, versionRange string) []version.Version {
	cfg := c.state.Configuration()
	prefix := cfg.ReleasePrefix()
	lenient := cfg.ReleaseLenient()

	var versions []version.Version

	for _, tag := range commit.Tags {
		name := tag.Name
		if prefix != "" {
			name = strings.TrimPrefix(name, prefix)
		}

		parsed, err := version.Parse(scheme, name)
		if err != nil && lenient {
			parsed, err = version.ParseLenient(scheme, name)
		}

		if err != nil {
			continue
		}

		if versionRange != "" {
			if satisfied, rangeErr := version.SatisfiesRange(parsed, versionRange); rangeErr != nil || !satisfied {
				continue
			}
		}

		versions = append(versions, parsed)
	}

	return versions
}

func (c *Infer) previousVersion(scheme version.Scheme, scope *releaseScope) (version.Version, error) {
	if scope.previousCommit != nil {
		return scope.previous, nil
	}

	initial := c.state.Configuration().InitialVersion()

	parsed, err := version.Parse(scheme, initial)
	if err != nil {
		return nil, err
	}

	return parsed, nil
}

// classify runs the convention matcher over the commits and returns the
// bump identifiers and the significant commits.
func (c *Infer) classify(scheme version.Scheme, commits []git.Commit) ([]string, []git.Commit, error) {
	cfg := c.state.Configuration()

	var (
		ids         []string
		significant []git.Commit
	)

	for _, commit := range commits {
		id, err := CommitBump(cfg, scheme, commit.Message.Full)
		if err != nil {
			return nil, nil, err
		}

		if id == "" {
			continue
		}

		ids = append(ids, id)
		significant = append(significant, commit)
	}

	return ids, significant, nil
}

// nextVersion computes the inferred version. The sinceLastPrimeIDs carry
// every bump identifier seen since the prime version, so collapsed
// versioning can tell whether the pending core bump must grow.
func (c *Infer) nextVersion(scheme version.Scheme, collapse bool, qualifier string, previous version.Version, scope *releaseScope, bump string, sinceLastPrimeIDs []string) (version.Version, bool, error) {
	// A fresh repository releases the initial version as is.
	if scope.previousCommit == nil && !collapse {
		return previous, true, nil
	}

	if bump == "" && scope.previousCommit != nil {
		// Nothing significant happened; keep the previous version.
		return previous, false, nil
	}

	if !collapse {
		next, err := previous.Bump(bump)
		if err != nil {
			return nil, false, err
		}

		return next, true, nil
	}

	return c.nextCollapsedVersion(scheme, qualifier, previous, scope, sinceLastPrimeIDs)
}

// nextCollapsedVersion computes the next prerelease under the collapsed
// qualifier: the core part is the prime version bumped by the most
// significant change since it, floored by the previous core, and the
// prerelease number is one above every existing tag under the qualifier.
func (c *Infer) nextCollapsedVersion(scheme version.Scheme, qualifier string, previous version.Version, scope *releaseScope, sinceLastPrimeIDs []string) (version.Version, bool, error) {
	prime := scope.prime
	if prime == nil {
		parsed, err := version.Parse(scheme, c.state.Configuration().InitialVersion())
		if err != nil {
			return nil, false, err
		}

		prime = parsed
	}

	base := version.Core(prime)

	if primeBump := version.MostSignificantBump(scheme, sinceLastPrimeIDs); primeBump != "" {
		bumped, err := base.Bump(primeBump)
		if err != nil {
			return nil, false, err
		}

		base = bumped
	}

	if previousCore := version.Core(previous); scope.previousCommit != nil && previousCore.CompareTo(base) > 0 {
		base = previousCore
	}

	number := 1

	for _, floor := range scope.qualifierFloors {
		if version.Core(floor).CompareTo(base) != 0 {
			continue
		}

		if tail, ok := prereleaseTail(floor, qualifier); ok && tail >= number {
			number = tail + 1
		}
	}

	next, err := version.WithPrerelease(base, qualifier, strconv.Itoa(number))
	if err != nil {
		return nil, false, err
	}

	newVersion := scope.previousCommit == nil || next.CompareTo(previous) != 0

	return next, newVersion, nil
}

// prereleaseTail splits a prerelease into the collapsed qualifier and its
// numeric tail. A version without a numeric tail counts as 0.
func prereleaseTail(v version.Version, qualifier string) (int, bool) {
	identifiers := version.PrereleaseIdentifiers(v)
	if len(identifiers) == 0 {
		return 0, false
	}

	last := identifiers[len(identifiers)-1]

	if tail, err := strconv.Atoi(last); err == nil {
		return tail, strings.Join(identifiers[:len(identifiers)-1], ".") == qualifier
	}

	return 0, strings.Join(identifiers, ".") == qualifier
}

func (c *Infer) populateState(scope *releaseScope, previous, next version.Version, bump string, significant []git.Commit, newVersion, publish bool) {
	c.state.Version = next.String()
	c.state.Bump = bump
	c.state.NewVersion = newVersion
	c.state.NewRelease = newVersion && publish

	releaseScope := state.ReleaseScope{
		Commits:            scope.commits,
		PreviousVersion:    previous.String(),
		SignificantCommits: significant,
	}

	if scope.previousCommit != nil {
		previousCommit := *scope.previousCommit
		releaseScope.PreviousVersionCommit = &previousCommit
	}

	if scope.prime != nil {
		releaseScope.PrimeVersion = scope.prime.String()
	}

	if scope.primeCommit != nil {
		primeCommit := *scope.primeCommit
		releaseScope.PrimeVersionCommit = &primeCommit
	}

	if len(scope.commits) > 0 {
		initial := scope.commits[len(scope.commits)-1]
		final := scope.commits[0]
		releaseScope.InitialCommit = &initial
		releaseScope.FinalCommit = &final
	}

	c.state.ReleaseScope = releaseScope
}

// rangeFromBranchName derives a version range constraint from a
// maintenance branch name such as 1.x or v1.2.x.
func rangeFromBranchName(branch string) (string, error) {
	match := maintenanceRange.FindStringSubmatch(branch)
	if match == nil {
		return "", errs.NewIllegalPropertyError(nil, "cannot derive a version range from branch %q", branch)
	}

	return fmt.Sprintf("%s.x", match[1]), nil
}
