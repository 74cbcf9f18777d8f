package command_test

import (
	"testing"

	"github.com/jkroepke/nyx/pkg/command"
	"github.com/jkroepke/nyx/pkg/config"
	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/git/gittest"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInfer(t *testing.T, scenario *gittest.Scenario, layer *config.Layer) (*command.Infer, *state.State) {
	t.Helper()

	cfg := newConfiguration(t, layer)
	st := state.New(cfg)
	repo := git.From(zerolog.Nop(), scenario.Repo)

	return command.NewInfer(zerolog.Nop(), st, repo), st
}

func simpleLayer() *config.Layer {
	return &config.Layer{Preset: ptr(config.PresetSimple)}
}

func TestInferFreshRepository(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")

	infer, _ := newInfer(t, scenario, simpleLayer())

	st, err := infer.Run()
	require.NoError(t, err)

	assert.Equal(t, "0.1.0", st.Version)
	assert.True(t, st.NewVersion)
	assert.True(t, st.NewRelease)
	assert.Equal(t, "", st.Bump)
	assert.Equal(t, "mainline", st.ReleaseType)
	assert.Equal(t, "0.1.0", st.ReleaseScope.PreviousVersion)
	assert.Nil(t, st.ReleaseScope.PreviousVersionCommit)
	require.Len(t, st.ReleaseScope.Commits, 1)
	assert.Equal(t, st.ReleaseScope.Commits[0], *st.ReleaseScope.InitialCommit)
	assert.Equal(t, st.ReleaseScope.Commits[0], *st.ReleaseScope.FinalCommit)
}

func TestInferMinorBumpSinceTag(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Tag(t, "1.2.3")
	scenario.Commit(t, "fix: x")
	scenario.Commit(t, "feat: y")

	infer, _ := newInfer(t, scenario, simpleLayer())

	st, err := infer.Run()
	require.NoError(t, err)

	assert.Equal(t, "minor", st.Bump)
	assert.Equal(t, "1.3.0", st.Version)
	assert.True(t, st.NewVersion)
	assert.Equal(t, "1.2.3", st.ReleaseScope.PreviousVersion)
	require.NotNil(t, st.ReleaseScope.PreviousVersionCommit)
	assert.Len(t, st.ReleaseScope.Commits, 2)
	assert.Len(t, st.ReleaseScope.SignificantCommits, 2)
	assert.True(t, st.ReleaseScope.Significant())
	// Commits are listed newest first.
	assert.Equal(t, "feat: y", st.ReleaseScope.Commits[0].Message.Short)
	assert.Equal(t, "fix: x", st.ReleaseScope.Commits[1].Message.Short)
}

func TestInferBreakingChange(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Tag(t, "1.2.3")
	scenario.Commit(t, "feat!: break")

	infer, _ := newInfer(t, scenario, simpleLayer())

	st, err := infer.Run()
	require.NoError(t, err)

	assert.Equal(t, "major", st.Bump)
	assert.Equal(t, "2.0.0", st.Version)
}

func TestInferNoCommitsSinceTag(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Tag(t, "1.2.3")

	infer, _ := newInfer(t, scenario, simpleLayer())

	st, err := infer.Run()
	require.NoError(t, err)

	assert.False(t, st.NewVersion)
	assert.False(t, st.NewRelease)
	assert.Equal(t, "1.2.3", st.Version)
	assert.Equal(t, "", st.Bump)
	assert.Empty(t, st.ReleaseScope.Commits)
}

func collapsedLayer() *config.Layer {
	layer := simpleLayer()
	layer.ReleaseTypes = &config.ReleaseTypes{
		Enabled: &[]string{"alpha"},
		Items: map[string]*config.ReleaseType{
			"alpha": {
				MatchBranches:             `^alpha$`,
				CollapseVersions:          true,
				CollapsedVersionQualifier: "alpha",
				Publish:                   "false",
				GitCommit:                 "false",
				GitTag:                    "false",
				GitPush:                   "false",
			},
		},
	}

	return layer
}

func TestInferCollapsedVersioning(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Checkout(t, "alpha")
	scenario.Commit(t, "feat: earlier")
	scenario.Tag(t, "1.3.0-alpha.2")
	scenario.Commit(t, "feat: new")

	infer, _ := newInfer(t, scenario, collapsedLayer())

	st, err := infer.Run()
	require.NoError(t, err)

	assert.Equal(t, "1.3.0-alpha.3", st.Version)
	assert.True(t, st.NewVersion)
	assert.False(t, st.NewRelease)
	assert.Equal(t, "1.3.0-alpha.2", st.ReleaseScope.PreviousVersion)
}

func TestInferCollapsedVersioningWithPrimeVersion(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Tag(t, "1.2.3")
	scenario.Checkout(t, "alpha")
	scenario.Commit(t, "feat: first alpha change")

	infer, _ := newInfer(t, scenario, collapsedLayer())

	st, err := infer.Run()
	require.NoError(t, err)

	// The prime version 1.2.3 is bumped minor and collapsed to alpha.1.
	assert.Equal(t, "1.3.0-alpha.1", st.Version)
	assert.Equal(t, "1.2.3", st.ReleaseScope.PrimeVersion)
	require.NotNil(t, st.ReleaseScope.PrimeVersionCommit)
}

func TestInferCollapsedBreakingRaisesBase(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Tag(t, "1.2.3")
	scenario.Checkout(t, "alpha")
	scenario.Commit(t, "feat: first alpha change")
	scenario.Tag(t, "1.3.0-alpha.1")
	scenario.Commit(t, "feat!: breaking alpha change")

	infer, _ := newInfer(t, scenario, collapsedLayer())

	st, err := infer.Run()
	require.NoError(t, err)

	assert.Equal(t, "2.0.0-alpha.1", st.Version)
}

func TestInferPinnedBump(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Tag(t, "1.2.3")
	scenario.Commit(t, "docs: nothing significant")

	layer := simpleLayer()
	layer.Bump = ptr("major")

	infer, _ := newInfer(t, scenario, layer)

	st, err := infer.Run()
	require.NoError(t, err)

	assert.Equal(t, "major", st.Bump)
	assert.Equal(t, "2.0.0", st.Version)
	assert.True(t, st.NewVersion)
}

func TestInferVersionOverride(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Tag(t, "1.2.3")
	scenario.Commit(t, "feat: y")

	layer := simpleLayer()
	layer.Version = ptr("9.9.9")

	infer, _ := newInfer(t, scenario, layer)

	st, err := infer.Run()
	require.NoError(t, err)

	assert.Equal(t, "9.9.9", st.Version)
	assert.True(t, st.NewVersion)

	layer.Version = ptr("not a version")
	infer, _ = newInfer(t, scenario, layer)

	_, err = infer.Run()
	require.Error(t, err)

	var malformed *errs.MalformedVersionError
	assert.ErrorAs(t, err, &malformed)
}

func TestInferReleasePrefix(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Tag(t, "v1.2.3")
	scenario.Commit(t, "fix: x")

	layer := simpleLayer()
	layer.ReleasePrefix = ptr("v")

	infer, _ := newInfer(t, scenario, layer)

	st, err := infer.Run()
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", st.ReleaseScope.PreviousVersion)
	assert.Equal(t, "1.2.4", st.Version)
}

func TestInferLenientTagParsing(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Tag(t, "release-1.2.3")
	scenario.Commit(t, "fix: x")

	// No release prefix configured; leniency strips the textual prefix.
	infer, _ := newInfer(t, scenario, simpleLayer())

	st, err := infer.Run()
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", st.ReleaseScope.PreviousVersion)
	assert.Equal(t, "1.2.4", st.Version)
}

func TestInferMaintenanceVersionRange(t *testing.T) {
	t.Parallel()

	layer := simpleLayer()
	layer.ReleaseTypes = &config.ReleaseTypes{
		Enabled: &[]string{"maintenance"},
		Items: map[string]*config.ReleaseType{
			"maintenance": {
				MatchBranches:              `\.x$`,
				VersionRangeFromBranchName: true,
				Publish:                    "false",
				GitTag:                     "false",
				GitPush:                    "false",
			},
		},
	}

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Tag(t, "1.2.3")
	scenario.Checkout(t, "1.2.x")
	scenario.Commit(t, "fix: backport")

	infer, _ := newInfer(t, scenario, layer)

	st, err := infer.Run()
	require.NoError(t, err)
	assert.Equal(t, "1.2.4", st.Version)

	// A feature bump would leave the 1.2.x range and must fail.
	scenario.Commit(t, "feat: not allowed here")

	infer, _ = newInfer(t, scenario, layer)

	_, err = infer.Run()
	require.Error(t, err)

	var releaseError *errs.ReleaseError
	assert.ErrorAs(t, err, &releaseError)
}

func TestInferNoMatchingReleaseType(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")

	layer := &config.Layer{
		ReleaseTypes: &config.ReleaseTypes{
			Enabled: &[]string{"other"},
			Items:   map[string]*config.ReleaseType{"other": {MatchBranches: `^nothing-matches$`}},
		},
	}

	infer, _ := newInfer(t, scenario, layer)

	_, err := infer.Run()
	require.Error(t, err)

	var releaseError *errs.ReleaseError
	require.ErrorAs(t, err, &releaseError)
	assert.Equal(t, errs.ReleaseNoMatchingReleaseType, releaseError.Kind)
}

func TestInferIsUpToDateAfterRun(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")

	infer, _ := newInfer(t, scenario, simpleLayer())

	upToDate, err := infer.IsUpToDate()
	require.NoError(t, err)
	assert.False(t, upToDate)

	_, err = infer.Run()
	require.NoError(t, err)

	upToDate, err = infer.IsUpToDate()
	require.NoError(t, err)
	assert.True(t, upToDate)

	// A new commit invalidates the cached outcome.
	scenario.Commit(t, "feat: more")

	upToDate, err = infer.IsUpToDate()
	require.NoError(t, err)
	assert.False(t, upToDate)
}

func TestInferDryRunStoresNoInternals(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")

	layer := simpleLayer()
	layer.DryRun = ptr(true)

	infer, st := newInfer(t, scenario, layer)

	_, err := infer.Run()
	require.NoError(t, err)

	assert.Equal(t, "0.1.0", st.Version)
	assert.Empty(t, st.Internals)

	upToDate, err := infer.IsUpToDate()
	require.NoError(t, err)
	assert.False(t, upToDate)
}

func TestInferMonotoneVersion(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Tag(t, "3.0.0")
	scenario.Commit(t, "fix: tiny")

	infer, _ := newInfer(t, scenario, simpleLayer())

	st, err := infer.Run()
	require.NoError(t, err)

	assert.Equal(t, "3.0.1", st.Version)
}
