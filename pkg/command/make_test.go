package command_test

import (
	"testing"

	"github.com/jkroepke/nyx/pkg/command"
	"github.com/jkroepke/nyx/pkg/config"
	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/git/gittest"
	"github.com/jkroepke/nyx/pkg/services"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAssetService struct {
	calls []string
}

func (s *recordingAssetService) BuildAsset(path string, _ *state.State, _ git.Repository) (string, error) {
	s.calls = append(s.calls, path)

	return path, nil
}

func newMake(t *testing.T, scenario *gittest.Scenario, layer *config.Layer, registry *services.Registry) (*command.Make, *state.State) {
	t.Helper()

	cfg := newConfiguration(t, layer)
	st := state.New(cfg)
	repo := git.From(zerolog.Nop(), scenario.Repo)

	_, err := command.NewInfer(zerolog.Nop(), st, repo).Run()
	require.NoError(t, err)

	return command.NewMake(zerolog.Nop(), st, repo, registry), st
}

func TestMakeBuildsConfiguredAssets(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")

	recorder := &recordingAssetService{}
	registry := services.NewRegistry(zerolog.Nop())
	registry.RegisterAsset("recorder", recorder)

	layer := simpleLayer()
	layer.Assets = map[string]*config.Asset{
		"first":  {Service: "recorder", Path: "first.txt"},
		"second": {Service: "recorder", Path: "second.txt"},
		"silent": {Path: "ignored.txt"},
	}

	makeCmd, st := newMake(t, scenario, layer, registry)

	_, err := makeCmd.Run()
	require.NoError(t, err)

	// Assets build in name order; the one without a service is skipped.
	assert.Equal(t, []string{"first.txt", "second.txt"}, recorder.calls)
	assert.Equal(t, []string{"first.txt", "second.txt"}, st.ReleaseAssets)

	upToDate, err := makeCmd.IsUpToDate()
	require.NoError(t, err)
	assert.True(t, upToDate)
}

func TestMakeUnknownServiceFails(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")

	layer := simpleLayer()
	layer.Assets = map[string]*config.Asset{
		"broken": {Service: "no-such-service", Path: "out.txt"},
	}

	makeCmd, _ := newMake(t, scenario, layer, services.NewRegistry(zerolog.Nop()))

	_, err := makeCmd.Run()
	require.Error(t, err)

	var illegalProperty *errs.IllegalPropertyError
	assert.ErrorAs(t, err, &illegalProperty)
}

func TestMakeDryRunBuildsNothing(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")

	recorder := &recordingAssetService{}
	registry := services.NewRegistry(zerolog.Nop())
	registry.RegisterAsset("recorder", recorder)

	layer := simpleLayer()
	layer.DryRun = ptr(true)
	layer.Assets = map[string]*config.Asset{
		"first": {Service: "recorder", Path: "first.txt"},
	}

	makeCmd, st := newMake(t, scenario, layer, registry)

	_, err := makeCmd.Run()
	require.NoError(t, err)

	assert.Empty(t, recorder.calls)
	assert.Empty(t, st.ReleaseAssets)
}
