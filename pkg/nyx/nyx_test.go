package nyx_test

import (
	"path/filepath"
	"testing"

	"github.com/jkroepke/nyx/pkg/config"
	"github.com/jkroepke/nyx/pkg/fileio"
	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/git/gittest"
	"github.com/jkroepke/nyx/pkg/nyx"
	"github.com/jkroepke/nyx/pkg/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

type fakePublisher struct {
	created map[string]string
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{created: make(map[string]string)}
}

func (p *fakePublisher) CreateRelease(tagName, body string, _ []string) (string, error) {
	p.created[tagName] = body

	return "release/" + tagName, nil
}

func (p *fakePublisher) GetRelease(tagName string) (string, bool, error) {
	if _, ok := p.created[tagName]; ok {
		return "release/" + tagName, true, nil
	}

	return "", false, nil
}

func releaseLayer() *config.Layer {
	return &config.Layer{
		Preset: ptr(config.PresetSimple),
		ReleaseTypes: &config.ReleaseTypes{
			Enabled: &[]string{"mainline"},
			Items: map[string]*config.ReleaseType{
				"mainline": {
					MatchBranches:  `^(master|main)$`,
					Publish:        "true",
					GitCommit:      "false",
					GitTag:         "true",
					GitPush:        "false",
					PublishMessage: "Release {{version}}",
				},
			},
		},
		Services: map[string]*config.ServiceConfig{
			"hosting": {Type: "fake"},
		},
	}
}

func newPipeline(t *testing.T, scenario *gittest.Scenario, layer *config.Layer) (*nyx.Nyx, *fakePublisher) {
	t.Helper()

	cfg, err := config.New(zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, cfg.WithPluginConfiguration(layer))

	publisher := newFakePublisher()
	registry := services.NewRegistry(zerolog.Nop())
	registry.RegisterPublisher("fake", func(zerolog.Logger, map[string]string) (services.PublishService, error) {
		return publisher, nil
	})

	pipeline := nyx.New(zerolog.Nop(),
		nyx.WithConfiguration(cfg),
		nyx.WithRepository(git.From(zerolog.Nop(), scenario.Repo)),
		nyx.WithServiceRegistry(registry),
	)

	return pipeline, publisher
}

func TestPublishRunsTheWholePipeline(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")

	pipeline, publisher := newPipeline(t, scenario, releaseLayer())

	st, err := pipeline.Publish()
	require.NoError(t, err)

	assert.Equal(t, "0.1.0", st.Version)
	assert.True(t, st.NewVersion)
	assert.True(t, st.NewRelease)
	assert.True(t, scenario.HasTag(t, "0.1.0"))
	assert.Equal(t, map[string]string{"0.1.0": "Release 0.1.0"}, publisher.created)
}

func TestPublishIsIdempotent(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Tag(t, "1.2.3")
	scenario.Commit(t, "feat: y")

	pipeline, publisher := newPipeline(t, scenario, releaseLayer())

	st, err := pipeline.Publish()
	require.NoError(t, err)
	assert.Equal(t, "1.3.0", st.Version)
	require.Len(t, publisher.created, 1)

	// The second run short-circuits on the up-to-date checks and publishes
	// nothing new.
	_, err = pipeline.Publish()
	require.NoError(t, err)
	assert.Len(t, publisher.created, 1)
}

func TestPublishSkipsExistingRelease(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")

	pipeline, publisher := newPipeline(t, scenario, releaseLayer())
	publisher.created["0.1.0"] = "already there"

	_, err := pipeline.Publish()
	require.NoError(t, err)

	assert.Equal(t, "already there", publisher.created["0.1.0"])
}

func TestDryRunLeavesNoTraces(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")

	layer := releaseLayer()
	layer.DryRun = ptr(true)

	pipeline, publisher := newPipeline(t, scenario, layer)

	st, err := pipeline.Publish()
	require.NoError(t, err)

	assert.Equal(t, "0.1.0", st.Version)
	assert.False(t, scenario.HasTag(t, "0.1.0"))
	assert.Empty(t, publisher.created)
	assert.Empty(t, st.Internals)
}

func TestStateFileIsWritten(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")

	stateFile := filepath.Join(t.TempDir(), "state.yaml")

	layer := releaseLayer()
	layer.StateFile = ptr(stateFile)

	pipeline, _ := newPipeline(t, scenario, layer)

	_, err := pipeline.Publish()
	require.NoError(t, err)

	assert.True(t, fileio.Exists(stateFile))
}

func TestInferOnly(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Tag(t, "1.2.3")
	scenario.Commit(t, "fix: x")

	pipeline, publisher := newPipeline(t, scenario, releaseLayer())

	st, err := pipeline.Infer()
	require.NoError(t, err)

	assert.Equal(t, "1.2.4", st.Version)
	// Infer alone neither tags nor publishes.
	assert.False(t, scenario.HasTag(t, "1.2.4"))
	assert.Empty(t, publisher.created)
}

func TestCleanRemovesTheStateFile(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")

	stateFile := filepath.Join(t.TempDir(), "state.json")

	layer := releaseLayer()
	layer.StateFile = ptr(stateFile)

	pipeline, _ := newPipeline(t, scenario, layer)

	_, err := pipeline.Infer()
	require.NoError(t, err)
	require.True(t, fileio.Exists(stateFile))

	_, err = pipeline.Clean()
	require.NoError(t, err)
	assert.False(t, fileio.Exists(stateFile))
}

func TestResumeSeedsTheState(t *testing.T) {
	t.Parallel()

	scenario := gittest.New(t)
	scenario.Commit(t, "Initial commit")
	scenario.Tag(t, "1.2.3")
	scenario.Commit(t, "feat: y")

	stateFile := filepath.Join(t.TempDir(), "state.json")

	layer := releaseLayer()
	layer.StateFile = ptr(stateFile)

	first, _ := newPipeline(t, scenario, layer)

	st, err := first.Publish()
	require.NoError(t, err)
	require.Equal(t, "1.3.0", st.Version)

	resumedLayer := releaseLayer()
	resumedLayer.StateFile = ptr(stateFile)
	resumedLayer.Resume = ptr(true)

	second, publisher := newPipeline(t, scenario, resumedLayer)

	resumed, err := second.Publish()
	require.NoError(t, err)

	// The resumed run sees the stored outcome and re-publishes nothing.
	assert.Equal(t, "1.3.0", resumed.Version)
	assert.Empty(t, publisher.created)
}
