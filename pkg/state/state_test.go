package state_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jkroepke/nyx/pkg/config"
	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfiguration(t *testing.T) *config.Configuration {
	t.Helper()

	cfg, err := config.New(zerolog.Nop())
	require.NoError(t, err)

	return cfg
}

func sampleState(t *testing.T, cfg *config.Configuration) *state.State {
	t.Helper()

	st := state.New(cfg)
	st.Branch = "master"
	st.Bump = "minor"
	st.Scheme = "semver"
	st.Version = "1.3.0"
	st.ReleaseType = "mainline"
	st.NewVersion = true
	st.NewRelease = true
	st.Internals["Infer.last.commit"] = "d0a19fc"

	commit := git.Commit{
		SHA:     "d0a19fc5776dc0c0b1a8d869c1117dac71065870",
		Date:    1577880000000,
		Parents: []string{"b50926e4f9ff32b58eb82afa36fa316efe54bd4e"},
		Message: git.Message{Full: "feat: something", Short: "feat: something"},
	}

	st.ReleaseScope = state.ReleaseScope{
		Commits:            []git.Commit{commit},
		InitialCommit:      &commit,
		FinalCommit:        &commit,
		PreviousVersion:    "1.2.3",
		SignificantCommits: []git.Commit{commit},
	}

	return st
}

func TestStateRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := newConfiguration(t)

	for _, extension := range []string{"json", "yaml"} {
		t.Run(extension, func(t *testing.T) {
			extension := extension
			t.Parallel()

			st := sampleState(t, cfg)
			path := filepath.Join(t.TempDir(), "state."+extension)

			require.NoError(t, st.Save(path))

			loaded, err := state.Resume(path, cfg)
			require.NoError(t, err)

			assert.Equal(t, st.Timestamp, loaded.Timestamp)
			assert.Equal(t, st.Branch, loaded.Branch)
			assert.Equal(t, st.Bump, loaded.Bump)
			assert.Equal(t, st.Scheme, loaded.Scheme)
			assert.Equal(t, st.Version, loaded.Version)
			assert.Equal(t, st.ReleaseType, loaded.ReleaseType)
			assert.Equal(t, st.NewVersion, loaded.NewVersion)
			assert.Equal(t, st.NewRelease, loaded.NewRelease)
			assert.Equal(t, st.Internals, loaded.Internals)
			assert.Equal(t, st.ReleaseScope, loaded.ReleaseScope)
			assert.Same(t, cfg, loaded.Configuration())
		})
	}
}

func TestResumeRejectsGarbage(t *testing.T) {
	t.Parallel()

	cfg := newConfiguration(t)
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := state.Resume(path, cfg)
	require.Error(t, err)

	var dataAccess *errs.DataAccessError
	assert.ErrorAs(t, err, &dataAccess)
}

func TestSignificant(t *testing.T) {
	t.Parallel()

	scope := &state.ReleaseScope{}
	assert.False(t, scope.Significant())

	scope.SignificantCommits = []git.Commit{{SHA: "abc"}}
	assert.True(t, scope.Significant())
}

func TestNewStateHasTimestampAndInternals(t *testing.T) {
	t.Parallel()

	st := state.New(newConfiguration(t))

	assert.NotZero(t, st.Timestamp)
	assert.NotNil(t, st.Internals)
}
