package command_test

import (
	"testing"

	"github.com/jkroepke/nyx/pkg/command"
	"github.com/jkroepke/nyx/pkg/config"
	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectReleaseTypeByBranch(t *testing.T) {
	t.Parallel()

	cfg := newConfiguration(t, &config.Layer{Preset: ptr(config.PresetSimple)})

	for _, tc := range []struct {
		branch   string
		expected string
	}{
		{"master", "mainline"},
		{"main", "mainline"},
		{"develop", "internal"},
		{"feature/anything", "internal"},
	} {
		t.Run(tc.branch, func(t *testing.T) {
			tc := tc
			t.Parallel()

			selected, err := command.SelectReleaseType(cfg, tc.branch)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, selected.Name)
		})
	}
}

func TestSelectReleaseTypeFirstMatchWins(t *testing.T) {
	t.Parallel()

	cfg := newConfiguration(t, &config.Layer{
		ReleaseTypes: &config.ReleaseTypes{
			Enabled: &[]string{"specific", "catchall"},
			Items: map[string]*config.ReleaseType{
				"specific": {MatchBranches: `^master$`},
				"catchall": {MatchBranches: `.*`},
			},
		},
	})

	selected, err := command.SelectReleaseType(cfg, "master")
	require.NoError(t, err)
	assert.Equal(t, "specific", selected.Name)
}

func TestSelectReleaseTypeNoMatchFails(t *testing.T) {
	t.Parallel()

	cfg := newConfiguration(t, &config.Layer{
		ReleaseTypes: &config.ReleaseTypes{
			Enabled: &[]string{"mainline"},
			Items: map[string]*config.ReleaseType{
				"mainline": {MatchBranches: `^master$`},
			},
		},
	})

	_, err := command.SelectReleaseType(cfg, "develop")
	require.Error(t, err)

	var releaseError *errs.ReleaseError
	require.ErrorAs(t, err, &releaseError)
	assert.Equal(t, errs.ReleaseNoMatchingReleaseType, releaseError.Kind)
}

func TestSelectReleaseTypeEnvironmentPredicates(t *testing.T) {
	t.Setenv("NYX_SELECTOR_TEST_CI", "true")

	cfg := newConfiguration(t, &config.Layer{
		ReleaseTypes: &config.ReleaseTypes{
			Enabled: &[]string{"ci-only", "catchall"},
			Items: map[string]*config.ReleaseType{
				"ci-only": {
					MatchBranches:             `.*`,
					MatchEnvironmentVariables: map[string]string{"NYX_SELECTOR_TEST_CI": `^true$`},
				},
				"catchall": {MatchBranches: `.*`},
			},
		},
	})

	selected, err := command.SelectReleaseType(cfg, "master")
	require.NoError(t, err)
	assert.Equal(t, "ci-only", selected.Name)

	t.Setenv("NYX_SELECTOR_TEST_CI", "false")

	selected, err = command.SelectReleaseType(cfg, "master")
	require.NoError(t, err)
	assert.Equal(t, "catchall", selected.Name)
}
