package changelog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jkroepke/nyx/pkg/changelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var releaseDate = time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

func TestChangelogEmpty(t *testing.T) {
	t.Parallel()

	changes := changelog.New(releaseDate)
	assert.Equal(t, 0, changes.Len())
	assert.Equal(t, "", changes.String())
}

func TestChangelogSections(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name     string
		build    func(changes *changelog.Changelog)
		expected string
	}{
		{
			name: "only breaking change",
			build: func(changes *changelog.Changelog) {
				changes.SetNewVersion("2.0.0")
				changes.AddBreaking("drop the old API", "123456")
			},
			expected: "## 2.0.0 (2020-01-01)\n\n### ⚠ BREAKING CHANGES\n\n* drop the old API (123456)\n",
		},
		{
			name: "only feature",
			build: func(changes *changelog.Changelog) {
				changes.SetNewVersion("1.1.0")
				changes.AddFeature("add the parser", "123456")
			},
			expected: "## 1.1.0 (2020-01-01)\n\n### Features\n\n* add the parser (123456)\n",
		},
		{
			name: "only fix",
			build: func(changes *changelog.Changelog) {
				changes.SetNewVersion("1.0.1")
				changes.AddFix("correct the lexer", "123456")
			},
			expected: "## 1.0.1 (2020-01-01)\n\n### Bug Fixes\n\n* correct the lexer (123456)\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tc := tc
			t.Parallel()

			changes := changelog.New(releaseDate)
			tc.build(changes)

			assert.Equal(t, 1, changes.Len())
			assert.Equal(t, tc.expected, changes.String())
		})
	}
}

func TestChangelogRemoteLinks(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		remote string
	}{
		{"https remote", "https://github.com/acme/rocket.git"},
		{"ssh remote", "git@github.com:acme/rocket.git"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tc := tc
			t.Parallel()

			changes := changelog.New(releaseDate)
			changes.SetRemote(tc.remote)
			changes.SetOldVersion("1.0.0")
			changes.SetNewVersion("1.0.1")
			changes.AddFix("correct the lexer", "123456")

			out := changes.String()
			assert.Contains(t, out, "[1.0.1](https://github.com/acme/rocket/compare/1.0.0...1.0.1)")
			assert.Contains(t, out, "[123456](https://github.com/acme/rocket/commit/123456)")
		})
	}
}

func TestChangelogUnknownRemoteHasNoLinks(t *testing.T) {
	t.Parallel()

	changes := changelog.New(releaseDate)
	changes.SetRemote("/local/path/repo.git")
	changes.SetOldVersion("1.0.0")
	changes.SetNewVersion("1.0.1")
	changes.AddFix("correct the lexer", "123456")

	assert.Contains(t, changes.String(), "## 1.0.1 (2020-01-01)")
	assert.NotContains(t, changes.String(), "compare")
}

func TestChangelogWriteToNewFile(t *testing.T) {
	t.Parallel()

	changes := changelog.New(releaseDate)
	changes.SetOldVersion("1.0.0")
	changes.SetNewVersion("2.0.0")
	changes.AddBreaking("drop the old API", "123456")
	changes.AddFeature("add the parser", "234567")
	changes.AddFix("correct the lexer", "345678")

	require.Equal(t, 3, changes.Len())

	path := filepath.Join(t.TempDir(), "CHANGELOG.md")
	require.NoError(t, changes.WriteTo(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(content), "# Changelog")
	assert.Contains(t, string(content), "## 2.0.0 (2020-01-01)")
}

func TestChangelogWriteToPrepends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "CHANGELOG.md")

	first := changelog.New(releaseDate)
	first.SetNewVersion("1.0.1")
	first.AddFix("correct the lexer", "123456")
	require.NoError(t, first.WriteTo(path))

	second := changelog.New(releaseDate.Add(24 * time.Hour))
	second.SetOldVersion("1.0.1")
	second.SetNewVersion("1.1.0")
	second.AddFeature("add the parser", "234567")
	require.NoError(t, second.WriteTo(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	newer := string(content)
	assert.Less(t, strings.Index(newer, "## 1.1.0"), strings.Index(newer, "## 1.0.1"))
}

func TestChangelogWriteToRejectsFileWithoutMarker(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "CHANGELOG.md")
	require.NoError(t, os.WriteFile(path, []byte("# Changelog without marker\n"), 0o600))

	changes := changelog.New(releaseDate)
	changes.SetNewVersion("1.0.1")
	changes.AddFix("correct the lexer", "123456")

	require.Error(t, changes.WriteTo(path))
}
