package main

import (
	"testing"

	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestExitCodes(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name     string
		err      error
		expected int
	}{
		{"illegal property", errs.NewIllegalPropertyError(nil, "bad option"), exitConfiguration},
		{"data access", errs.NewDataAccessError(nil, "unreadable"), exitConfiguration},
		{"malformed version", &errs.MalformedVersionError{Version: "x", Scheme: "semver"}, exitConfiguration},
		{"git io", errs.NewGitError(errs.GitIO, nil, "broken"), exitGit},
		{"git not found", errs.NewGitError(errs.GitNotFound, nil, "missing"), exitGit},
		{"git auth", errs.NewGitError(errs.GitAuth, nil, "rejected"), exitTransport},
		{"git protocol", errs.NewGitError(errs.GitProtocol, nil, "refused"), exitTransport},
		{"release", errs.NewReleaseError(errs.ReleaseNoMatchingReleaseType, nil, "none"), exitRelease},
		{"security", &errs.SecurityError{Message: "no token"}, exitTransport},
		{"unknown", assert.AnError, exitConfiguration},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tc := tc
			t.Parallel()

			assert.Equal(t, tc.expected, exitCode(tc.err))
		})
	}
}

func TestVerbosityLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zerolog.TraceLevel, verbosityLevel("trace"))
	assert.Equal(t, zerolog.DebugLevel, verbosityLevel("debug"))
	assert.Equal(t, zerolog.InfoLevel, verbosityLevel("info"))
	assert.Equal(t, zerolog.WarnLevel, verbosityLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, verbosityLevel("error"))
	assert.Equal(t, zerolog.WarnLevel, verbosityLevel("anything"))
}
