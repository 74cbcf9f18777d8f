// Package state holds the mutable run state of the release pipeline. The
// state is serializable and can be reloaded to resume a previous run.
package state

import (
	"time"

	"github.com/jkroepke/nyx/pkg/config"
	"github.com/jkroepke/nyx/pkg/fileio"
	"github.com/jkroepke/nyx/pkg/git"
)

// ReleaseScope is the window of commits a release covers, from the most
// recent applicable release tag (exclusive) up to HEAD (inclusive).
type ReleaseScope struct {
	// Commits lists the commits in scope, newest first.
	Commits []git.Commit `json:"commits" yaml:"commits"`
	// InitialCommit is the oldest commit in scope.
	InitialCommit *git.Commit `json:"initialCommit,omitempty" yaml:"initialCommit,omitempty"`
	// FinalCommit is the newest commit in scope. Mark rewrites it when it
	// creates a release commit.
	FinalCommit *git.Commit `json:"finalCommit,omitempty" yaml:"finalCommit,omitempty"`
	// PreviousVersion is the most recent tag parseable as a version and
	// accepted by the release type, or the initial version when none exists.
	PreviousVersion       string      `json:"previousVersion,omitempty" yaml:"previousVersion,omitempty"`
	PreviousVersionCommit *git.Commit `json:"previousVersionCommit,omitempty" yaml:"previousVersionCommit,omitempty"`
	// PrimeVersion is the most recent non-prerelease version on the branch,
	// used as the baseline for collapsed versioning.
	PrimeVersion       string      `json:"primeVersion,omitempty" yaml:"primeVersion,omitempty"`
	PrimeVersionCommit *git.Commit `json:"primeVersionCommit,omitempty" yaml:"primeVersionCommit,omitempty"`
	// SignificantCommits are the commits whose convention produced a bump.
	SignificantCommits []git.Commit `json:"significantCommits" yaml:"significantCommits"`
}

// Significant reports whether the scope contains commits that demand a bump.
func (s *ReleaseScope) Significant() bool {
	return len(s.SignificantCommits) > 0
}

// State is the root holder of a pipeline run. It is created at pipeline
// start and written to the state file after each command other than Clean,
// unless dry-run.
type State struct {
	configuration *config.Configuration

	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
	Branch    string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Bump      string `json:"bump,omitempty" yaml:"bump,omitempty"`
	Scheme    string `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	// ReleaseType is the name of the selected release type.
	ReleaseType  string       `json:"releaseType,omitempty" yaml:"releaseType,omitempty"`
	NewVersion   bool         `json:"newVersion" yaml:"newVersion"`
	NewRelease   bool         `json:"newRelease" yaml:"newRelease"`
	ReleaseScope ReleaseScope `json:"releaseScope" yaml:"releaseScope"`
	// ReleaseAssets are the paths produced by the Make step.
	ReleaseAssets []string `json:"releaseAssets,omitempty" yaml:"releaseAssets,omitempty"`
	// Internals is an opaque attribute map used by the commands for their
	// up-to-date checks. Keys follow a "<Command>.<purpose>" convention.
	Internals map[string]string `json:"internals" yaml:"internals"`
}

// New creates the state for a fresh run. The timestamp is frozen at
// creation and kept for the whole run.
func New(configuration *config.Configuration) *State {
	return &State{
		configuration: configuration,
		Timestamp:     time.Now().UnixMilli(),
		Internals:     make(map[string]string),
	}
}

// Configuration returns the live configuration the state was created with.
func (s *State) Configuration() *config.Configuration {
	return s.configuration
}

// Save writes the state to the file at path, selecting the format by
// extension.
func (s *State) Save(path string) error {
	return fileio.Save(path, s)
}

// Resume loads a previously stored state file and reattaches the live
// configuration. A file that does not parse fails with a DataAccessError.
func Resume(path string, configuration *config.Configuration) (*State, error) {
	s := &State{}
	if err := fileio.Load(path, s); err != nil {
		return nil, err
	}

	s.configuration = configuration
	if s.Internals == nil {
		s.Internals = make(map[string]string)
	}

	if s.Timestamp == 0 {
		s.Timestamp = time.Now().UnixMilli()
	}

	return s, nil
}
