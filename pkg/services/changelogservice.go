package services

import (
	"fmt"
	"time"

	"github.com/jkroepke/nyx/pkg/changelog"
	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"
	"github.com/rs/zerolog"
)

// ChangelogService is the built-in asset service rendering the release
// scope into a changelog file. Commits are classified with a best-effort
// conventional commits parser; unparseable commits are skipped.
type ChangelogService struct {
	logger       zerolog.Logger
	commitParser conventionalcommits.Machine
}

// NewChangelogService creates the changelog asset service.
func NewChangelogService(logger zerolog.Logger) *ChangelogService {
	commitParser := parser.NewMachine(parser.WithTypes(conventionalcommits.TypesConventional))
	commitParser.WithBestEffort()

	return &ChangelogService{logger: logger, commitParser: commitParser}
}

func (s *ChangelogService) BuildAsset(path string, st *state.State, repo git.Repository) (string, error) {
	entries := changelog.New(time.UnixMilli(st.Timestamp).UTC())
	entries.SetNewVersion(st.Version)

	if st.ReleaseScope.PreviousVersionCommit != nil {
		entries.SetOldVersion(st.ReleaseScope.PreviousVersion)
	}

	if url, err := repo.RemoteURL("origin"); err == nil {
		entries.SetRemote(url)
	}

	for _, commit := range st.ReleaseScope.Commits {
		bump := s.commitBump(commit.Message.Short)

		switch bump {
		case conventionalcommits.MajorVersion:
			entries.AddBreaking(commit.Message.Short, commit.ShortSHA())
		case conventionalcommits.MinorVersion:
			entries.AddFeature(commit.Message.Short, commit.ShortSHA())
		case conventionalcommits.PatchVersion:
			entries.AddFix(commit.Message.Short, commit.ShortSHA())
		case conventionalcommits.UnknownVersion:
			s.logger.Debug().Str("sha", commit.ShortSHA()).Msg("commit not listed in changelog")
		}
	}

	if entries.Len() == 0 {
		s.logger.Info().Str("path", path).Msg("no changelog entries for this release")

		return path, nil
	}

	if err := entries.WriteTo(path); err != nil {
		return "", fmt.Errorf("failed to build changelog asset: %w", err)
	}

	s.logger.Info().Str("path", path).Int("entries", entries.Len()).Msg("changelog written")

	return path, nil
}

func (s *ChangelogService) commitBump(message string) conventionalcommits.VersionBump {
	parsed, err := s.commitParser.Parse([]byte(message))
	if err != nil {
		return conventionalcommits.UnknownVersion
	}

	return parsed.VersionBump(conventionalcommits.DefaultStrategy)
}
