// Package github implements the publish service port against the GitHub
// releases API.
package github

import (
	"context"
	"net/http"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const requestTimeout = 60 * time.Second

// Service publishes releases to a GitHub repository.
type Service struct {
	logger zerolog.Logger
	client *github.Client
	owner  string
	repo   string
}

// New creates the service. The token is required; owner and repo identify
// the repository, and baseURL switches to a GitHub Enterprise instance.
func New(logger zerolog.Logger, token, owner, repo, baseURL string) (*Service, error) {
	if token == "" {
		return nil, &errs.SecurityError{Message: "no GitHub token configured"}
	}

	if owner == "" || repo == "" {
		return nil, errs.NewIllegalPropertyError(nil, "the github service needs owner and repo options")
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{Transport: &oauth2.Transport{Source: source, Base: http.DefaultTransport}}

	client := github.NewClient(httpClient)

	if baseURL != "" {
		enterprise, err := client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, errs.NewIllegalPropertyError(err, "invalid GitHub base URL %q", baseURL)
		}

		client = enterprise
	}

	return &Service{logger: logger, client: client, owner: owner, repo: repo}, nil
}

func (s *Service) CreateRelease(tagName, body string, assets []string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	release := &github.RepositoryRelease{
		TagName: github.String(tagName),
		Name:    github.String(tagName),
		Body:    github.String(body),
	}

	created, response, err := s.client.Repositories.CreateRelease(ctx, s.owner, s.repo, release)
	if err != nil {
		if response != nil && (response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden) {
			return "", errs.NewGitError(errs.GitAuth, err, "GitHub rejected the credentials")
		}

		return "", errs.NewReleaseError(errs.ReleaseUpstreamFailure, err, "cannot create GitHub release for %s", tagName)
	}

	s.logger.Info().Str("tag", tagName).Str("url", created.GetHTMLURL()).Msg("GitHub release created")

	return created.GetHTMLURL(), nil
}

func (s *Service) GetRelease(tagName string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	release, response, err := s.client.Repositories.GetReleaseByTag(ctx, s.owner, s.repo, tagName)
	if err != nil {
		if response != nil && response.StatusCode == http.StatusNotFound {
			return "", false, nil
		}

		return "", false, errs.NewReleaseError(errs.ReleaseUpstreamFailure, err, "cannot look up GitHub release for %s", tagName)
	}

	return release.GetHTMLURL(), true, nil
}
