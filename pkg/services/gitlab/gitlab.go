// Package gitlab implements the publish service port against the GitLab
// releases API.
package gitlab

import (
	"net/http"

	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/rs/zerolog"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// Service publishes releases to a GitLab project.
type Service struct {
	logger  zerolog.Logger
	client  *gitlab.Client
	project string
}

// New creates the service. Project is the path or numeric id of the GitLab
// project; baseURL switches to a self-managed instance.
func New(logger zerolog.Logger, token, project, baseURL string) (*Service, error) {
	if token == "" {
		return nil, &errs.SecurityError{Message: "no GitLab token configured"}
	}

	if project == "" {
		return nil, errs.NewIllegalPropertyError(nil, "the gitlab service needs a project option")
	}

	var options []gitlab.ClientOptionFunc
	if baseURL != "" {
		options = append(options, gitlab.WithBaseURL(baseURL))
	}

	client, err := gitlab.NewClient(token, options...)
	if err != nil {
		return nil, errs.NewIllegalPropertyError(err, "cannot build GitLab client")
	}

	return &Service{logger: logger, client: client, project: project}, nil
}

func (s *Service) CreateRelease(tagName, body string, assets []string) (string, error) {
	release, response, err := s.client.Releases.CreateRelease(s.project, &gitlab.CreateReleaseOptions{
		Name:        gitlab.Ptr(tagName),
		TagName:     gitlab.Ptr(tagName),
		Description: gitlab.Ptr(body),
	})
	if err != nil {
		if response != nil && (response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden) {
			return "", errs.NewGitError(errs.GitAuth, err, "GitLab rejected the credentials")
		}

		return "", errs.NewReleaseError(errs.ReleaseUpstreamFailure, err, "cannot create GitLab release for %s", tagName)
	}

	s.logger.Info().Str("tag", tagName).Str("release", release.Name).Msg("GitLab release created")

	return release.TagName, nil
}

func (s *Service) GetRelease(tagName string) (string, bool, error) {
	release, response, err := s.client.Releases.GetRelease(s.project, tagName)
	if err != nil {
		if response != nil && response.StatusCode == http.StatusNotFound {
			return "", false, nil
		}

		return "", false, errs.NewReleaseError(errs.ReleaseUpstreamFailure, err, "cannot look up GitLab release for %s", tagName)
	}

	return release.TagName, true, nil
}
