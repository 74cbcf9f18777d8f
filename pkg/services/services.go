// Package services defines the asset and publish service ports and the
// registry resolving configured service names to implementations.
package services

import (
	"sort"

	"github.com/jkroepke/nyx/pkg/config"
	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/services/github"
	"github.com/jkroepke/nyx/pkg/services/gitlab"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/jkroepke/nyx/pkg/template"
	"github.com/rs/zerolog"
)

// AssetService produces one release asset during the Make step.
type AssetService interface {
	// BuildAsset builds the asset at path from the run state and returns
	// the path of the produced file.
	BuildAsset(path string, st *state.State, repo git.Repository) (string, error)
}

// PublishService creates releases on a hosting service.
type PublishService interface {
	// CreateRelease creates a release for the tag and returns its handle.
	CreateRelease(tagName, body string, assets []string) (string, error)
	// GetRelease returns the handle of an existing release for the tag,
	// or absent when none exists.
	GetRelease(tagName string) (string, bool, error)
}

// PublisherFactory builds a publish service from its rendered options.
type PublisherFactory func(logger zerolog.Logger, options map[string]string) (PublishService, error)

// Registry resolves asset services by name and publish services by
// configured type. Publish services are constructed on demand because their
// options may be templates rendered against the state.
type Registry struct {
	logger     zerolog.Logger
	assets     map[string]AssetService
	publishers map[string]PublisherFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger:     logger,
		assets:     make(map[string]AssetService),
		publishers: make(map[string]PublisherFactory),
	}
}

// DefaultRegistry creates a registry with the built-in services: the
// changelog and command asset services and the github and gitlab publishers.
func DefaultRegistry(logger zerolog.Logger) *Registry {
	r := NewRegistry(logger)

	r.RegisterAsset("changelog", NewChangelogService(logger))
	r.RegisterAsset("command", NewCommandService(logger))

	r.RegisterPublisher("github", func(logger zerolog.Logger, options map[string]string) (PublishService, error) {
		return github.New(logger, options["token"], options["owner"], options["repo"], options["baseURL"])
	})
	r.RegisterPublisher("gitlab", func(logger zerolog.Logger, options map[string]string) (PublishService, error) {
		return gitlab.New(logger, options["token"], options["project"], options["baseURL"])
	})

	return r
}

// RegisterAsset installs an asset service under the given name.
func (r *Registry) RegisterAsset(name string, service AssetService) {
	r.assets[name] = service
}

// RegisterPublisher installs a publisher factory under the given type name.
func (r *Registry) RegisterPublisher(typeName string, factory PublisherFactory) {
	r.publishers[typeName] = factory
}

// Asset resolves an asset service by name.
func (r *Registry) Asset(name string) (AssetService, bool) {
	service, ok := r.assets[name]

	return service, ok
}

// Publisher builds the publish service for a configured service entry,
// rendering templated options against the state first.
func (r *Registry) Publisher(serviceConfig *config.ServiceConfig, st *state.State) (PublishService, error) {
	factory, ok := r.publishers[serviceConfig.Type]
	if !ok {
		return nil, errs.NewReleaseError(errs.ReleaseServiceUnknown, nil, "no publish service of type %q", serviceConfig.Type)
	}

	options, err := renderOptions(serviceConfig.Options, st)
	if err != nil {
		return nil, err
	}

	return factory(r.logger, options)
}

// PublisherTypes lists the registered publisher type names, sorted.
func (r *Registry) PublisherTypes() []string {
	types := make([]string, 0, len(r.publishers))
	for name := range r.publishers {
		types = append(types, name)
	}

	sort.Strings(types)

	return types
}

func renderOptions(options map[string]string, st *state.State) (map[string]string, error) {
	rendered := make(map[string]string, len(options))

	for key, value := range options {
		if !template.IsTemplate(value) {
			rendered[key] = value

			continue
		}

		out, err := template.Render(value, st)
		if err != nil {
			return nil, errs.NewIllegalPropertyError(err, "cannot render service option %q", key)
		}

		rendered[key] = out
	}

	return rendered, nil
}
