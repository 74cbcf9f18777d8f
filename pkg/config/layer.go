package config

import (
	"github.com/jkroepke/nyx/pkg/fileio"
)

// Layer is one source of configuration options. Nil fields are absent and
// fall through to lower-priority layers.
type Layer struct {
	Bump                     *string                    `json:"bump,omitempty" yaml:"bump,omitempty"`
	ConfigurationFile        *string                    `json:"configurationFile,omitempty" yaml:"configurationFile,omitempty"`
	Directory                *string                    `json:"directory,omitempty" yaml:"directory,omitempty"`
	DryRun                   *bool                      `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
	Git                      *GitConfig                 `json:"git,omitempty" yaml:"git,omitempty"`
	InitialVersion           *string                    `json:"initialVersion,omitempty" yaml:"initialVersion,omitempty"`
	Preset                   *string                    `json:"preset,omitempty" yaml:"preset,omitempty"`
	ReleaseLenient           *bool                      `json:"releaseLenient,omitempty" yaml:"releaseLenient,omitempty"`
	ReleasePrefix            *string                    `json:"releasePrefix,omitempty" yaml:"releasePrefix,omitempty"`
	Resume                   *bool                      `json:"resume,omitempty" yaml:"resume,omitempty"`
	Scheme                   *string                    `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	SharedConfigurationFile  *string                    `json:"sharedConfigurationFile,omitempty" yaml:"sharedConfigurationFile,omitempty"`
	StateFile                *string                    `json:"stateFile,omitempty" yaml:"stateFile,omitempty"`
	Verbosity                *string                    `json:"verbosity,omitempty" yaml:"verbosity,omitempty"`
	Version                  *string                    `json:"version,omitempty" yaml:"version,omitempty"`
	Assets                   map[string]*Asset          `json:"assets,omitempty" yaml:"assets,omitempty"`
	CommitMessageConventions *CommitMessageConventions  `json:"commitMessageConventions,omitempty" yaml:"commitMessageConventions,omitempty"`
	ReleaseTypes             *ReleaseTypes              `json:"releaseTypes,omitempty" yaml:"releaseTypes,omitempty"`
	Services                 map[string]*ServiceConfig  `json:"services,omitempty" yaml:"services,omitempty"`
}

// LoadLayer reads a configuration layer from the file at path.
func LoadLayer(path string) (*Layer, error) {
	layer := &Layer{}
	if err := fileio.Load(path, layer); err != nil {
		return nil, err
	}

	return layer, nil
}

func ptr[T any](v T) *T {
	return &v
}
