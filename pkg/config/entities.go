// Package config resolves the layered release configuration. Eight layers
// are merged with a strict priority order; getters return the first value a
// layer defines, falling back to the defaults.
package config

// Asset describes a file produced during the Make step by a named asset
// service. Command is used by the command asset service and may be a
// template rendered against the state.
type Asset struct {
	Service string `json:"service,omitempty" yaml:"service,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
}

// CommitMessageConvention classifies commit messages. The expression must
// match for the convention to apply; the bump expressions are then evaluated
// in declared order and the first match yields the bump identifier.
type CommitMessageConvention struct {
	Expression      string           `json:"expression,omitempty" yaml:"expression,omitempty"`
	BumpExpressions OrderedStringMap `json:"bumpExpressions,omitempty" yaml:"bumpExpressions,omitempty"`
}

// CommitMessageConventions is the composite configuration block for
// conventions. Enabled lists item names in evaluation order.
type CommitMessageConventions struct {
	Enabled *[]string                           `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Items   map[string]*CommitMessageConvention `json:"items,omitempty" yaml:"items,omitempty"`
}

// ReleaseType is a named release policy selected by branch name. The
// boolean-valued fields are templates rendered against the state and
// coerced, so they can depend on computed values.
type ReleaseType struct {
	MatchBranches              string            `json:"matchBranches,omitempty" yaml:"matchBranches,omitempty"`
	MatchEnvironmentVariables  map[string]string `json:"matchEnvironmentVariables,omitempty" yaml:"matchEnvironmentVariables,omitempty"`
	CollapseVersions           bool              `json:"collapseVersions,omitempty" yaml:"collapseVersions,omitempty"`
	CollapsedVersionQualifier  string            `json:"collapsedVersionQualifier,omitempty" yaml:"collapsedVersionQualifier,omitempty"`
	VersionRange               string            `json:"versionRange,omitempty" yaml:"versionRange,omitempty"`
	VersionRangeFromBranchName bool              `json:"versionRangeFromBranchName,omitempty" yaml:"versionRangeFromBranchName,omitempty"`
	Publish                    string            `json:"publish,omitempty" yaml:"publish,omitempty"`
	GitCommit                  string            `json:"gitCommit,omitempty" yaml:"gitCommit,omitempty"`
	GitCommitMessage           string            `json:"gitCommitMessage,omitempty" yaml:"gitCommitMessage,omitempty"`
	GitTag                     string            `json:"gitTag,omitempty" yaml:"gitTag,omitempty"`
	GitTagMessage              string            `json:"gitTagMessage,omitempty" yaml:"gitTagMessage,omitempty"`
	GitPush                    string            `json:"gitPush,omitempty" yaml:"gitPush,omitempty"`
	PublishMessage             string            `json:"publishMessage,omitempty" yaml:"publishMessage,omitempty"`
}

// ReleaseTypes is the composite configuration block for release types.
// Enabled lists item names in matching order; the first match wins.
type ReleaseTypes struct {
	Enabled *[]string               `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Items   map[string]*ReleaseType `json:"items,omitempty" yaml:"items,omitempty"`
}

// ServiceConfig configures a named publish service. The type selects the
// publisher implementation (github or gitlab in the default registry); the
// options are service specific and may be templates.
type ServiceConfig struct {
	Type    string            `json:"type,omitempty" yaml:"type,omitempty"`
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// GitRemoteConfig carries the credentials for one remote.
type GitRemoteConfig struct {
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// GitConfig groups the Git-specific options.
type GitConfig struct {
	Remotes map[string]*GitRemoteConfig `json:"remotes,omitempty" yaml:"remotes,omitempty"`
}

// NamedConvention pairs a resolved convention with its configured name.
type NamedConvention struct {
	Name       string
	Convention *CommitMessageConvention
}

// NamedReleaseType pairs a resolved release type with its configured name.
type NamedReleaseType struct {
	Name        string
	ReleaseType *ReleaseType
}
