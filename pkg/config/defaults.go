package config

// DefaultLayer builds the lowest-priority layer. It is an explicit value so
// tests can construct resolvers around their own defaults.
func DefaultLayer() *Layer {
	return &Layer{
		Bump:              nil,
		ConfigurationFile: nil,
		Directory:         ptr("."),
		DryRun:            ptr(false),
		InitialVersion:    ptr("0.1.0"),
		Preset:            nil,
		ReleaseLenient:    ptr(true),
		ReleasePrefix:     nil,
		Resume:            ptr(false),
		Scheme:            ptr("semver"),
		StateFile:         nil,
		Verbosity:         ptr("warning"),
		Version:           nil,
		CommitMessageConventions: &CommitMessageConventions{
			Enabled: &[]string{},
			Items:   map[string]*CommitMessageConvention{},
		},
		// The default release type is a catch-all that never mutates the
		// repository, so a bare run is always safe.
		ReleaseTypes: &ReleaseTypes{
			Enabled: &[]string{"default"},
			Items: map[string]*ReleaseType{
				"default": {
					MatchBranches:    "",
					Publish:          "false",
					GitCommit:        "false",
					GitCommitMessage: "Release version {{version}}",
					GitTag:           "false",
					GitTagMessage:    "",
					GitPush:          "false",
					PublishMessage:   "Release {{version}}",
				},
			},
		},
	}
}
