package config

import (
	"github.com/jkroepke/nyx/pkg/errs"
)

// Preset names shipped with the system.
const (
	PresetSimple   = "simple"
	PresetExtended = "extended"
)

// conventionalCommitsConvention is the stock classifier for the Conventional
// Commits format. Bump expressions are evaluated in declared order; the
// breaking forms come first so they win regardless of commit type.
func conventionalCommitsConvention() *CommitMessageConvention {
	return &CommitMessageConvention{
		Expression: `(?m)^(?P<type>[a-zA-Z0-9_]+)(\((?P<scope>[a-z0-9 \-]+)\))?(?P<breaking>!)?: (?P<title>.+)$`,
		BumpExpressions: NewOrderedStringMap(
			"major", `(?s)(?m)^[a-zA-Z0-9_]+(\([a-z0-9 \-]+\))?!: .*|(?s)(?m).*^BREAKING[ \-]CHANGE: .*`,
			"minor", `(?s)(?m)^feat(\([a-z0-9 \-]+\))?: .*`,
			"patch", `(?s)(?m)^fix(\([a-z0-9 \-]+\))?: .*`,
		),
	}
}

// PresetLayer resolves a preset name to its configuration layer.
func PresetLayer(name string) (*Layer, error) {
	switch name {
	case PresetSimple:
		return simplePreset(), nil
	case PresetExtended:
		return extendedPreset(), nil
	default:
		return nil, errs.NewIllegalPropertyError(nil, "unknown preset %q", name)
	}
}

// simplePreset covers mainline-only workflows: releases are tagged and
// published from master or main, every other branch collapses into internal
// prereleases without touching the repository.
func simplePreset() *Layer {
	return &Layer{
		CommitMessageConventions: &CommitMessageConventions{
			Enabled: &[]string{"conventionalCommits"},
			Items: map[string]*CommitMessageConvention{
				"conventionalCommits": conventionalCommitsConvention(),
			},
		},
		ReleaseTypes: &ReleaseTypes{
			Enabled: &[]string{"mainline", "internal"},
			Items: map[string]*ReleaseType{
				"mainline": {
					MatchBranches:    `^(master|main)$`,
					Publish:          "true",
					GitCommit:        "false",
					GitCommitMessage: "Release version {{version}}",
					GitTag:           "true",
					GitPush:          "true",
					PublishMessage:   "Release {{version}}",
				},
				"internal": {
					MatchBranches:             ".*",
					CollapseVersions:          true,
					CollapsedVersionQualifier: "internal",
					Publish:                   "false",
					GitCommit:                 "false",
					GitTag:                    "false",
					GitPush:                   "false",
				},
			},
		},
	}
}

// extendedPreset adds gitflow-style branches on top of the simple preset.
func extendedPreset() *Layer {
	layer := simplePreset()

	layer.ReleaseTypes.Enabled = &[]string{"mainline", "maintenance", "release", "feature", "hotfix", "internal"}
	layer.ReleaseTypes.Items["maintenance"] = &ReleaseType{
		MatchBranches:              `^[a-zA-Z]*([0-9]|[0-9]([0-9]|\.)*[0-9])\.x$`,
		VersionRangeFromBranchName: true,
		Publish:                    "true",
		GitCommit:                  "false",
		GitTag:                     "true",
		GitPush:                    "true",
		PublishMessage:             "Release {{version}}",
	}
	layer.ReleaseTypes.Items["release"] = &ReleaseType{
		MatchBranches:             `^release[/\-]`,
		CollapseVersions:          true,
		CollapsedVersionQualifier: "rc",
		Publish:                   "false",
		GitCommit:                 "false",
		GitTag:                    "true",
		GitPush:                   "true",
	}
	layer.ReleaseTypes.Items["feature"] = &ReleaseType{
		MatchBranches:             `^feature[/\-][0-9a-zA-Z\-]+$`,
		CollapseVersions:          true,
		CollapsedVersionQualifier: "{{#sanitizeLower}}{{branch}}{{/sanitizeLower}}",
		Publish:                   "false",
		GitCommit:                 "false",
		GitTag:                    "false",
		GitPush:                   "false",
	}
	layer.ReleaseTypes.Items["hotfix"] = &ReleaseType{
		MatchBranches:             `^hotfix[/\-][0-9a-zA-Z\-]+$`,
		CollapseVersions:          true,
		CollapsedVersionQualifier: "{{#sanitizeLower}}{{branch}}{{/sanitizeLower}}",
		Publish:                   "true",
		GitCommit:                 "false",
		GitTag:                    "true",
		GitPush:                   "true",
		PublishMessage:            "Hotfix {{version}}",
	}

	return layer
}
