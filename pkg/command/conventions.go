package command

import (
	"regexp"

	"github.com/jkroepke/nyx/pkg/config"
	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/jkroepke/nyx/pkg/version"
)

// CommitBump classifies a commit message under the enabled conventions, in
// order, and returns the bump identifier the first matching convention
// derives. The empty string means the commit is not significant.
//
// A commit marked breaking overrides to the highest bump identifier the
// scheme supports, regardless of what the bump expressions matched.
func CommitBump(cfg *config.Configuration, scheme version.Scheme, message string) (string, error) {
	conventions, err := cfg.CommitMessageConventions()
	if err != nil {
		return "", err
	}

	for _, convention := range conventions {
		expression, err := regexp.Compile(convention.Convention.Expression)
		if err != nil {
			return "", errs.NewIllegalPropertyError(err, "convention %q has an invalid expression", convention.Name)
		}

		match := expression.FindStringSubmatch(message)
		if match == nil {
			continue
		}

		bump := ""

		for _, id := range convention.Convention.BumpExpressions.Keys() {
			bumpExpression, _ := convention.Convention.BumpExpressions.Get(id)

			matcher, err := regexp.Compile(bumpExpression)
			if err != nil {
				return "", errs.NewIllegalPropertyError(err, "convention %q has an invalid bump expression for %q", convention.Name, id)
			}

			if matcher.MatchString(message) {
				bump = id

				break
			}
		}

		if breakingMarker(expression, match) {
			bump = version.BumpMajor
		}

		return bump, nil
	}

	return "", nil
}

// breakingMarker reports whether the convention captured a non-empty
// "breaking" group.
func breakingMarker(expression *regexp.Regexp, match []string) bool {
	for i, name := range expression.SubexpNames() {
		if name == "breaking" && i < len(match) && match[i] != "" {
			return true
		}
	}

	return false
}
