package command

import (
	"os"
	"regexp"

	"github.com/jkroepke/nyx/pkg/config"
	"github.com/jkroepke/nyx/pkg/errs"
)

// SelectReleaseType matches the current branch against the enabled release
// types, in declared order. The first release type whose branch expression
// matches and whose environment predicates all hold wins.
func SelectReleaseType(cfg *config.Configuration, branch string) (config.NamedReleaseType, error) {
	releaseTypes, err := cfg.ReleaseTypes()
	if err != nil {
		return config.NamedReleaseType{}, err
	}

	for _, candidate := range releaseTypes {
		matches, err := releaseTypeMatches(candidate, branch)
		if err != nil {
			return config.NamedReleaseType{}, err
		}

		if matches {
			return candidate, nil
		}
	}

	return config.NamedReleaseType{}, errs.NewReleaseError(
		errs.ReleaseNoMatchingReleaseType, nil, "no release type matches branch %q", branch,
	)
}

func releaseTypeMatches(candidate config.NamedReleaseType, branch string) (bool, error) {
	if expression := candidate.ReleaseType.MatchBranches; expression != "" {
		matcher, err := regexp.Compile(expression)
		if err != nil {
			return false, errs.NewIllegalPropertyError(err, "release type %q has an invalid branch expression", candidate.Name)
		}

		if !matcher.MatchString(branch) {
			return false, nil
		}
	}

	for name, pattern := range candidate.ReleaseType.MatchEnvironmentVariables {
		matcher, err := regexp.Compile(pattern)
		if err != nil {
			return false, errs.NewIllegalPropertyError(err, "release type %q has an invalid predicate for %q", candidate.Name, name)
		}

		if !matcher.MatchString(os.Getenv(name)) {
			return false, nil
		}
	}

	return true, nil
}
