package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/jkroepke/nyx/pkg/errs"
)

type semverVersion struct {
	v *semver.Version
}

func parseSemver(s string) (Version, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return nil, &errs.MalformedVersionError{Version: s, Scheme: string(SchemeSemver), Cause: err}
	}

	return semverVersion{v: v}, nil
}

func (s semverVersion) Scheme() Scheme {
	return SchemeSemver
}

func (s semverVersion) String() string {
	return s.v.String()
}

func (s semverVersion) Bump(id string) (Version, error) {
	switch id {
	case BumpMajor:
		next := s.v.IncMajor()

		return semverVersion{v: &next}, nil
	case BumpMinor:
		next := s.v.IncMinor()

		return semverVersion{v: &next}, nil
	case BumpPatch:
		next := s.v.IncPatch()

		return semverVersion{v: &next}, nil
	case "":
		return nil, errs.NewIllegalPropertyError(nil, "empty bump identifier")
	default:
		return s.bumpPrerelease(id)
	}
}

// bumpPrerelease increments the numeric tail of the prerelease when the
// qualifier matches, or attaches the qualifier with a tail of 1.
func (s semverVersion) bumpPrerelease(id string) (Version, error) {
	pre := s.v.Prerelease()
	next := id + ".1"

	if pre != "" {
		identifiers := strings.Split(pre, ".")
		if identifiers[0] == id {
			n := 0

			if last := identifiers[len(identifiers)-1]; last != id {
				parsed, err := strconv.Atoi(last)
				if err != nil {
					return nil, errs.NewIllegalPropertyError(err, "prerelease %q has no numeric tail to bump", pre)
				}

				n = parsed
			}

			next = fmt.Sprintf("%s.%d", id, n+1)
		}
	}

	bumped, err := s.v.SetPrerelease(next)
	if err != nil {
		return nil, errs.NewIllegalPropertyError(err, "cannot set prerelease %q", next)
	}

	return semverVersion{v: &bumped}, nil
}

func (s semverVersion) CompareTo(other Version) int {
	o, ok := other.(semverVersion)
	if !ok {
		return strings.Compare(s.String(), other.String())
	}

	return s.v.Compare(o.v)
}

// Core returns the version with prerelease and build metadata stripped.
// Schemes without a prerelease concept return the version unchanged.
func Core(v Version) Version {
	s, ok := v.(semverVersion)
	if !ok {
		return v
	}

	core := semver.New(s.v.Major(), s.v.Minor(), s.v.Patch(), "", "")

	return semverVersion{v: core}
}

// PrereleaseIdentifiers returns the dot-separated prerelease identifiers of
// v, or nil when v has none.
func PrereleaseIdentifiers(v Version) []string {
	s, ok := v.(semverVersion)
	if !ok || s.v.Prerelease() == "" {
		return nil
	}

	return strings.Split(s.v.Prerelease(), ".")
}

// WithPrerelease returns v with its prerelease set to the given identifiers,
// replacing any existing prerelease and dropping build metadata.
func WithPrerelease(v Version, identifiers ...string) (Version, error) {
	s, ok := v.(semverVersion)
	if !ok {
		return nil, errs.NewIllegalPropertyError(nil, "scheme %s does not support prerelease identifiers", v.Scheme())
	}

	core := semver.New(s.v.Major(), s.v.Minor(), s.v.Patch(), strings.Join(identifiers, "."), "")
	if _, err := semver.StrictNewVersion(core.String()); err != nil {
		return nil, &errs.MalformedVersionError{Version: core.String(), Scheme: string(SchemeSemver), Cause: err}
	}

	return semverVersion{v: core}, nil
}

// SatisfiesRange reports whether v satisfies the given constraint expression.
// Only the SemVer scheme supports constraint checks.
func SatisfiesRange(v Version, constraint string) (bool, error) {
	s, ok := v.(semverVersion)
	if !ok {
		return false, errs.NewIllegalPropertyError(nil, "scheme %s does not support version ranges", v.Scheme())
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, errs.NewIllegalPropertyError(err, "invalid version range %q", constraint)
	}

	return c.Check(s.v), nil
}
