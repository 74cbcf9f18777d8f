// Package version models version identifiers under pluggable versioning
// schemes. SemVer is the primary scheme; a Maven-style scheme is provided
// with scheme-defined ordering and bump semantics.
package version

import (
	"regexp"
	"strings"

	"github.com/jkroepke/nyx/pkg/errs"
)

// Scheme identifies a versioning scheme.
type Scheme string

const (
	SchemeSemver Scheme = "semver"
	SchemeMaven  Scheme = "maven"
)

// Core bump identifiers, most significant first.
const (
	BumpMajor = "major"
	BumpMinor = "minor"
	BumpPatch = "patch"
)

// leadingGarbage matches arbitrary textual prefixes tolerated in lenient parsing.
var leadingGarbage = regexp.MustCompile(`^[^0-9]*`)

// ParseScheme parses a scheme name.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(s)) {
	case SchemeSemver:
		return SchemeSemver, nil
	case SchemeMaven:
		return SchemeMaven, nil
	default:
		return "", errs.NewIllegalPropertyError(nil, "unsupported versioning scheme %q", s)
	}
}

// Version is an immutable version identifier under a scheme. Bump operations
// return new values.
type Version interface {
	// Scheme returns the scheme the version was parsed under.
	Scheme() Scheme
	// String renders the version without any release prefix.
	String() string
	// Bump returns a new version with the given identifier bumped. Core
	// identifiers are major, minor and patch; any other identifier is
	// treated as a prerelease qualifier.
	Bump(id string) (Version, error)
	// CompareTo returns -1, 0 or 1 comparing this version to other under
	// the scheme ordering.
	CompareTo(other Version) int
}

// Parse parses s into a Version under the given scheme.
func Parse(scheme Scheme, s string) (Version, error) {
	switch scheme {
	case SchemeSemver:
		return parseSemver(s)
	case SchemeMaven:
		return parseMaven(s)
	default:
		return nil, errs.NewIllegalPropertyError(nil, "unsupported versioning scheme %q", scheme)
	}
}

// ParseLenient parses s tolerating an arbitrary textual prefix before the
// first digit, such as a release prefix that was not stripped.
func ParseLenient(scheme Scheme, s string) (Version, error) {
	v, err := Parse(scheme, s)
	if err == nil {
		return v, nil
	}

	stripped := leadingGarbage.ReplaceAllString(s, "")
	if stripped == "" || stripped == s {
		return nil, err
	}

	return Parse(scheme, stripped)
}

// Valid reports whether s parses under the given scheme.
func Valid(scheme Scheme, s string) bool {
	_, err := Parse(scheme, s)

	return err == nil
}

// DefaultInitial returns the default initial version for the scheme.
func DefaultInitial(scheme Scheme) Version {
	switch scheme {
	case SchemeMaven:
		v, _ := parseMaven("0.1.0")

		return v
	default:
		v, _ := parseSemver("0.1.0")

		return v
	}
}

// Compare compares two versions under their common scheme.
func Compare(a, b Version) int {
	return a.CompareTo(b)
}

// MostRecent returns the highest version among the given ones that satisfies
// the filter, or nil when none does. A nil filter accepts every version.
func MostRecent(versions []Version, filter func(Version) bool) Version {
	var best Version

	for _, v := range versions {
		if filter != nil && !filter(v) {
			continue
		}

		if best == nil || v.CompareTo(best) > 0 {
			best = v
		}
	}

	return best
}

// CompareBumpIdentifiers orders bump identifiers by significance under the
// scheme: major > minor > patch > any prerelease identifier.
func CompareBumpIdentifiers(scheme Scheme, a, b string) int {
	ra, rb := bumpRank(a), bumpRank(b)

	switch {
	case ra > rb:
		return 1
	case ra < rb:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// MostSignificantBump returns the most significant identifier among ids, or
// the empty string when ids is empty.
func MostSignificantBump(scheme Scheme, ids []string) string {
	best := ""

	for _, id := range ids {
		if id == "" {
			continue
		}

		if best == "" || CompareBumpIdentifiers(scheme, id, best) > 0 {
			best = id
		}
	}

	return best
}

func bumpRank(id string) int {
	switch id {
	case BumpMajor:
		return 3
	case BumpMinor:
		return 2
	case BumpPatch:
		return 1
	default:
		return 0
	}
}
