package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jkroepke/nyx/pkg/errs"
)

// mavenVersion orders identifiers the way Maven's ComparableVersion does,
// reduced to the dotted-numeric plus qualifier forms that appear in release
// tags. The original string is kept for rendering so values round-trip.
type mavenVersion struct {
	original string
	tokens   []mavenToken
}

type mavenToken struct {
	numeric   bool
	number    uint64
	qualifier string
}

// Known qualifier ranks, lower sorts first. The empty qualifier represents a
// final release. Unknown qualifiers sort after sp, lexically among themselves.
var mavenQualifierRank = map[string]int{
	"alpha":     1,
	"a":         1,
	"beta":      2,
	"b":         2,
	"milestone": 3,
	"m":         3,
	"rc":        4,
	"cr":        4,
	"snapshot":  5,
	"":          6,
	"final":     6,
	"ga":        6,
	"release":   6,
	"sp":        7,
}

func parseMaven(s string) (Version, error) {
	if s == "" || strings.ContainsAny(s, " \t") {
		return nil, &errs.MalformedVersionError{Version: s, Scheme: string(SchemeMaven)}
	}

	raw := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '-'
	})
	if len(raw) == 0 {
		return nil, &errs.MalformedVersionError{Version: s, Scheme: string(SchemeMaven)}
	}

	tokens := make([]mavenToken, 0, len(raw))

	for _, part := range raw {
		if part == "" {
			return nil, &errs.MalformedVersionError{Version: s, Scheme: string(SchemeMaven)}
		}

		if n, err := strconv.ParseUint(part, 10, 64); err == nil {
			tokens = append(tokens, mavenToken{numeric: true, number: n})
		} else {
			tokens = append(tokens, mavenToken{qualifier: strings.ToLower(part)})
		}
	}

	if !tokens[0].numeric {
		return nil, &errs.MalformedVersionError{Version: s, Scheme: string(SchemeMaven)}
	}

	return mavenVersion{original: s, tokens: tokens}, nil
}

func (m mavenVersion) Scheme() Scheme {
	return SchemeMaven
}

func (m mavenVersion) String() string {
	return m.original
}

// Bump increments the positional segment named by id, zeroing the numeric
// segments after it and dropping any qualifier. Any other identifier is
// attached as a qualifier with a numeric tail, Maven style.
func (m mavenVersion) Bump(id string) (Version, error) {
	position := -1

	switch id {
	case BumpMajor:
		position = 0
	case BumpMinor:
		position = 1
	case BumpPatch:
		position = 2
	case "":
		return nil, errs.NewIllegalPropertyError(nil, "empty bump identifier")
	}

	if position < 0 {
		return m.bumpQualifier(id)
	}

	numerics := m.numericSegments()
	for len(numerics) <= position {
		numerics = append(numerics, 0)
	}

	numerics[position]++
	for i := position + 1; i < len(numerics); i++ {
		numerics[i] = 0
	}

	rendered := make([]string, len(numerics))
	for i, n := range numerics {
		rendered[i] = strconv.FormatUint(n, 10)
	}

	return parseMaven(strings.Join(rendered, "."))
}

func (m mavenVersion) bumpQualifier(id string) (Version, error) {
	id = strings.ToLower(id)
	last := m.tokens[len(m.tokens)-1]

	if !last.numeric && last.qualifier == id {
		return parseMaven(m.original + "-1")
	}

	if last.numeric && len(m.tokens) >= 2 {
		previous := m.tokens[len(m.tokens)-2]
		if !previous.numeric && previous.qualifier == id {
			base := m.original[:strings.LastIndexAny(m.original, ".-")]

			return parseMaven(fmt.Sprintf("%s-%d", base, last.number+1))
		}
	}

	core := strings.Join(m.renderNumericPrefix(), ".")

	return parseMaven(fmt.Sprintf("%s-%s-1", core, id))
}

func (m mavenVersion) numericSegments() []uint64 {
	segments := make([]uint64, 0, len(m.tokens))

	for _, t := range m.tokens {
		if !t.numeric {
			break
		}

		segments = append(segments, t.number)
	}

	return segments
}

func (m mavenVersion) renderNumericPrefix() []string {
	segments := m.numericSegments()
	rendered := make([]string, len(segments))

	for i, n := range segments {
		rendered[i] = strconv.FormatUint(n, 10)
	}

	return rendered
}

func (m mavenVersion) CompareTo(other Version) int {
	o, ok := other.(mavenVersion)
	if !ok {
		return strings.Compare(m.String(), other.String())
	}

	longest := len(m.tokens)
	if len(o.tokens) > longest {
		longest = len(o.tokens)
	}

	for i := 0; i < longest; i++ {
		var a, b mavenToken

		switch {
		case i < len(m.tokens) && i < len(o.tokens):
			a, b = m.tokens[i], o.tokens[i]
		case i < len(m.tokens):
			a = m.tokens[i]
			b = padMavenToken(a)
		default:
			b = o.tokens[i]
			a = padMavenToken(b)
		}

		if c := compareMavenTokens(a, b); c != 0 {
			return c
		}
	}

	return 0
}

// padMavenToken supplies the implicit token compared against a position the
// shorter version does not have: zero for numerics, final for qualifiers.
func padMavenToken(other mavenToken) mavenToken {
	if other.numeric {
		return mavenToken{numeric: true}
	}

	return mavenToken{}
}

func compareMavenTokens(a, b mavenToken) int {
	if a.numeric && b.numeric {
		switch {
		case a.number > b.number:
			return 1
		case a.number < b.number:
			return -1
		default:
			return 0
		}
	}

	// A numeric token always sorts above a qualifier at the same position.
	if a.numeric != b.numeric {
		if a.numeric {
			return 1
		}

		return -1
	}

	ra, rb := mavenQualifierOrder(a.qualifier), mavenQualifierOrder(b.qualifier)

	switch {
	case ra > rb:
		return 1
	case ra < rb:
		return -1
	default:
		return strings.Compare(a.qualifier, b.qualifier)
	}
}

func mavenQualifierOrder(qualifier string) int {
	if rank, ok := mavenQualifierRank[qualifier]; ok {
		return rank
	}

	return 8
}
