package template

import (
	"os"
	"os/user"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// lambdas is the fixed library available to templates with section syntax.
// Each lambda receives the rendered section content.
var lambdas = map[string]func(string) (string, error){
	"lower": func(s string) (string, error) { return strings.ToLower(s), nil },
	"upper": func(s string) (string, error) { return strings.ToUpper(s), nil },
	"trim":  func(s string) (string, error) { return strings.TrimSpace(s), nil },

	"first":      func(s string) (string, error) { return firstToken(s), nil },
	"firstLower": func(s string) (string, error) { return strings.ToLower(firstToken(s)), nil },
	"firstUpper": func(s string) (string, error) { return strings.ToUpper(firstToken(s)), nil },

	"last":      func(s string) (string, error) { return lastToken(s), nil },
	"lastLower": func(s string) (string, error) { return strings.ToLower(lastToken(s)), nil },
	"lastUpper": func(s string) (string, error) { return strings.ToUpper(lastToken(s)), nil },

	"sanitize":      func(s string) (string, error) { return sanitize(s), nil },
	"sanitizeLower": func(s string) (string, error) { return strings.ToLower(sanitize(s)), nil },
	"sanitizeUpper": func(s string) (string, error) { return strings.ToUpper(sanitize(s)), nil },

	"short5": func(s string) (string, error) { return prefix(s, 5), nil },
	"short6": func(s string) (string, error) { return prefix(s, 6), nil },
	"short7": func(s string) (string, error) { return prefix(s, 7), nil },

	"timestampISO8601":       func(s string) (string, error) { return formatTimestamp(s, "2006-01-02T15:04:05Z"), nil },
	"timestampYYYYMMDDHHMMSS": func(s string) (string, error) { return formatTimestamp(s, "20060102150405"), nil },

	"environment.user": func(string) (string, error) {
		current, err := user.Current()
		if err != nil {
			return os.Getenv("USER"), nil
		}

		return current.Username, nil
	},
	"environment.variable": func(s string) (string, error) {
		return os.Getenv(strings.TrimSpace(s)), nil
	},

	"file.content": func(s string) (string, error) {
		data, err := os.ReadFile(strings.TrimSpace(s))
		if err != nil {
			return "", nil
		}

		return string(data), nil
	},
	"file.exists": func(s string) (string, error) {
		info, err := os.Stat(strings.TrimSpace(s))

		return strconv.FormatBool(err == nil && info.Mode().IsRegular()), nil
	},
}

var nonAlphanumeric = regexp.MustCompile(`[^0-9A-Za-z]`)

// firstToken returns the prefix up to the first non alphanumeric character.
func firstToken(s string) string {
	for i, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return s[:i]
		}
	}

	return s
}

// lastToken returns the suffix after the last non alphanumeric character.
func lastToken(s string) string {
	index := nonAlphanumeric.FindAllStringIndex(s, -1)
	if len(index) == 0 {
		return s
	}

	return s[index[len(index)-1][1]:]
}

func sanitize(s string) string {
	return nonAlphanumeric.ReplaceAllString(s, "")
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}

// formatTimestamp formats an epoch milliseconds integer as UTC, or returns
// the empty string when the content does not parse.
func formatTimestamp(s, layout string) string {
	millis, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return ""
	}

	return time.UnixMilli(millis).UTC().Format(layout)
}
