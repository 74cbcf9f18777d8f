// Package changelog renders the release scope into a keep-a-changelog style
// document, grouping entries into breaking changes, features and fixes.
package changelog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

const insertMarker = "<!-- nyx insert marker -->"

var sshRemote = regexp.MustCompile(`^git@([^:]+):(.+?)(\.git)?$`)

// Changelog collects release entries and renders them as one version section.
type Changelog struct {
	newVersion string
	oldVersion string
	date       time.Time
	webURL     string
	breaking   []entry
	features   []entry
	fixes      []entry
}

type entry struct {
	message string
	sha     string
}

// New creates an empty changelog for a release happening at the given time.
func New(date time.Time) *Changelog {
	return &Changelog{date: date}
}

// Len returns the number of collected entries.
func (c *Changelog) Len() int {
	return len(c.breaking) + len(c.features) + len(c.fixes)
}

// SetOldVersion records the version the release starts from, used for the
// compare link.
func (c *Changelog) SetOldVersion(version string) {
	c.oldVersion = version
}

// SetNewVersion records the version being released.
func (c *Changelog) SetNewVersion(version string) {
	c.newVersion = version
}

// SetRemote derives the web URL for compare and commit links from a Git
// remote URL. Unrecognized remotes leave the links off.
func (c *Changelog) SetRemote(remote string) {
	remote = strings.TrimSuffix(remote, ".git")

	if match := sshRemote.FindStringSubmatch(remote); match != nil {
		c.webURL = fmt.Sprintf("https://%s/%s", match[1], match[2])

		return
	}

	if strings.HasPrefix(remote, "https://") || strings.HasPrefix(remote, "http://") {
		c.webURL = remote
	}
}

// AddBreaking records a breaking change.
func (c *Changelog) AddBreaking(message, sha string) {
	c.breaking = append(c.breaking, entry{message: message, sha: sha})
}

// AddFeature records a feature.
func (c *Changelog) AddFeature(message, sha string) {
	c.features = append(c.features, entry{message: message, sha: sha})
}

// AddFix records a bug fix.
func (c *Changelog) AddFix(message, sha string) {
	c.fixes = append(c.fixes, entry{message: message, sha: sha})
}

// String renders the version section.
func (c *Changelog) String() string {
	if c.Len() == 0 {
		return ""
	}

	sb := strings.Builder{}
	date := c.date.Format("2006-01-02")

	if c.webURL != "" && c.oldVersion != "" {
		sb.WriteString(fmt.Sprintf("## [%s](%s/compare/%s...%s) (%s)\n", c.newVersion, c.webURL, c.oldVersion, c.newVersion, date))
	} else {
		sb.WriteString(fmt.Sprintf("## %s (%s)\n", c.newVersion, date))
	}

	c.writeSection(&sb, "⚠ BREAKING CHANGES", c.breaking)
	c.writeSection(&sb, "Features", c.features)
	c.writeSection(&sb, "Bug Fixes", c.fixes)

	return sb.String()
}

func (c *Changelog) writeSection(sb *strings.Builder, header string, entries []entry) {
	if len(entries) == 0 {
		return
	}

	sb.WriteString("\n### ")
	sb.WriteString(header)
	sb.WriteString("\n\n")

	for _, e := range entries {
		if c.webURL != "" && e.sha != "" {
			sb.WriteString(fmt.Sprintf("* %s ([%s](%s/commit/%s))\n", e.message, e.sha, c.webURL, e.sha))
		} else if e.sha != "" {
			sb.WriteString(fmt.Sprintf("* %s (%s)\n", e.message, e.sha))
		} else {
			sb.WriteString(fmt.Sprintf("* %s\n", e.message))
		}
	}
}

// WriteTo prepends the rendered section to the changelog file at path,
// creating the file with a header when it does not exist. An existing file
// must carry the insert marker.
func (c *Changelog) WriteTo(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		document := fmt.Sprintf(
			"# Changelog\n\nAll notable changes to this project will be documented in this file.\n\n%s\n\n%s",
			insertMarker, c.String(),
		)

		if err := os.WriteFile(path, []byte(document), 0o600); err != nil {
			return fmt.Errorf("failed to write changelog: %w", err)
		}

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to read changelog: %w", err)
	}

	if !bytes.Contains(data, []byte(insertMarker)) {
		return fmt.Errorf("changelog file %s does not contain %q", path, insertMarker)
	}

	replacement := []byte(insertMarker + "\n\n" + c.String())
	data = bytes.Replace(data, []byte(insertMarker), replacement, 1)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write changelog: %w", err)
	}

	return nil
}
