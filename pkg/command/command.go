// Package command implements the pipeline commands: Clean, Arrange, Infer,
// Make, Mark and Publish. Commands share the state and repository, record
// internal attributes for their up-to-date checks and are orchestrated by
// the nyx package.
package command

import (
	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/jkroepke/nyx/pkg/template"
	"github.com/rs/zerolog"
)

// Command is one step of the release pipeline.
type Command interface {
	// Name returns the command name used for logging and internals keys.
	Name() string
	// IsUpToDate reports whether re-running the command on the current
	// inputs would reproduce the current outputs.
	IsUpToDate() (bool, error)
	// Run executes the command and returns the mutated state.
	Run() (*state.State, error)
}

// core carries the collaborators every command shares.
type core struct {
	logger     zerolog.Logger
	state      *state.State
	repository git.Repository
}

// isInternalAttributeUpToDate reports whether the stored internal attribute
// equals the live value.
func (c *core) isInternalAttributeUpToDate(key, value string) bool {
	stored, ok := c.state.Internals[key]

	return ok && stored == value
}

// storeInternalAttribute records an internal attribute. Nothing is stored in
// dry-run so a dry run is never considered up to date.
func (c *core) storeInternalAttribute(key, value string) {
	if c.state.Configuration().DryRun() {
		return
	}

	c.state.Internals[key] = value
}

// renderTemplate renders a template against the state.
func (c *core) renderTemplate(text string) (string, error) {
	if !template.IsTemplate(text) {
		return text, nil
	}

	rendered, err := template.Render(text, c.state)
	if err != nil {
		return "", errs.NewIllegalPropertyError(err, "cannot render template %q", text)
	}

	return rendered, nil
}

// renderFlag renders a boolean-valued template against the state.
func (c *core) renderFlag(text string) (bool, error) {
	rendered, err := c.renderTemplate(text)
	if err != nil {
		return false, err
	}

	return template.ToBoolean(rendered), nil
}
