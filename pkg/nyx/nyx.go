// Package nyx is the entry point of the release pipeline. It lazily builds
// the configuration, repository and state, memoizes command instances and
// runs them in dependency order with per-command up-to-date short circuits.
//
// A Nyx instance is not safe for concurrent use; the pipeline assumes
// exclusive access to the working tree, the index and the state file.
package nyx

import (
	"github.com/jkroepke/nyx/pkg/command"
	"github.com/jkroepke/nyx/pkg/config"
	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/jkroepke/nyx/pkg/fileio"
	"github.com/jkroepke/nyx/pkg/git"
	"github.com/jkroepke/nyx/pkg/services"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/rs/zerolog"
)

// commandName identifies a pipeline command.
type commandName string

const (
	commandClean   commandName = "Clean"
	commandArrange commandName = "Arrange"
	commandInfer   commandName = "Infer"
	commandMake    commandName = "Make"
	commandMark    commandName = "Mark"
	commandPublish commandName = "Publish"
)

// prerequisites lists, per command, the commands that must run first.
var prerequisites = map[commandName][]commandName{
	commandClean:   {},
	commandArrange: {},
	commandInfer:   {commandArrange},
	commandMake:    {commandArrange, commandInfer},
	commandMark:    {commandArrange, commandInfer, commandMake},
	commandPublish: {commandArrange, commandInfer, commandMake, commandMark},
}

// Nyx orchestrates the release pipeline over one repository.
type Nyx struct {
	logger zerolog.Logger

	configuration *config.Configuration
	repository    git.Repository
	st            *state.State
	registry      *services.Registry

	commands map[commandName]command.Command
}

// Option customizes a Nyx instance.
type Option func(*Nyx)

// WithRepository injects an already opened repository, bypassing the lazy
// open of the configured directory.
func WithRepository(repository git.Repository) Option {
	return func(n *Nyx) {
		n.repository = repository
	}
}

// WithConfiguration injects a pre-built configuration resolver.
func WithConfiguration(configuration *config.Configuration) Option {
	return func(n *Nyx) {
		n.configuration = configuration
	}
}

// WithServiceRegistry replaces the default service registry.
func WithServiceRegistry(registry *services.Registry) Option {
	return func(n *Nyx) {
		n.registry = registry
	}
}

// New creates a Nyx instance. Collaborators not injected through options are
// built lazily on first use.
func New(logger zerolog.Logger, options ...Option) *Nyx {
	n := &Nyx{
		logger:   logger,
		commands: make(map[commandName]command.Command),
	}

	for _, option := range options {
		option(n)
	}

	if n.registry == nil {
		n.registry = services.DefaultRegistry(logger)
	}

	return n
}

// Configuration returns the configuration, building it on first access.
func (n *Nyx) Configuration() (*config.Configuration, error) {
	if n.configuration == nil {
		configuration, err := config.New(n.logger)
		if err != nil {
			return nil, err
		}

		n.configuration = configuration
	}

	return n.configuration, nil
}

// Repository returns the repository, opening the configured directory on
// first access.
func (n *Nyx) Repository() (git.Repository, error) {
	if n.repository == nil {
		configuration, err := n.Configuration()
		if err != nil {
			return nil, err
		}

		repository, err := git.Open(n.logger, configuration.Directory())
		if err != nil {
			return nil, err
		}

		n.repository = repository
	}

	return n.repository, nil
}

// State returns the run state, creating it on first access. When resume is
// enabled and the state file exists, the stored state seeds the run.
func (n *Nyx) State() (*state.State, error) {
	if n.st == nil {
		configuration, err := n.Configuration()
		if err != nil {
			return nil, err
		}

		if stateFile := configuration.StateFile(); configuration.Resume() && stateFile != "" && fileio.Exists(stateFile) {
			resumed, err := state.Resume(stateFile, configuration)
			if err != nil {
				return nil, err
			}

			n.logger.Info().Str("file", stateFile).Msg("resumed state")
			n.st = resumed

			return n.st, nil
		}

		n.st = state.New(configuration)
	}

	return n.st, nil
}

// Clean runs the Clean command. It has no prerequisites and is never cached.
func (n *Nyx) Clean() (*state.State, error) {
	return n.run(commandClean)
}

// Infer runs Arrange and Infer.
func (n *Nyx) Infer() (*state.State, error) {
	return n.run(commandInfer)
}

// Make runs the pipeline through Make.
func (n *Nyx) Make() (*state.State, error) {
	return n.run(commandMake)
}

// Mark runs the pipeline through Mark.
func (n *Nyx) Mark() (*state.State, error) {
	return n.run(commandMark)
}

// Publish runs the whole pipeline.
func (n *Nyx) Publish() (*state.State, error) {
	return n.run(commandPublish)
}

func (n *Nyx) run(name commandName) (*state.State, error) {
	for _, prerequisite := range prerequisites[name] {
		if _, err := n.runSingle(prerequisite); err != nil {
			return nil, err
		}
	}

	return n.runSingle(name)
}

// runSingle executes one command, reusing the memoized instance and
// short-circuiting when the command reports itself up to date.
func (n *Nyx) runSingle(name commandName) (*state.State, error) {
	cmd, err := n.command(name)
	if err != nil {
		return nil, err
	}

	upToDate, err := cmd.IsUpToDate()
	if err != nil {
		return nil, err
	}

	if upToDate {
		n.logger.Debug().Str("command", cmd.Name()).Msg("command is up to date, skipping")

		return n.State()
	}

	n.logger.Debug().Str("command", cmd.Name()).Msg("running command")

	st, err := cmd.Run()
	if err != nil {
		return nil, err
	}

	// Clean has just removed the state file; saving would write it back.
	if name == commandClean {
		return st, nil
	}

	if err := n.saveState(st); err != nil {
		return nil, err
	}

	return st, nil
}

// saveState persists the state file after a command, unless dry-run is on
// or no state file is configured.
func (n *Nyx) saveState(st *state.State) error {
	configuration := st.Configuration()

	stateFile := configuration.StateFile()
	if stateFile == "" || configuration.DryRun() {
		return nil
	}

	return st.Save(stateFile)
}

func (n *Nyx) command(name commandName) (command.Command, error) {
	if cmd, ok := n.commands[name]; ok {
		return cmd, nil
	}

	st, err := n.State()
	if err != nil {
		return nil, err
	}

	repository, err := n.Repository()
	if err != nil {
		return nil, err
	}

	var cmd command.Command

	switch name {
	case commandClean:
		cmd = command.NewClean(n.logger, st, repository)
	case commandArrange:
		cmd = command.NewArrange(n.logger, st, repository)
	case commandInfer:
		cmd = command.NewInfer(n.logger, st, repository)
	case commandMake:
		cmd = command.NewMake(n.logger, st, repository, n.registry)
	case commandMark:
		cmd = command.NewMark(n.logger, st, repository)
	case commandPublish:
		cmd = command.NewPublish(n.logger, st, repository, n.registry)
	default:
		return nil, errs.NewIllegalPropertyError(nil, "unknown command %q", name)
	}

	n.commands[name] = cmd

	return cmd, nil
}
