package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jkroepke/nyx/pkg/config"
	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/jkroepke/nyx/pkg/nyx"
	"github.com/jkroepke/nyx/pkg/state"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Exit codes, one per error family.
const (
	exitOK            = 0
	exitConfiguration = 1
	exitGit           = 2
	exitRelease       = 3
	exitTransport     = 4
)

type rootFlags struct {
	bump                    string
	configurationFile       string
	directory               string
	dryRun                  bool
	initialVersion          string
	preset                  string
	releaseLenient          bool
	releasePrefix           string
	resume                  bool
	scheme                  string
	sharedConfigurationFile string
	stateFile               string
	verbosity               string
	versionOverride         string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger().Level(zerolog.WarnLevel)

	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "nyx",
		Short:         "Nyx automates semantic releases from your commit history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.bump, "bump", "", "pin the version identifier to bump instead of inferring it")
	pf.StringVar(&flags.configurationFile, "configuration-file", "", "path to a custom configuration file")
	pf.StringVarP(&flags.directory, "directory", "d", "", "working directory of the repository")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "log the actions without mutating the repository")
	pf.StringVar(&flags.initialVersion, "initial-version", "", "version to use when no previous release exists")
	pf.StringVar(&flags.preset, "preset", "", "name of the configuration preset to load")
	pf.BoolVar(&flags.releaseLenient, "release-lenient", false, "tolerate arbitrary prefixes when reading release tags")
	pf.StringVar(&flags.releasePrefix, "release-prefix", "", "prefix attached to release tag names")
	pf.BoolVar(&flags.resume, "resume", false, "resume from a previously stored state file")
	pf.StringVar(&flags.scheme, "scheme", "", "versioning scheme (semver or maven)")
	pf.StringVar(&flags.sharedConfigurationFile, "shared-configuration-file", "", "path to a shared configuration file")
	pf.StringVar(&flags.stateFile, "state-file", "", "path of the state file to write after each command")
	pf.StringVarP(&flags.verbosity, "verbosity", "v", "", "logging verbosity (trace, debug, info, warning, error)")
	pf.StringVar(&flags.versionOverride, "version-override", "", "release this exact version instead of inferring one")

	newPipeline := func(cmd *cobra.Command) (*nyx.Nyx, error) {
		layer := commandLineLayer(cmd, flags)

		configuration, err := config.New(logger)
		if err != nil {
			return nil, err
		}

		if err := configuration.WithCommandLineConfiguration(layer); err != nil {
			return nil, err
		}

		logger = logger.Level(verbosityLevel(configuration.Verbosity()))

		return nyx.New(logger, nyx.WithConfiguration(configuration)), nil
	}

	pipeline := func(runner func(*nyx.Nyx) (*state.State, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			n, err := newPipeline(cmd)
			if err != nil {
				return err
			}

			st, err := runner(n)
			if err != nil {
				return err
			}

			printSummary(st)

			return nil
		}
	}

	root.AddCommand(
		&cobra.Command{Use: "clean", Short: "Remove the artifacts of previous runs", RunE: pipeline((*nyx.Nyx).Clean)},
		&cobra.Command{Use: "infer", Short: "Infer the next version from the commit history", RunE: pipeline((*nyx.Nyx).Infer)},
		&cobra.Command{Use: "make", Short: "Build the configured release assets", RunE: pipeline((*nyx.Nyx).Make)},
		&cobra.Command{Use: "mark", Short: "Commit, tag and push the release", RunE: pipeline((*nyx.Nyx).Mark)},
		&cobra.Command{Use: "publish", Short: "Run the full pipeline and publish the release", RunE: pipeline((*nyx.Nyx).Publish)},
	)

	// A bare invocation runs the whole pipeline.
	root.RunE = pipeline((*nyx.Nyx).Publish)

	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		logger.Err(err).Msg("release pipeline failed")

		return exitCode(err)
	}

	return exitOK
}

// commandLineLayer builds the highest priority configuration layer from the
// flags the user actually set.
func commandLineLayer(cmd *cobra.Command, flags *rootFlags) *config.Layer {
	layer := &config.Layer{}

	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}

	set("bump", func() { layer.Bump = &flags.bump })
	set("configuration-file", func() { layer.ConfigurationFile = &flags.configurationFile })
	set("directory", func() { layer.Directory = &flags.directory })
	set("dry-run", func() { layer.DryRun = &flags.dryRun })
	set("initial-version", func() { layer.InitialVersion = &flags.initialVersion })
	set("preset", func() { layer.Preset = &flags.preset })
	set("release-lenient", func() { layer.ReleaseLenient = &flags.releaseLenient })
	set("release-prefix", func() { layer.ReleasePrefix = &flags.releasePrefix })
	set("resume", func() { layer.Resume = &flags.resume })
	set("scheme", func() { layer.Scheme = &flags.scheme })
	set("shared-configuration-file", func() { layer.SharedConfigurationFile = &flags.sharedConfigurationFile })
	set("state-file", func() { layer.StateFile = &flags.stateFile })
	set("verbosity", func() { layer.Verbosity = &flags.verbosity })
	set("version-override", func() { layer.Version = &flags.versionOverride })

	return layer
}

func printSummary(st *state.State) {
	if st == nil {
		return
	}

	version := color.New(color.FgGreen, color.Bold).Sprint(st.Version)
	if !st.NewVersion {
		version = color.New(color.FgYellow).Sprintf("%s (no new version)", st.Version)
	}

	fmt.Fprintf(os.Stdout, "version: %s\n", version)

	if st.ReleaseScope.PreviousVersion != "" {
		fmt.Fprintf(os.Stdout, "previous: %s\n", st.ReleaseScope.PreviousVersion)
	}

	if st.Bump != "" {
		fmt.Fprintf(os.Stdout, "bump: %s\n", st.Bump)
	}
}

func verbosityLevel(verbosity string) zerolog.Level {
	switch verbosity {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

func exitCode(err error) int {
	var (
		gitError        *errs.GitError
		releaseError    *errs.ReleaseError
		securityError   *errs.SecurityError
		malformed       *errs.MalformedVersionError
		illegalProperty *errs.IllegalPropertyError
		dataAccess      *errs.DataAccessError
	)

	switch {
	case errors.As(err, &securityError):
		return exitTransport
	case errors.As(err, &gitError):
		if gitError.Kind == errs.GitAuth || gitError.Kind == errs.GitProtocol {
			return exitTransport
		}

		return exitGit
	case errors.As(err, &releaseError):
		return exitRelease
	case errors.As(err, &malformed), errors.As(err, &illegalProperty), errors.As(err, &dataAccess):
		return exitConfiguration
	default:
		return exitConfiguration
	}
}
