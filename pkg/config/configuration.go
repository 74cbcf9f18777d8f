package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/jkroepke/nyx/pkg/fileio"
	"github.com/jkroepke/nyx/pkg/version"
	"github.com/rs/zerolog"
)

// Layer indices, highest priority first.
const (
	layerCommandLine = iota
	layerPlugin
	layerCustomLocal
	layerCustomShared
	layerStandardLocal
	layerStandardShared
	layerPreset
	layerDefaults
	layerCount
)

// Search order for the standard configuration files.
var (
	standardLocalFiles  = []string{".nyx.json", ".nyx.yaml", ".nyx.yml"}
	standardSharedFiles = []string{".nyx-shared.json", ".nyx-shared.yaml", ".nyx-shared.yml"}
)

// Configuration is the layered resolver. Option getters walk the layers top
// down and return the first value present; composite blocks are resolved
// lazily and cached until a meta-option changes the layer stack.
type Configuration struct {
	logger zerolog.Logger
	layers [layerCount]*Layer

	conventions  []NamedConvention
	releaseTypes []NamedReleaseType
}

// New builds a resolver over the defaults and whatever standard files exist
// in the default directory.
func New(logger zerolog.Logger) (*Configuration, error) {
	c := &Configuration{logger: logger}
	c.layers[layerDefaults] = DefaultLayer()

	if err := c.updateConfiguredLayers(); err != nil {
		return nil, err
	}

	return c, nil
}

// WithCommandLineConfiguration installs the command-line layer, the highest
// priority source, and re-materializes the derived layers.
func (c *Configuration) WithCommandLineConfiguration(layer *Layer) error {
	c.layers[layerCommandLine] = layer

	return c.updateConfiguredLayers()
}

// WithPluginConfiguration installs the plugin (programmatic) layer and
// re-materializes the derived layers.
func (c *Configuration) WithPluginConfiguration(layer *Layer) error {
	c.layers[layerPlugin] = layer

	return c.updateConfiguredLayers()
}

// updateConfiguredLayers re-reads the file-backed and preset layers after a
// change to the meta-options, and drops the composite caches.
func (c *Configuration) updateConfiguredLayers() error {
	c.conventions = nil
	c.releaseTypes = nil

	directory := c.Directory()

	c.layers[layerStandardLocal] = c.loadStandardFile(directory, standardLocalFiles)
	c.layers[layerStandardShared] = c.loadStandardFile(directory, standardSharedFiles)

	customLocal, err := c.loadCustomFile(c.ConfigurationFile(), directory)
	if err != nil {
		return err
	}

	c.layers[layerCustomLocal] = customLocal

	customShared, err := c.loadCustomFile(c.SharedConfigurationFile(), directory)
	if err != nil {
		return err
	}

	c.layers[layerCustomShared] = customShared

	if preset := c.Preset(); preset != "" {
		layer, err := PresetLayer(preset)
		if err != nil {
			return err
		}

		c.layers[layerPreset] = layer
	} else {
		c.layers[layerPreset] = nil
	}

	return nil
}

func (c *Configuration) loadStandardFile(directory string, names []string) *Layer {
	for _, name := range names {
		path := filepath.Join(directory, name)
		if !fileio.Exists(path) {
			continue
		}

		layer, err := LoadLayer(path)
		if err != nil {
			c.logger.Error().Err(err).Str("file", path).Msg("skipping unreadable configuration file")

			return nil
		}

		c.logger.Debug().Str("file", path).Msg("loaded configuration file")

		return layer
	}

	return nil
}

func (c *Configuration) loadCustomFile(path, directory string) (*Layer, error) {
	if path == "" {
		return nil, nil
	}

	if strings.TrimSpace(path) == "" {
		c.logger.Error().Msg("blank configuration file path, dropping the layer")

		return nil, nil
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(directory, path)
	}

	return LoadLayer(path)
}

// resolveString walks the layers top down, skipping the given index, and
// returns the first value present.
func (c *Configuration) resolveString(skip int, pick func(*Layer) *string) string {
	for i := 0; i < layerCount; i++ {
		if i == skip || c.layers[i] == nil {
			continue
		}

		if value := pick(c.layers[i]); value != nil {
			return *value
		}
	}

	return ""
}

func (c *Configuration) resolveBool(pick func(*Layer) *bool) bool {
	for i := 0; i < layerCount; i++ {
		if c.layers[i] == nil {
			continue
		}

		if value := pick(c.layers[i]); value != nil {
			return *value
		}
	}

	return false
}

// Bump returns the pinned bump identifier, or empty when inference decides.
func (c *Configuration) Bump() string {
	return c.resolveString(-1, func(l *Layer) *string { return l.Bump })
}

// ConfigurationFile returns the custom local file path. Its own layer is
// skipped so the option cannot reference itself.
func (c *Configuration) ConfigurationFile() string {
	return c.resolveString(layerCustomLocal, func(l *Layer) *string { return l.ConfigurationFile })
}

// SharedConfigurationFile returns the custom shared file path, skipping the
// custom shared layer itself.
func (c *Configuration) SharedConfigurationFile() string {
	return c.resolveString(layerCustomShared, func(l *Layer) *string { return l.SharedConfigurationFile })
}

// Preset returns the preset name, skipping the preset layer itself.
func (c *Configuration) Preset() string {
	return c.resolveString(layerPreset, func(l *Layer) *string { return l.Preset })
}

// Directory returns the working directory all relative paths resolve against.
func (c *Configuration) Directory() string {
	return c.resolveString(-1, func(l *Layer) *string { return l.Directory })
}

// DryRun reports whether repository and service mutations are suppressed.
func (c *Configuration) DryRun() bool {
	return c.resolveBool(func(l *Layer) *bool { return l.DryRun })
}

// InitialVersion returns the version used when no previous release exists.
func (c *Configuration) InitialVersion() string {
	return c.resolveString(-1, func(l *Layer) *string { return l.InitialVersion })
}

// ReleaseLenient reports whether tag parsing tolerates arbitrary prefixes.
func (c *Configuration) ReleaseLenient() bool {
	return c.resolveBool(func(l *Layer) *bool { return l.ReleaseLenient })
}

// ReleasePrefix returns the prefix attached to release tag names.
func (c *Configuration) ReleasePrefix() string {
	return c.resolveString(-1, func(l *Layer) *string { return l.ReleasePrefix })
}

// Resume reports whether a stored state file seeds the run.
func (c *Configuration) Resume() bool {
	return c.resolveBool(func(l *Layer) *bool { return l.Resume })
}

// Scheme returns the resolved versioning scheme.
func (c *Configuration) Scheme() (version.Scheme, error) {
	return version.ParseScheme(c.resolveString(-1, func(l *Layer) *string { return l.Scheme }))
}

// StateFile returns the configured state file path, resolved against the
// directory, or empty when no state file is kept.
func (c *Configuration) StateFile() string {
	path := c.resolveString(-1, func(l *Layer) *string { return l.StateFile })
	if path == "" {
		return ""
	}

	return c.ResolvePath(path)
}

// Verbosity returns the configured logging verbosity.
func (c *Configuration) Verbosity() string {
	return c.resolveString(-1, func(l *Layer) *string { return l.Verbosity })
}

// Version returns the version override, or empty when the version is inferred.
func (c *Configuration) Version() string {
	return c.resolveString(-1, func(l *Layer) *string { return l.Version })
}

// Assets returns the asset map from the highest layer defining one.
func (c *Configuration) Assets() map[string]*Asset {
	for i := 0; i < layerCount; i++ {
		if c.layers[i] != nil && c.layers[i].Assets != nil {
			return c.layers[i].Assets
		}
	}

	return nil
}

// Services returns the service map from the highest layer defining one.
func (c *Configuration) Services() map[string]*ServiceConfig {
	for i := 0; i < layerCount; i++ {
		if c.layers[i] != nil && c.layers[i].Services != nil {
			return c.layers[i].Services
		}
	}

	return nil
}

// Git returns the Git options from the highest layer defining them.
func (c *Configuration) Git() *GitConfig {
	for i := 0; i < layerCount; i++ {
		if c.layers[i] != nil && c.layers[i].Git != nil {
			return c.layers[i].Git
		}
	}

	return nil
}

// ResolvePath resolves a configured path against the resolved directory.
func (c *Configuration) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(c.Directory(), path)
}

// CommitMessageConventions resolves the enabled conventions, in order. An
// enabled name with no item in any layer is an IllegalPropertyError.
func (c *Configuration) CommitMessageConventions() ([]NamedConvention, error) {
	if c.conventions != nil {
		return c.conventions, nil
	}

	enabled := c.enabledConventionNames()
	resolved := make([]NamedConvention, 0, len(enabled))

	for _, name := range enabled {
		item := c.conventionItem(name)
		if item == nil {
			return nil, errs.NewIllegalPropertyError(nil, "commit message convention %q is enabled but not defined", name)
		}

		resolved = append(resolved, NamedConvention{Name: name, Convention: item})
	}

	c.conventions = resolved

	return resolved, nil
}

func (c *Configuration) enabledConventionNames() []string {
	for i := 0; i < layerCount; i++ {
		if c.layers[i] != nil && c.layers[i].CommitMessageConventions != nil && c.layers[i].CommitMessageConventions.Enabled != nil {
			return *c.layers[i].CommitMessageConventions.Enabled
		}
	}

	return nil
}

func (c *Configuration) conventionItem(name string) *CommitMessageConvention {
	for i := 0; i < layerCount; i++ {
		if c.layers[i] == nil || c.layers[i].CommitMessageConventions == nil {
			continue
		}

		if item, ok := c.layers[i].CommitMessageConventions.Items[name]; ok {
			return item
		}
	}

	return nil
}

// ReleaseTypes resolves the enabled release types, in matching order.
func (c *Configuration) ReleaseTypes() ([]NamedReleaseType, error) {
	if c.releaseTypes != nil {
		return c.releaseTypes, nil
	}

	enabled := c.enabledReleaseTypeNames()
	resolved := make([]NamedReleaseType, 0, len(enabled))

	for _, name := range enabled {
		item := c.releaseTypeItem(name)
		if item == nil {
			return nil, errs.NewIllegalPropertyError(nil, "release type %q is enabled but not defined", name)
		}

		resolved = append(resolved, NamedReleaseType{Name: name, ReleaseType: item})
	}

	c.releaseTypes = resolved

	return resolved, nil
}

func (c *Configuration) enabledReleaseTypeNames() []string {
	for i := 0; i < layerCount; i++ {
		if c.layers[i] != nil && c.layers[i].ReleaseTypes != nil && c.layers[i].ReleaseTypes.Enabled != nil {
			return *c.layers[i].ReleaseTypes.Enabled
		}
	}

	return nil
}

func (c *Configuration) releaseTypeItem(name string) *ReleaseType {
	for i := 0; i < layerCount; i++ {
		if c.layers[i] == nil || c.layers[i].ReleaseTypes == nil {
			continue
		}

		if item, ok := c.layers[i].ReleaseTypes.Items[name]; ok {
			return item
		}
	}

	return nil
}

// Fingerprint digests the resolved options that pin a run's outcome. The
// up-to-date checks compare it to detect configuration changes between runs.
func (c *Configuration) Fingerprint() string {
	parts := []string{
		"bump=" + c.Bump(),
		"configurationFile=" + c.ConfigurationFile(),
		"directory=" + c.Directory(),
		"initialVersion=" + c.InitialVersion(),
		"preset=" + c.Preset(),
		fmt.Sprintf("releaseLenient=%t", c.ReleaseLenient()),
		"releasePrefix=" + c.ReleasePrefix(),
		"sharedConfigurationFile=" + c.SharedConfigurationFile(),
		"version=" + c.Version(),
	}

	if scheme, err := c.Scheme(); err == nil {
		parts = append(parts, "scheme="+string(scheme))
	}

	if conventions, err := c.CommitMessageConventions(); err == nil {
		for _, convention := range conventions {
			parts = append(parts, "convention="+convention.Name)
		}
	}

	if releaseTypes, err := c.ReleaseTypes(); err == nil {
		for _, releaseType := range releaseTypes {
			parts = append(parts, "releaseType="+releaseType.Name)
		}
	}

	sort.Strings(parts)
	digest := sha256.Sum256([]byte(strings.Join(parts, "\n")))

	return hex.EncodeToString(digest[:])
}
