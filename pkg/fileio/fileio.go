// Package fileio maps structured documents to and from files, selecting the
// codec by file extension. JSON and YAML are supported; both configuration
// and state files go through this mapper so they round-trip identically.
package fileio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/jkroepke/nyx/pkg/errs"
	"gopkg.in/yaml.v3"
)

// Load reads the file at path and unmarshals it into target.
func Load(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.NewDataAccessError(err, "failed to read %s", path)
	}

	switch extension(path) {
	case ".json":
		if err := json.Unmarshal(data, target); err != nil {
			return errs.NewDataAccessError(err, "failed to JSON decode %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, target); err != nil {
			return errs.NewDataAccessError(err, "failed to YAML decode %s", path)
		}
	default:
		return errs.NewDataAccessError(nil, "unsupported file extension for %s", path)
	}

	return nil
}

// Save marshals source and writes it to the file at path, creating parent
// directories as needed.
func Save(path string, source any) error {
	var (
		data []byte
		err  error
	)

	switch extension(path) {
	case ".json":
		data, err = json.MarshalIndent(source, "", "  ")
		if err != nil {
			return errs.NewDataAccessError(err, "failed to JSON encode %s", path)
		}

		data = append(data, '\n')
	case ".yaml", ".yml":
		data, err = yaml.Marshal(source)
		if err != nil {
			return errs.NewDataAccessError(err, "failed to YAML encode %s", path)
		}
	default:
		return errs.NewDataAccessError(nil, "unsupported file extension for %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errs.NewDataAccessError(err, "failed to create directory %s", dir)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errs.NewDataAccessError(err, "failed to write %s", path)
	}

	return nil
}

func extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Exists reports whether the file at path exists and is a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

// Supported reports whether the mapper has a codec for the given path.
func Supported(path string) bool {
	switch extension(path) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
