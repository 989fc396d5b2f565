package config

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// DefaultDir returns $HOME/.jobsh, falling back to the working directory if
// the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDirName
	}
	return filepath.Join(home, DefaultDirName)
}

// Load loads the configuration from the directory. Fields missing from the
// file, or the whole file, fall back to the built-in defaults.
func Load(path string) (*Configuration, error) {
	return loadFs(afero.NewOsFs(), path)
}

func loadFs(hostFs afero.Fs, path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	out := defaultConfig()
	configContents, err := afero.ReadFile(hostFs, filepath.Join(path, ConfigurationName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Use the defaults.
	case err != nil:
		return nil, err
	default:
		if err := yaml.UnmarshalStrict(configContents, out); err != nil {
			return nil, errors.Wrap(err, ConfigurationName)
		}
	}

	if err := out.Validate(); err != nil {
		return nil, errors.Wrap(err, ConfigurationName)
	}

	out.hostFs = hostFs
	out.configurationDir = path
	return out, nil
}

// Initialize writes the default configuration to dir if it doesn't already
// have one.
func Initialize(dir string, logger *log.Logger) (*Configuration, error) {
	return initializeFs(afero.NewOsFs(), dir, logger)
}

func initializeFs(hostFs afero.Fs, dir string, logger *log.Logger) (*Configuration, error) {
	if err := hostFs.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	configPath := filepath.Join(dir, ConfigurationName)
	switch _, err := hostFs.Stat(configPath); {
	case err == nil:
		logger.Printf("%s already exists, leaving it alone", configPath)
	case errors.Is(err, fs.ErrNotExist):
		logger.Printf("Writing %s", configPath)
		if err := afero.WriteFile(hostFs, configPath, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return loadFs(hostFs, dir)
}
