package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	DefaultDirName    = ".jobsh"
)

type Configuration struct {
	// hostFs resolves paths outside of the configuration directory like the
	// rc file and env files.
	hostFs           afero.Fs
	configurationDir string

	Prompt       string            `json:"prompt"`
	Color        string            `json:"color" validate:"oneof=always auto never"`
	RCFile       string            `json:"rc_file"`
	HistoryFile  string            `json:"history_file"`
	HistoryLimit int               `json:"history_limit" validate:"gte=0"`
	EnvFiles     []string          `json:"env_files"`
	Aliases      map[string]string `json:"aliases" validate:"dive,keys,required,endkeys,required"`
	LogLevel     string            `json:"log_level" validate:"oneof=trace debug info warn error off"`
	EventLog     string            `json:"event_log"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) host() afero.Fs {
	if c.hostFs == nil {
		c.hostFs = afero.NewOsFs()
	}
	return c.hostFs
}

// Dir returns the configuration directory.
func (c *Configuration) Dir() string {
	return c.configurationDir
}

// ResolvePath expands a leading ~ to the user's home directory and makes
// relative paths relative to the configuration directory.
func (c *Configuration) ResolvePath(name string) string {
	switch {
	case name == "":
		return ""
	case name == "~" || strings.HasPrefix(name, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return name
		}
		return filepath.Join(home, strings.TrimPrefix(name, "~"))
	case filepath.IsAbs(name):
		return name
	default:
		return filepath.Join(c.configurationDir, name)
	}
}

// HistoryPath returns the location of the history file, empty if history
// isn't persisted.
func (c *Configuration) HistoryPath() string {
	return c.ResolvePath(c.HistoryFile)
}

// OpenEventLog opens the job event log in an append only state.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	if c.EventLog == "" {
		return nil, errors.New("event log disabled")
	}
	return c.host().OpenFile(c.ResolvePath(c.EventLog), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func (c *Configuration) ReadEventLog() (afero.File, error) {
	if c.EventLog == "" {
		return nil, errors.New("event log disabled")
	}
	return c.host().OpenFile(c.ResolvePath(c.EventLog), os.O_RDONLY, 0600)
}

// OpenRCFile opens the startup script.
func (c *Configuration) OpenRCFile() (afero.File, error) {
	return c.host().Open(c.ResolvePath(c.RCFile))
}

// Environment reads every env file in order, later files override earlier
// ones.
func (c *Configuration) Environment() (map[string]string, error) {
	out := make(map[string]string)
	for _, name := range c.EnvFiles {
		fd, err := c.host().Open(c.ResolvePath(name))
		if err != nil {
			return nil, err
		}
		vars, err := godotenv.Parse(fd)
		fd.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", name)
		}
		for k, v := range vars {
			out[k] = v
		}
	}
	return out, nil
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
