package config

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestBuiltinConfig(t *testing.T) {
	rawConfig := make(map[string]interface{})
	assert.Nil(t, yaml.Unmarshal(defaultConfigData, &rawConfig))

	knownFields := make(map[string]bool)
	rt := reflect.TypeOf(Configuration{})
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		assert.NotEmpty(t, jsonTag)
		jsonField := strings.Split(jsonTag, ",")[0]
		knownFields[jsonField] = true

		if _, ok := rawConfig[jsonField]; !ok {
			assert.False(t, true, "default config missing field: %q", jsonField)
		}
	}

	for k := range rawConfig {
		_, ok := knownFields[k]
		assert.True(t, ok, "default config contains invalid field: %q", k)
	}
}

func TestDefaultConfig(t *testing.T) {
	// Will panic() on load failure because it should never happen at runtime.
	cfg := defaultConfig()
	assert.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, `jobsh:\w\$ `, cfg.Prompt)
}

func TestLoad(t *testing.T) {
	cases := map[string]struct {
		contents string
		check    func(t *testing.T, cfg *Configuration)
		wantErr  string
	}{
		"missing file uses defaults": {
			check: func(t *testing.T, cfg *Configuration) {
				assert.Equal(t, defaultConfig().Prompt, cfg.Prompt)
				assert.Equal(t, "warn", cfg.LogLevel)
			},
		},
		"partial file keeps defaults": {
			contents: "prompt: '$ '\nlog_level: debug\n",
			check: func(t *testing.T, cfg *Configuration) {
				assert.Equal(t, "$ ", cfg.Prompt)
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "auto", cfg.Color)
			},
		},
		"aliases merge": {
			contents: "aliases:\n  g: git\n",
			check: func(t *testing.T, cfg *Configuration) {
				assert.Equal(t, "git", cfg.Aliases["g"])
				assert.Equal(t, "ls -l", cfg.Aliases["ll"])
			},
		},
		"unknown field": {
			contents: "ssh_port: 22\n",
			wantErr:  "unknown field",
		},
		"bad color": {
			contents: "color: sometimes\n",
			wantErr:  "oneof",
		},
		"negative history": {
			contents: "history_limit: -1\n",
			wantErr:  "gte",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tc.contents != "" {
				require.NoError(t, afero.WriteFile(fs, "/cfg/config.yaml", []byte(tc.contents), 0600))
			}

			cfg, err := loadFs(fs, "/cfg")
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "/cfg", cfg.Dir())
			tc.check(t, cfg)
		})
	}
}

func TestLoad_configFilePath(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/config.yaml", []byte("color: never\n"), 0600))

	cfg, err := loadFs(fs, "/cfg/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/cfg", cfg.Dir())
	assert.Equal(t, "never", cfg.Color)
}

func TestResolvePath(t *testing.T) {
	t.Setenv("HOME", "/home/test")
	cfg := &Configuration{configurationDir: "/cfg"}

	assert.Equal(t, "", cfg.ResolvePath(""))
	assert.Equal(t, "/home/test/.jobshrc", cfg.ResolvePath("~/.jobshrc"))
	assert.Equal(t, "/home/test", cfg.ResolvePath("~"))
	assert.Equal(t, "/etc/jobshrc", cfg.ResolvePath("/etc/jobshrc"))
	assert.Equal(t, filepath.Join("/cfg", "history"), cfg.ResolvePath("history"))
}

func TestEnvironment(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/base.env", []byte("A=1\nB=2\n"), 0600))
	require.NoError(t, afero.WriteFile(fs, "/cfg/override.env", []byte("# comment\nB=3\nexport C=\"x y\"\n"), 0600))

	cfg := &Configuration{
		hostFs:           fs,
		configurationDir: "/cfg",
		EnvFiles:         []string{"base.env", "override.env"},
	}

	env, err := cfg.Environment()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "3", "C": "x y"}, env)

	cfg.EnvFiles = append(cfg.EnvFiles, "missing.env")
	_, err = cfg.Environment()
	assert.Error(t, err)
}

func TestEventLog(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := &Configuration{hostFs: fs, configurationDir: "/cfg", EventLog: "events.log"}

	for _, line := range []string{"one\n", "two\n"} {
		fd, err := cfg.OpenEventLog()
		require.NoError(t, err)
		_, err = fd.WriteString(line)
		require.NoError(t, err)
		require.NoError(t, fd.Close())
	}

	fd, err := cfg.ReadEventLog()
	require.NoError(t, err)
	defer fd.Close()
	contents, err := afero.ReadAll(fd)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(contents))

	cfg.EventLog = ""
	_, err = cfg.OpenEventLog()
	assert.Error(t, err)
}
