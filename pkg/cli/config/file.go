package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const envPrefix = "CATCHUP_"

// File holds the optional YAML configuration file. Its values feed the same
// environment variables the flags read, so precedence is flag > env > file.
type File struct {
	path string
}

// Flags returns CLI flags for configuration file loading
func (x *File) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "YAML configuration file (keys mirror the flag names)",
			Sources:     cli.EnvVars("CATCHUP_CONFIG"),
			Destination: &x.path,
		},
	}
}

// Apply loads the file and exports its values as environment variables for
// keys not already set in the environment. Must run before subcommand flag
// resolution.
func (x *File) Apply() error {
	if x.path == "" {
		return nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(x.path), yaml.Parser()); err != nil {
		return goerr.Wrap(err, "failed to load configuration file", goerr.V("path", x.path))
	}

	// Real environment wins over file values
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, envPrefix), "_", "."))
	}), nil); err != nil {
		return goerr.Wrap(err, "failed to load environment overrides")
	}

	applied := 0
	for _, key := range k.Keys() {
		name := envName(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, k.String(key)); err != nil {
			return goerr.Wrap(err, "failed to export configuration value", goerr.V("key", key))
		}
		applied++
	}

	logging.Default().Debug("configuration file applied",
		"path", x.path, "keys", applied)
	return nil
}

// envName maps a file key like "mattermost.token" or "log-level" to the
// matching flag environment variable
func envName(key string) string {
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return envPrefix + strings.ToUpper(key)
}
