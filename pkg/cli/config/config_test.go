package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/unread-lab/catchup/pkg/cli/config"
	"github.com/urfave/cli/v3"
)

// runFlags parses args against the config struct's flags and runs check
// inside the command action
func runFlags(t *testing.T, flags []cli.Flag, args []string, check func()) {
	t.Helper()
	cmd := &cli.Command{
		Name:  "test",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			check()
			return nil
		},
	}
	gt.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...)))
}

func TestLoggerConfigure(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		var cfg config.Logger
		runFlags(t, cfg.Flags(), []string{"--log-level", "debug", "--log-format", "json"}, func() {
			closer := gt.R1(cfg.Configure()).NoError(t)
			closer()
		})
	})

	t.Run("invalid level", func(t *testing.T) {
		var cfg config.Logger
		runFlags(t, cfg.Flags(), []string{"--log-level", "loud"}, func() {
			_, err := cfg.Configure()
			gt.Error(t, err)
		})
	})

	t.Run("file output", func(t *testing.T) {
		var cfg config.Logger
		path := filepath.Join(t.TempDir(), "app.log")
		runFlags(t, cfg.Flags(), []string{"--log-output", path, "--log-format", "json"}, func() {
			closer := gt.R1(cfg.Configure()).NoError(t)
			closer()
			_, err := os.Stat(path)
			gt.NoError(t, err)
		})
	})
}

func TestMattermostValidate(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name: "token",
			args: []string{"--mattermost-url", "https://chat.example.com", "--mattermost-token", "tok"},
		},
		{
			name: "password login",
			args: []string{
				"--mattermost-url", "https://chat.example.com",
				"--mattermost-login-id", "alice", "--mattermost-password", "pw",
			},
		},
		{
			name:    "missing url",
			args:    []string{"--mattermost-token", "tok"},
			wantErr: true,
		},
		{
			name:    "login without password",
			args:    []string{"--mattermost-url", "https://chat.example.com", "--mattermost-login-id", "alice"},
			wantErr: true,
		},
		{
			name:    "no credential",
			args:    []string{"--mattermost-url", "https://chat.example.com"},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg config.Mattermost
			runFlags(t, cfg.Flags(), tc.args, func() {
				err := cfg.Validate()
				if tc.wantErr {
					gt.Error(t, err)
				} else {
					gt.NoError(t, err)
				}
			})
		})
	}
}

func TestStorageConfigure(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		var cfg config.Storage
		runFlags(t, cfg.Flags(), []string{"--storage-backend", "memory"}, func() {
			repo := gt.R1(cfg.Configure()).NoError(t)
			gt.NoError(t, repo.Close())
		})
	})

	t.Run("fs backend", func(t *testing.T) {
		var cfg config.Storage
		dir := t.TempDir()
		runFlags(t, cfg.Flags(), []string{"--storage-dir", dir}, func() {
			repo := gt.R1(cfg.Configure()).NoError(t)
			gt.NoError(t, repo.Close())
		})
	})

	t.Run("unknown backend", func(t *testing.T) {
		var cfg config.Storage
		runFlags(t, cfg.Flags(), []string{"--storage-backend", "redis"}, func() {
			_, err := cfg.Configure()
			gt.Error(t, err)
		})
	})
}

func TestTemplatesConfigure(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		var cfg config.Templates
		runFlags(t, cfg.Flags(), nil, func() {
			tmpl := gt.R1(cfg.Configure()).NoError(t)
			gt.Value(t, tmpl != nil).Equal(true)
		})
	})

	t.Run("override file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompts.toml")
		content := "[prompts]\nanalysis = \"analyze {{.ChannelName}}\"\nsummary = \"sum {{.Analysis}}\"\n"
		gt.NoError(t, os.WriteFile(path, []byte(content), 0644))

		var cfg config.Templates
		runFlags(t, cfg.Flags(), []string{"--prompt-file", path}, func() {
			tmpl := gt.R1(cfg.Configure()).NoError(t)
			gt.Value(t, tmpl != nil).Equal(true)
		})
	})

	t.Run("broken template", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompts.toml")
		gt.NoError(t, os.WriteFile(path, []byte("[prompts]\nanalysis = \"{{.Broken\"\n"), 0644))

		var cfg config.Templates
		runFlags(t, cfg.Flags(), []string{"--prompt-file", path}, func() {
			_, err := cfg.Configure()
			gt.Error(t, err)
		})
	})

	t.Run("missing file", func(t *testing.T) {
		var cfg config.Templates
		runFlags(t, cfg.Flags(), []string{"--prompt-file", "/nonexistent/prompts.toml"}, func() {
			_, err := cfg.Configure()
			gt.Error(t, err)
		})
	})
}

func TestFileApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := "poll-interval: 30s\nmattermost:\n  url: https://chat.example.com\n"
	gt.NoError(t, os.WriteFile(path, []byte(content), 0644))

	os.Unsetenv("CATCHUP_POLL_INTERVAL")
	os.Unsetenv("CATCHUP_MATTERMOST_URL")
	t.Cleanup(func() {
		os.Unsetenv("CATCHUP_POLL_INTERVAL")
		os.Unsetenv("CATCHUP_MATTERMOST_URL")
	})

	var cfg config.File
	runFlags(t, cfg.Flags(), []string{"--config", path}, func() {
		gt.NoError(t, cfg.Apply())
		gt.Value(t, os.Getenv("CATCHUP_POLL_INTERVAL")).Equal("30s")
		gt.Value(t, os.Getenv("CATCHUP_MATTERMOST_URL")).Equal("https://chat.example.com")
	})
}

func TestFileApplyEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	gt.NoError(t, os.WriteFile(path, []byte("log-level: debug\n"), 0644))

	t.Setenv("CATCHUP_LOG_LEVEL", "warn")

	var cfg config.File
	runFlags(t, cfg.Flags(), []string{"--config", path}, func() {
		gt.NoError(t, cfg.Apply())
		gt.Value(t, os.Getenv("CATCHUP_LOG_LEVEL")).Equal("warn")
	})
}
