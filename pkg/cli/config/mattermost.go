package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
	"github.com/unread-lab/catchup/pkg/domain/types"
	"github.com/unread-lab/catchup/pkg/service/mattermost"
	"github.com/urfave/cli/v3"
)

// Mattermost holds CLI flags for the chat platform connection
type Mattermost struct {
	baseURL  string
	token    string
	loginID  string
	password string

	maxRetries  int
	backoffBase time.Duration
}

// Flags returns CLI flags for Mattermost configuration
func (x *Mattermost) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "mattermost-url",
			Usage:       "Mattermost server URL (e.g. https://chat.example.com)",
			Sources:     cli.EnvVars("CATCHUP_MATTERMOST_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "mattermost-token",
			Usage:       "Personal access token (preferred over password login)",
			Sources:     cli.EnvVars("CATCHUP_MATTERMOST_TOKEN"),
			Destination: &x.token,
		},
		&cli.StringFlag{
			Name:        "mattermost-login-id",
			Usage:       "Login ID for password authentication",
			Sources:     cli.EnvVars("CATCHUP_MATTERMOST_LOGIN_ID"),
			Destination: &x.loginID,
		},
		&cli.StringFlag{
			Name:        "mattermost-password",
			Usage:       "Password for password authentication",
			Sources:     cli.EnvVars("CATCHUP_MATTERMOST_PASSWORD"),
			Destination: &x.password,
		},
		&cli.IntFlag{
			Name:        "mattermost-max-retries",
			Usage:       "Retry budget for transient API failures",
			Value:       mattermost.DefaultMaxRetries,
			Sources:     cli.EnvVars("CATCHUP_MATTERMOST_MAX_RETRIES"),
			Destination: &x.maxRetries,
		},
		&cli.DurationFlag{
			Name:        "mattermost-backoff",
			Usage:       "Initial retry backoff for transient API failures",
			Value:       mattermost.DefaultBackoffBase,
			Sources:     cli.EnvVars("CATCHUP_MATTERMOST_BACKOFF"),
			Destination: &x.backoffBase,
		},
	}
}

func (x Mattermost) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("base_url", x.baseURL),
		slog.Bool("token_set", x.token != ""),
		slog.String("login_id", x.loginID),
	)
}

// Validate checks that exactly one credential style is configured
func (x *Mattermost) Validate() error {
	if x.baseURL == "" {
		return goerr.Wrap(types.ErrInvalidConfig, "mattermost-url is required")
	}
	if x.token == "" && (x.loginID == "" || x.password == "") {
		return goerr.Wrap(types.ErrInvalidConfig,
			"either mattermost-token or mattermost-login-id with mattermost-password is required")
	}
	return nil
}

// Configure creates the chat client and verifies the credential against the
// server. The caller is responsible for calling Close().
func (x *Mattermost) Configure(ctx context.Context) (interfaces.ChatClient, error) {
	if err := x.Validate(); err != nil {
		return nil, err
	}

	var creds interfaces.CredentialProvider
	if x.token != "" {
		creds = mattermost.StaticToken(x.token)
	} else {
		creds = &mattermost.PasswordLogin{
			BaseURL:  x.baseURL,
			LoginID:  x.loginID,
			Password: x.password,
		}
	}

	client, err := mattermost.New(ctx, x.baseURL, creds,
		mattermost.WithMaxRetries(x.maxRetries),
		mattermost.WithBackoffBase(x.backoffBase),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to Mattermost")
	}
	return client, nil
}
