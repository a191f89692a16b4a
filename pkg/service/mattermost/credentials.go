package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
	"github.com/unread-lab/catchup/pkg/domain/types"
)

// StaticToken provides a pre-issued personal access token
type StaticToken string

var _ interfaces.CredentialProvider = StaticToken("")

func (t StaticToken) Acquire(_ context.Context) (string, error) {
	if t == "" {
		return "", goerr.Wrap(types.ErrInvalidConfig, "access token is empty")
	}
	return string(t), nil
}

// PasswordLogin exchanges a username and password for a session token via
// the login endpoint. The token arrives in the Token response header.
type PasswordLogin struct {
	BaseURL  string
	LoginID  string
	Password string `masq:"secret"`

	// HTTPClient overrides the client used for the login call
	HTTPClient *http.Client
}

var _ interfaces.CredentialProvider = &PasswordLogin{}

func (p *PasswordLogin) Acquire(ctx context.Context) (string, error) {
	if p.LoginID == "" || p.Password == "" {
		return "", goerr.Wrap(types.ErrInvalidConfig, "login ID and password are required")
	}

	body, err := json.Marshal(apiLoginRequest{LoginID: p.LoginID, Password: p.Password})
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal login request")
	}

	endpoint := NormalizeBaseURL(p.BaseURL) + "/users/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", goerr.Wrap(err, "failed to build login request")
	}
	req.Header.Set("Content-Type", "application/json")

	hc := p.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "login request failed")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", goerr.Wrap(types.ErrAuthentication, "login rejected",
			goerr.V("status", resp.StatusCode), goerr.V("login_id", p.LoginID))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", goerr.New("login failed", goerr.V("status", resp.StatusCode))
	}

	token := resp.Header.Get("Token")
	if token == "" {
		return "", goerr.New("login response carried no session token")
	}
	return token, nil
}
