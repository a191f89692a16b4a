package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/domain/types"
	"github.com/unread-lab/catchup/pkg/utils/logging"
)

const (
	// DefaultMaxRetries is the retry budget for transient API failures
	DefaultMaxRetries = 3
	// DefaultBackoffBase is the first retry delay; it doubles per attempt
	DefaultBackoffBase = 500 * time.Millisecond
	// DefaultPageSize is the posts-per-page for history pagination
	DefaultPageSize = 200
)

// client implements interfaces.ChatClient against the Mattermost REST API v4
type client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	maxRetries  int
	backoffBase time.Duration
	pageSize    int

	mu        sync.RWMutex
	userCache map[types.UserID]string
}

var _ interfaces.ChatClient = &client{}

// Option is a functional option for client configuration
type Option func(*client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithMaxRetries sets the retry budget for transient failures
func WithMaxRetries(n int) Option {
	return func(c *client) {
		c.maxRetries = n
	}
}

// WithBackoffBase sets the initial retry delay
func WithBackoffBase(d time.Duration) Option {
	return func(c *client) {
		c.backoffBase = d
	}
}

// WithPageSize sets the posts-per-page for history pagination
func WithPageSize(n int) Option {
	return func(c *client) {
		c.pageSize = n
	}
}

// NormalizeBaseURL appends the API prefix to a server URL when missing
func NormalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/api/v4") {
		baseURL += "/api/v4"
	}
	return baseURL
}

// New creates a Mattermost client, acquires a token from the credential
// provider and verifies it against /users/me. An invalid credential fails
// here, before the polling loop starts.
func New(ctx context.Context, baseURL string, creds interfaces.CredentialProvider, opts ...Option) (interfaces.ChatClient, error) {
	if baseURL == "" {
		return nil, goerr.Wrap(types.ErrInvalidConfig, "Mattermost base URL is required")
	}
	if creds == nil {
		return nil, goerr.Wrap(types.ErrInvalidConfig, "credential provider is required")
	}

	c := &client{
		baseURL:     NormalizeBaseURL(baseURL),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		pageSize:    DefaultPageSize,
		userCache:   make(map[types.UserID]string),
	}
	for _, opt := range opts {
		opt(c)
	}

	token, err := creds.Acquire(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to acquire credentials")
	}
	c.token = token

	if _, err := c.Me(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *client) Me(ctx context.Context) (*model.User, error) {
	var user apiUser
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &user); err != nil {
		return nil, goerr.Wrap(err, "failed to get authenticated user")
	}
	return &model.User{
		ID:        types.UserID(user.ID),
		Username:  user.Username,
		Nickname:  user.Nickname,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

func (c *client) Acknowledge(ctx context.Context, channelID types.ChannelID) error {
	path := fmt.Sprintf("/channels/%s/members/me/view", channelID)
	body := apiChannelView{ChannelID: string(channelID)}
	if err := c.do(ctx, http.MethodPost, path, nil, body, nil); err != nil {
		return goerr.Wrap(err, "failed to acknowledge channel", goerr.V(types.ChannelIDKey, channelID))
	}
	return nil
}

func (c *client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// do performs one API call with bounded retry on transient failures.
// 401/403 responses wrap types.ErrAuthentication and are never retried.
func (c *client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return goerr.Wrap(err, "failed to marshal request body")
		}
		payload = data
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoffBase * time.Duration(1<<(attempt-1))
			if c.backoffBase > 0 {
				backoff += time.Duration(rand.Int63n(int64(c.backoffBase)))
			}
			logging.From(ctx).Warn("retrying Mattermost API call",
				"method", method,
				"path", path,
				"attempt", attempt,
				"backoff", backoff.String(),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return goerr.Wrap(ctx.Err(), "canceled while waiting to retry")
			}
		}

		retryable, err := c.doOnce(ctx, method, endpoint, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}

	return goerr.Wrap(lastErr, "Mattermost API call failed after retries",
		goerr.V("method", method), goerr.V("path", path), goerr.V("attempts", c.maxRetries+1))
}

func (c *client) doOnce(ctx context.Context, method, endpoint string, payload []byte, out any) (retryable bool, err error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return false, goerr.Wrap(err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, goerr.Wrap(ctx.Err(), "request canceled")
		}
		// Network-level failures are transient
		return true, goerr.Wrap(err, "request failed")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return false, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, goerr.Wrap(err, "failed to decode response", goerr.V("status", resp.StatusCode))
		}
		return false, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, goerr.Wrap(types.ErrAuthentication, "Mattermost rejected the credential",
			goerr.V("status", resp.StatusCode))

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, goerr.New("transient API error", goerr.V("status", resp.StatusCode))

	default:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, goerr.New("API error",
			goerr.V("status", resp.StatusCode), goerr.V("body", string(data)))
	}
}
