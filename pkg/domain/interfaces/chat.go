package interfaces

import (
	"context"

	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/domain/types"
)

// ChatClient provides access to the chat platform's REST API
type ChatClient interface {
	// Me returns the authenticated user. Used as the startup authentication
	// check; an error wrapping types.ErrAuthentication is fatal.
	Me(ctx context.Context) (*model.User, error)

	// ListUnreadChannels returns multi-party channels where the caller is a
	// member and the last-read marker is strictly behind the latest post.
	// One-on-one direct messages are excluded.
	ListUnreadChannels(ctx context.Context) ([]*model.Channel, error)

	// FetchMessages returns all posts newer than the channel's last-viewed
	// marker (or the given override marker when non-nil), ordered by
	// ascending creation time, with author display names resolved.
	FetchMessages(ctx context.Context, channel *model.Channel, marker *model.Marker) ([]*model.Post, error)

	// Acknowledge marks the channel as viewed on the server. Best-effort:
	// callers log failures and continue.
	Acknowledge(ctx context.Context, channelID types.ChannelID) error

	// Close releases the underlying HTTP session
	Close() error
}

// CredentialProvider acquires an access token for the chat platform.
// Concrete variants: token-from-config, interactive login, external SSO.
type CredentialProvider interface {
	Acquire(ctx context.Context) (string, error)
}
