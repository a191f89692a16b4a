package model

import (
	"time"

	"github.com/unread-lab/catchup/pkg/domain/types"
)

// Channel represents a Mattermost group conversation the authenticated user
// is a member of. The unread fields are derived from the user's channel
// membership at listing time.
type Channel struct {
	ID          types.ChannelID
	TeamID      types.TeamID
	Name        string
	DisplayName string
	Type        types.ChannelType

	// LastViewedAt is the user's last-read marker on the server
	LastViewedAt time.Time
	// LastPostAt is the creation time of the latest post in the channel
	LastPostAt time.Time
	// UnreadCount is the number of posts past the last-read marker
	UnreadCount int
}

// Title returns the human-facing channel name, falling back to the URL name
func (x *Channel) Title() string {
	if x.DisplayName != "" {
		return x.DisplayName
	}
	return x.Name
}

// HasUnread reports whether the last-read marker is strictly behind the
// latest post
func (x *Channel) HasUnread() bool {
	return x.UnreadCount > 0 && x.LastPostAt.After(x.LastViewedAt)
}
