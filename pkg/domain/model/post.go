package model

import (
	"time"

	"github.com/unread-lab/catchup/pkg/domain/types"
)

// Post is a single message fetched from a channel. Immutable once fetched.
type Post struct {
	ID        types.PostID
	ChannelID types.ChannelID
	UserID    types.UserID
	// AuthorName is the resolved display name of the author. Falls back to
	// the raw user ID when resolution fails.
	AuthorName string
	Message    string
	CreateAt   time.Time
}

// User is a Mattermost user as needed for author resolution and the
// authentication check.
type User struct {
	ID       types.UserID
	Username string
	Nickname string
	// FirstName and LastName compose the full name when set
	FirstName string
	LastName  string
}

// DisplayName returns the best human-facing name available for the user
func (x *User) DisplayName() string {
	if x.Nickname != "" {
		return x.Nickname
	}
	if x.FirstName != "" || x.LastName != "" {
		if x.FirstName == "" {
			return x.LastName
		}
		if x.LastName == "" {
			return x.FirstName
		}
		return x.FirstName + " " + x.LastName
	}
	return x.Username
}
