package model

import (
	"fmt"
	"strings"
	"time"
)

// Transcript is the ordered unread message history of a channel as of a
// given fetch. Posts are ordered by ascending creation time.
type Transcript struct {
	Channel   Channel
	Posts     []Post
	FetchedAt time.Time
}

// StartAt returns the creation time of the oldest post, or the zero time
// when the transcript is empty
func (x *Transcript) StartAt() time.Time {
	if len(x.Posts) == 0 {
		return time.Time{}
	}
	return x.Posts[0].CreateAt
}

// EndAt returns the creation time of the newest post, or the zero time when
// the transcript is empty
func (x *Transcript) EndAt() time.Time {
	if len(x.Posts) == 0 {
		return time.Time{}
	}
	return x.Posts[len(x.Posts)-1].CreateAt
}

// LastPostID returns the ID of the newest post, or the empty ID when the
// transcript is empty
func (x *Transcript) LastPostID() string {
	if len(x.Posts) == 0 {
		return ""
	}
	return string(x.Posts[len(x.Posts)-1].ID)
}

// Render formats the transcript as numbered lines for prompting and for the
// raw transcript file:
//
//	#1 [2006-01-02 15:04] Alice: message text
func (x *Transcript) Render() string {
	var sb strings.Builder
	for i, post := range x.Posts {
		author := post.AuthorName
		if author == "" {
			author = string(post.UserID)
		}
		fmt.Fprintf(&sb, "#%d [%s] %s: %s\n",
			i+1,
			post.CreateAt.Format("2006-01-02 15:04"),
			author,
			strings.TrimSpace(post.Message),
		)
	}
	return sb.String()
}
