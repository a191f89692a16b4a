package model

import (
	"time"

	"github.com/unread-lab/catchup/pkg/domain/types"
)

// ChannelSummary is the user-facing output of the pipeline for one channel.
// Immutable once created; delivered to the presentation layer via the queue.
type ChannelSummary struct {
	ID          types.SummaryID
	ChannelID   types.ChannelID
	ChannelName string
	Text        string
	GeneratedAt time.Time
	// TranscriptKey is the sanitized storage key of the source transcript
	TranscriptKey string
	PostCount     int
}

// StoredSummary is a previously persisted summary read back from storage
type StoredSummary struct {
	ChannelKey string
	Text       string
	SavedAt    time.Time
}

// Marker records the last processed post of a channel. Posts at or before
// the marker are never summarized again.
type Marker struct {
	LastPostID types.PostID `json:"last_post_id"`
	LastPostAt time.Time    `json:"last_post_at"`
}

// Covers reports whether the post identified by createAt is already covered
// by the marker
func (x *Marker) Covers(createAt time.Time) bool {
	if x == nil {
		return false
	}
	return !createAt.After(x.LastPostAt)
}
