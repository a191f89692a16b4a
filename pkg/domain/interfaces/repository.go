package interfaces

import (
	"context"

	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/domain/types"
)

// Repository aggregates the persistence backends
type Repository interface {
	Transcript() TranscriptRepository
	Marker() MarkerRepository
	Close() error
}

// TranscriptRepository persists per-channel transcripts and summaries keyed
// by a filesystem-safe encoding of the channel name. All writes are
// whole-file replace; a crash mid-write never yields a truncated file.
type TranscriptRepository interface {
	// WriteSnapshot stores the raw transcript text and the structured
	// snapshot, overwriting any previous snapshot for the channel
	WriteSnapshot(ctx context.Context, channelName string, transcript *model.Transcript) error

	// ReadSnapshot returns the stored structured snapshot.
	// Returns types.ErrNotFound when no snapshot exists.
	ReadSnapshot(ctx context.Context, channelName string) (*model.Transcript, error)

	// WriteSummary persists the most recent summary, overwriting prior
	// content. Only one summary is retained per channel.
	WriteSummary(ctx context.Context, channelName string, summary *model.ChannelSummary) error

	// ReadLatestSummary returns the stored summary for the channel.
	// Returns types.ErrNotFound when no summary exists.
	ReadLatestSummary(ctx context.Context, channelName string) (*model.StoredSummary, error)

	// ListSummaries returns all stored summaries ordered by channel key
	ListSummaries(ctx context.Context) ([]*model.StoredSummary, error)
}

// MarkerRepository tracks the last processed post per channel so that a
// restart never re-summarizes already processed messages
type MarkerRepository interface {
	// Get returns the marker for the channel, or nil when none is recorded
	Get(ctx context.Context, channelID types.ChannelID) (*model.Marker, error)

	// Set records the marker for the channel
	Set(ctx context.Context, channelID types.ChannelID, marker *model.Marker) error
}
