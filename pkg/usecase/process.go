package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/domain/types"
	"github.com/unread-lab/catchup/pkg/repository/storagekey"
	"github.com/unread-lab/catchup/pkg/utils/async"
	"github.com/unread-lab/catchup/pkg/utils/errutil"
	"github.com/unread-lab/catchup/pkg/utils/logging"
)

// ProcessUnread runs one poll cycle: list the unread channels, then for each
// one fetch, persist, summarize and publish. Channels are processed
// sequentially so that a single LLM backend is never hit concurrently.
//
// A failure in one channel is logged and the cycle moves on; only an
// authentication failure aborts the cycle, since every later call would fail
// the same way.
func (uc *UseCases) ProcessUnread(ctx context.Context) error {
	channels, err := uc.chat.ListUnreadChannels(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to list unread channels")
	}
	if len(channels) == 0 {
		logging.From(ctx).Debug("no unread channels")
		return nil
	}

	logging.From(ctx).Info("processing unread channels", "count", len(channels))

	for _, channel := range channels {
		if err := ctx.Err(); err != nil {
			return goerr.Wrap(err, "cycle canceled")
		}

		if err := uc.processChannel(ctx, channel); err != nil {
			if errors.Is(err, types.ErrAuthentication) {
				return goerr.Wrap(err, "aborting cycle on authentication failure")
			}
			errutil.Handle(ctx, err, "failed to process channel")
		}
	}

	return nil
}

// processChannel runs the pipeline for one channel. The marker is advanced
// and the channel acknowledged only after the summary is persisted, so a
// failure anywhere leaves the channel unread for the next cycle.
func (uc *UseCases) processChannel(ctx context.Context, channel *model.Channel) error {
	logger := logging.From(ctx).With(
		"channel", channel.Title(),
		"unread", channel.UnreadCount,
	)
	ctx = logging.With(ctx, logger)

	marker, err := uc.repo.Marker().Get(ctx, channel.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to load channel marker",
			goerr.V(types.ChannelIDKey, channel.ID))
	}

	posts, err := uc.chat.FetchMessages(ctx, channel, marker)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch channel messages",
			goerr.V(types.ChannelIDKey, channel.ID),
			goerr.V(types.ChannelNameKey, channel.Name))
	}
	if len(posts) == 0 {
		// Everything unread was already covered by the marker or filtered
		// out as system noise
		logger.Debug("no summarizable posts, skipping")
		return nil
	}

	transcript := &model.Transcript{
		Channel:   *channel,
		FetchedAt: time.Now().UTC(),
		Posts:     make([]model.Post, 0, len(posts)),
	}
	for _, p := range posts {
		transcript.Posts = append(transcript.Posts, *p)
	}

	if err := uc.repo.Transcript().WriteSnapshot(ctx, channel.Title(), transcript); err != nil {
		return goerr.Wrap(err, "failed to persist transcript",
			goerr.V(types.ChannelNameKey, channel.Name))
	}

	summary, err := uc.summarizer.Summarize(ctx, transcript)
	if err != nil {
		return goerr.Wrap(err, "failed to summarize channel",
			goerr.V(types.ChannelNameKey, channel.Name))
	}

	if err := uc.repo.Transcript().WriteSummary(ctx, channel.Title(), summary); err != nil {
		return goerr.Wrap(err, "failed to persist summary",
			goerr.V(types.ChannelNameKey, channel.Name))
	}

	if err := uc.repo.Marker().Set(ctx, channel.ID, &model.Marker{
		LastPostID: types.PostID(transcript.LastPostID()),
		LastPostAt: transcript.EndAt(),
	}); err != nil {
		return goerr.Wrap(err, "failed to advance channel marker",
			goerr.V(types.ChannelIDKey, channel.ID))
	}

	uc.queue.Publish(ctx, summary)
	logger.Info("channel summarized", "posts", summary.PostCount)

	if uc.acknowledge {
		channelID := channel.ID
		async.Dispatch(ctx, func(ctx context.Context) error {
			if err := uc.chat.Acknowledge(ctx, channelID); err != nil {
				return goerr.Wrap(err, "failed to acknowledge channel",
					goerr.V(types.ChannelIDKey, channelID))
			}
			return nil
		})
	}

	return nil
}

// LoadStoredSummaries publishes the previously persisted summaries so a
// fresh process starts with history visible
func (uc *UseCases) LoadStoredSummaries(ctx context.Context) error {
	stored, err := uc.repo.Transcript().ListSummaries(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to list stored summaries")
	}

	for _, s := range stored {
		name, err := storagekey.Decode(s.ChannelKey)
		if err != nil {
			name = s.ChannelKey
		}
		uc.queue.Publish(ctx, &model.ChannelSummary{
			ID:            types.SummaryID(uuid.Must(uuid.NewV7()).String()),
			ChannelName:   name,
			Text:          s.Text,
			GeneratedAt:   s.SavedAt,
			TranscriptKey: s.ChannelKey,
		})
	}

	logging.From(ctx).Info("loaded stored summaries", "count", len(stored))
	return nil
}
