package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/domain/types"
)

func testTranscript(channelName string) *model.Transcript {
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return &model.Transcript{
		Channel: model.Channel{
			ID:           "ch0001",
			TeamID:       "team01",
			Name:         "general-team",
			DisplayName:  channelName,
			Type:         types.ChannelTypeOpen,
			LastViewedAt: base.Add(-time.Hour),
			LastPostAt:   base.Add(2 * time.Minute),
			UnreadCount:  3,
		},
		FetchedAt: base.Add(5 * time.Minute),
		Posts: []model.Post{
			{ID: "p1", ChannelID: "ch0001", UserID: "uA", AuthorName: "Alice", Message: "shipping is blocked on the cert", CreateAt: base},
			{ID: "p2", ChannelID: "ch0001", UserID: "uB", AuthorName: "Bob", Message: "renewing it now", CreateAt: base.Add(time.Minute)},
			{ID: "p3", ChannelID: "ch0001", UserID: "uA", AuthorName: "Alice", Message: "thanks, will retry the deploy", CreateAt: base.Add(2 * time.Minute)},
		},
	}
}

func runTranscriptRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("snapshot round trip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		want := testTranscript("General Team")
		gt.NoError(t, repo.Transcript().WriteSnapshot(ctx, "General Team", want)).Required()

		got, err := repo.Transcript().ReadSnapshot(ctx, "General Team")
		gt.NoError(t, err).Required()

		gt.Value(t, got.Channel.ID).Equal(want.Channel.ID)
		gt.Value(t, got.Channel.DisplayName).Equal(want.Channel.DisplayName)
		gt.Value(t, got.Channel.UnreadCount).Equal(want.Channel.UnreadCount)
		gt.Bool(t, got.FetchedAt.Equal(want.FetchedAt)).True()
		gt.Array(t, got.Posts).Length(len(want.Posts))
		for i := range want.Posts {
			gt.Value(t, got.Posts[i].ID).Equal(want.Posts[i].ID)
			gt.Value(t, got.Posts[i].AuthorName).Equal(want.Posts[i].AuthorName)
			gt.Value(t, got.Posts[i].Message).Equal(want.Posts[i].Message)
			gt.Bool(t, got.Posts[i].CreateAt.Equal(want.Posts[i].CreateAt)).True()
		}
	})

	t.Run("snapshot overwritten by later fetch", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first := testTranscript("General Team")
		gt.NoError(t, repo.Transcript().WriteSnapshot(ctx, "General Team", first)).Required()

		second := testTranscript("General Team")
		second.Posts = second.Posts[:1]
		gt.NoError(t, repo.Transcript().WriteSnapshot(ctx, "General Team", second)).Required()

		got, err := repo.Transcript().ReadSnapshot(ctx, "General Team")
		gt.NoError(t, err).Required()
		gt.Array(t, got.Posts).Length(1)
	})

	t.Run("missing snapshot returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Transcript().ReadSnapshot(ctx, "no-such-channel")
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
	})

	t.Run("summary write read and overwrite", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		summary := &model.ChannelSummary{
			ID:          "s1",
			ChannelID:   "ch0001",
			ChannelName: "General Team",
			Text:        "first summary",
			GeneratedAt: time.Now(),
		}
		gt.NoError(t, repo.Transcript().WriteSummary(ctx, "General Team", summary)).Required()

		got, err := repo.Transcript().ReadLatestSummary(ctx, "General Team")
		gt.NoError(t, err).Required()
		gt.Value(t, got.Text).Equal("first summary")

		summary.Text = "second summary"
		gt.NoError(t, repo.Transcript().WriteSummary(ctx, "General Team", summary)).Required()

		got, err = repo.Transcript().ReadLatestSummary(ctx, "General Team")
		gt.NoError(t, err).Required()
		gt.Value(t, got.Text).Equal("second summary")
	})

	t.Run("missing summary returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Transcript().ReadLatestSummary(ctx, "no-such-channel")
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
	})

	t.Run("ListSummaries returns stored summaries sorted by key", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, name := range []string{"zeta", "Alpha Team"} {
			summary := &model.ChannelSummary{
				ID:          types.SummaryID("s-" + name),
				ChannelName: name,
				Text:        "summary of " + name,
				GeneratedAt: time.Now(),
			}
			gt.NoError(t, repo.Transcript().WriteSummary(ctx, name, summary)).Required()
		}

		got, err := repo.Transcript().ListSummaries(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, got).Length(2)
		gt.Value(t, got[0].ChannelKey).Equal("Alpha_Team")
		gt.Value(t, got[0].Text).Equal("summary of Alpha Team")
		gt.Value(t, got[1].ChannelKey).Equal("zeta")
	})

	t.Run("distinct channel names never collide", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a := &model.ChannelSummary{ID: "sa", ChannelName: "dev/ops", Text: "slash"}
		b := &model.ChannelSummary{ID: "sb", ChannelName: "dev ops", Text: "space"}
		gt.NoError(t, repo.Transcript().WriteSummary(ctx, "dev/ops", a)).Required()
		gt.NoError(t, repo.Transcript().WriteSummary(ctx, "dev ops", b)).Required()

		gotA, err := repo.Transcript().ReadLatestSummary(ctx, "dev/ops")
		gt.NoError(t, err).Required()
		gt.Value(t, gotA.Text).Equal("slash")

		gotB, err := repo.Transcript().ReadLatestSummary(ctx, "dev ops")
		gt.NoError(t, err).Required()
		gt.Value(t, gotB.Text).Equal("space")
	})
}
