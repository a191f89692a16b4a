package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
	"github.com/unread-lab/catchup/pkg/domain/model"
)

func runMarkerRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Get returns nil for unseen channel", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		marker, err := repo.Marker().Get(ctx, "ch-unknown")
		gt.NoError(t, err).Required()
		gt.Value(t, marker).Nil()
	})

	t.Run("Set then Get round trips", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		at := time.Date(2026, 3, 14, 9, 32, 0, 0, time.UTC)
		gt.NoError(t, repo.Marker().Set(ctx, "ch0001", &model.Marker{
			LastPostID: "p3",
			LastPostAt: at,
		})).Required()

		marker, err := repo.Marker().Get(ctx, "ch0001")
		gt.NoError(t, err).Required()
		gt.Value(t, marker).NotNil()
		gt.Value(t, marker.LastPostID).Equal("p3")
		gt.Bool(t, marker.LastPostAt.Equal(at)).True()
	})

	t.Run("Set overwrites previous marker", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		at := time.Now().UTC().Truncate(time.Second)
		gt.NoError(t, repo.Marker().Set(ctx, "ch0001", &model.Marker{LastPostID: "p1", LastPostAt: at})).Required()
		gt.NoError(t, repo.Marker().Set(ctx, "ch0001", &model.Marker{LastPostID: "p9", LastPostAt: at.Add(time.Minute)})).Required()

		marker, err := repo.Marker().Get(ctx, "ch0001")
		gt.NoError(t, err).Required()
		gt.Value(t, marker.LastPostID).Equal("p9")
	})

	t.Run("Set rejects nil marker", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.Error(t, repo.Marker().Set(ctx, "ch0001", nil))
	})

	t.Run("Covers reports marker coverage", func(t *testing.T) {
		at := time.Date(2026, 3, 14, 9, 32, 0, 0, time.UTC)
		marker := &model.Marker{LastPostID: "p3", LastPostAt: at}

		gt.Bool(t, marker.Covers(at)).True()
		gt.Bool(t, marker.Covers(at.Add(-time.Second))).True()
		gt.Bool(t, marker.Covers(at.Add(time.Second))).False()

		var nilMarker *model.Marker
		gt.Bool(t, nilMarker.Covers(at)).False()
	})
}
