package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/domain/types"
	"github.com/unread-lab/catchup/pkg/repository/storagekey"
)

type transcriptRepository struct {
	mu        sync.RWMutex
	snapshots map[string]*model.Transcript
	summaries map[string]*model.StoredSummary
}

func newTranscriptRepository() *transcriptRepository {
	return &transcriptRepository{
		snapshots: make(map[string]*model.Transcript),
		summaries: make(map[string]*model.StoredSummary),
	}
}

func (r *transcriptRepository) WriteSnapshot(ctx context.Context, channelName string, transcript *model.Transcript) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a deep copy to prevent external modifications
	snapshot := *transcript
	snapshot.Posts = make([]model.Post, len(transcript.Posts))
	copy(snapshot.Posts, transcript.Posts)
	r.snapshots[storagekey.Encode(channelName)] = &snapshot
	return nil
}

func (r *transcriptRepository) ReadSnapshot(ctx context.Context, channelName string) (*model.Transcript, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, ok := r.snapshots[storagekey.Encode(channelName)]
	if !ok {
		return nil, goerr.Wrap(types.ErrNotFound, "no snapshot stored", goerr.V(types.ChannelNameKey, channelName))
	}

	snapshotCopy := *snapshot
	snapshotCopy.Posts = make([]model.Post, len(snapshot.Posts))
	copy(snapshotCopy.Posts, snapshot.Posts)
	return &snapshotCopy, nil
}

func (r *transcriptRepository) WriteSummary(ctx context.Context, channelName string, summary *model.ChannelSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := storagekey.Encode(channelName)
	r.summaries[key] = &model.StoredSummary{
		ChannelKey: key,
		Text:       summary.Text,
		SavedAt:    time.Now(),
	}
	return nil
}

func (r *transcriptRepository) ReadLatestSummary(ctx context.Context, channelName string) (*model.StoredSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary, ok := r.summaries[storagekey.Encode(channelName)]
	if !ok {
		return nil, goerr.Wrap(types.ErrNotFound, "no summary stored", goerr.V(types.ChannelNameKey, channelName))
	}
	summaryCopy := *summary
	return &summaryCopy, nil
}

func (r *transcriptRepository) ListSummaries(ctx context.Context) ([]*model.StoredSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*model.StoredSummary, 0, len(r.summaries))
	for _, summary := range r.summaries {
		summaryCopy := *summary
		results = append(results, &summaryCopy)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ChannelKey < results[j].ChannelKey
	})
	return results, nil
}
