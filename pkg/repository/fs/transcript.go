package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/domain/types"
	"github.com/unread-lab/catchup/pkg/repository/storagekey"
)

const (
	transcriptFile = "transcript.txt"
	snapshotFile   = "snapshot.json"
	summaryFile    = "summary.txt"
)

type transcriptRepository struct {
	dir string
}

func newTranscriptRepository(dir string) *transcriptRepository {
	return &transcriptRepository{dir: dir}
}

func (r *transcriptRepository) channelDir(channelName string) (string, error) {
	path := filepath.Join(r.dir, storagekey.Encode(channelName))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", goerr.Wrap(err, "failed to create channel directory", goerr.V("path", path))
	}
	return path, nil
}

// snapshotDoc is the on-disk representation of a transcript snapshot
type snapshotDoc struct {
	Channel   snapshotChannel `json:"channel"`
	FetchedAt time.Time       `json:"fetched_at"`
	Posts     []snapshotPost  `json:"posts"`
}

type snapshotChannel struct {
	ID           string    `json:"id"`
	TeamID       string    `json:"team_id"`
	Name         string    `json:"name"`
	DisplayName  string    `json:"display_name"`
	Type         string    `json:"type"`
	LastViewedAt time.Time `json:"last_viewed_at"`
	LastPostAt   time.Time `json:"last_post_at"`
	UnreadCount  int       `json:"unread_count"`
}

type snapshotPost struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	AuthorName string    `json:"author_name"`
	Message    string    `json:"message"`
	CreateAt   time.Time `json:"create_at"`
}

func toSnapshotDoc(t *model.Transcript) *snapshotDoc {
	doc := &snapshotDoc{
		Channel: snapshotChannel{
			ID:           string(t.Channel.ID),
			TeamID:       string(t.Channel.TeamID),
			Name:         t.Channel.Name,
			DisplayName:  t.Channel.DisplayName,
			Type:         string(t.Channel.Type),
			LastViewedAt: t.Channel.LastViewedAt,
			LastPostAt:   t.Channel.LastPostAt,
			UnreadCount:  t.Channel.UnreadCount,
		},
		FetchedAt: t.FetchedAt,
		Posts:     make([]snapshotPost, len(t.Posts)),
	}
	for i, p := range t.Posts {
		doc.Posts[i] = snapshotPost{
			ID:         string(p.ID),
			UserID:     string(p.UserID),
			AuthorName: p.AuthorName,
			Message:    p.Message,
			CreateAt:   p.CreateAt,
		}
	}
	return doc
}

func (d *snapshotDoc) toModel() *model.Transcript {
	t := &model.Transcript{
		Channel: model.Channel{
			ID:           types.ChannelID(d.Channel.ID),
			TeamID:       types.TeamID(d.Channel.TeamID),
			Name:         d.Channel.Name,
			DisplayName:  d.Channel.DisplayName,
			Type:         types.ChannelType(d.Channel.Type),
			LastViewedAt: d.Channel.LastViewedAt,
			LastPostAt:   d.Channel.LastPostAt,
			UnreadCount:  d.Channel.UnreadCount,
		},
		FetchedAt: d.FetchedAt,
		Posts:     make([]model.Post, len(d.Posts)),
	}
	for i, p := range d.Posts {
		t.Posts[i] = model.Post{
			ID:         types.PostID(p.ID),
			ChannelID:  types.ChannelID(d.Channel.ID),
			UserID:     types.UserID(p.UserID),
			AuthorName: p.AuthorName,
			Message:    p.Message,
			CreateAt:   p.CreateAt,
		}
	}
	return t
}

func (r *transcriptRepository) WriteSnapshot(ctx context.Context, channelName string, transcript *model.Transcript) error {
	dir, err := r.channelDir(channelName)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(toSnapshotDoc(transcript), "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal snapshot", goerr.V(types.ChannelNameKey, channelName))
	}

	if err := writeFileAtomic(ctx, filepath.Join(dir, snapshotFile), data); err != nil {
		return goerr.Wrap(err, "failed to write snapshot", goerr.V(types.ChannelNameKey, channelName))
	}

	if err := writeFileAtomic(ctx, filepath.Join(dir, transcriptFile), []byte(transcript.Render())); err != nil {
		return goerr.Wrap(err, "failed to write raw transcript", goerr.V(types.ChannelNameKey, channelName))
	}

	return nil
}

func (r *transcriptRepository) ReadSnapshot(ctx context.Context, channelName string) (*model.Transcript, error) {
	path := filepath.Join(r.dir, storagekey.Encode(channelName), snapshotFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(types.ErrNotFound, "no snapshot stored", goerr.V(types.ChannelNameKey, channelName))
		}
		return nil, goerr.Wrap(err, "failed to read snapshot", goerr.V("path", path))
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, goerr.Wrap(err, "failed to parse snapshot", goerr.V("path", path))
	}
	return doc.toModel(), nil
}

func (r *transcriptRepository) WriteSummary(ctx context.Context, channelName string, summary *model.ChannelSummary) error {
	dir, err := r.channelDir(channelName)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(ctx, filepath.Join(dir, summaryFile), []byte(summary.Text)); err != nil {
		return goerr.Wrap(err, "failed to write summary", goerr.V(types.ChannelNameKey, channelName))
	}
	return nil
}

func (r *transcriptRepository) ReadLatestSummary(ctx context.Context, channelName string) (*model.StoredSummary, error) {
	return r.readSummaryByKey(storagekey.Encode(channelName))
}

func (r *transcriptRepository) readSummaryByKey(key string) (*model.StoredSummary, error) {
	path := filepath.Join(r.dir, key, summaryFile)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(types.ErrNotFound, "no summary stored", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to stat summary", goerr.V("path", path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read summary", goerr.V("path", path))
	}

	return &model.StoredSummary{
		ChannelKey: key,
		Text:       string(data),
		SavedAt:    info.ModTime(),
	}, nil
}

func (r *transcriptRepository) ListSummaries(ctx context.Context) ([]*model.StoredSummary, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list storage directory", goerr.V("dir", r.dir))
	}

	var results []*model.StoredSummary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		summary, err := r.readSummaryByKey(entry.Name())
		if err != nil {
			// Channels with a snapshot but no summary yet are expected
			continue
		}
		results = append(results, summary)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ChannelKey < results[j].ChannelKey
	})
	return results, nil
}
