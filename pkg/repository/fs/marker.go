package fs

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/domain/types"
)

// markerRepository keeps last-processed markers for all channels in a single
// state.json, rewritten atomically on every update
type markerRepository struct {
	path string

	mu      sync.RWMutex
	markers map[types.ChannelID]model.Marker
}

func newMarkerRepository(path string) (*markerRepository, error) {
	r := &markerRepository{
		path:    path,
		markers: make(map[types.ChannelID]model.Marker),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, goerr.Wrap(err, "failed to read state file", goerr.V("path", path))
	}
	if err := json.Unmarshal(data, &r.markers); err != nil {
		return nil, goerr.Wrap(err, "failed to parse state file", goerr.V("path", path))
	}
	return r, nil
}

func (r *markerRepository) Get(ctx context.Context, channelID types.ChannelID) (*model.Marker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	marker, ok := r.markers[channelID]
	if !ok {
		return nil, nil
	}
	markerCopy := marker
	return &markerCopy, nil
}

func (r *markerRepository) Set(ctx context.Context, channelID types.ChannelID, marker *model.Marker) error {
	if marker == nil {
		return goerr.New("marker is required", goerr.V(types.ChannelIDKey, channelID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.markers[channelID] = *marker

	data, err := json.MarshalIndent(r.markers, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal state")
	}
	if err := writeFileAtomic(ctx, r.path, data); err != nil {
		return goerr.Wrap(err, "failed to write state file", goerr.V("path", r.path))
	}
	return nil
}
