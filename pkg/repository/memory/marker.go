package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/domain/types"
)

type markerRepository struct {
	mu      sync.RWMutex
	markers map[types.ChannelID]model.Marker
}

func newMarkerRepository() *markerRepository {
	return &markerRepository{
		markers: make(map[types.ChannelID]model.Marker),
	}
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
	return nil
}
