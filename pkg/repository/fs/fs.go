package fs

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
)

// Repository is a filesystem-backed repository. Transcripts and summaries
// live in one directory per channel (keyed by the sanitized channel name),
// and last-processed markers in a single state.json at the root.
type Repository struct {
	dir        string
	transcript *transcriptRepository
	marker     *markerRepository
}

var _ interfaces.Repository = &Repository{}

// New creates a filesystem repository rooted at dir, creating it when absent
func New(dir string) (*Repository, error) {
	if dir == "" {
		return nil, goerr.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create storage directory", goerr.V("dir", dir))
	}

	marker, err := newMarkerRepository(filepath.Join(dir, "state.json"))
	if err != nil {
		return nil, err
	}

	return &Repository{
		dir:        dir,
		transcript: newTranscriptRepository(dir),
		marker:     marker,
	}, nil
}

func (r *Repository) Transcript() interfaces.TranscriptRepository {
	return r.transcript
}

func (r *Repository) Marker() interfaces.MarkerRepository {
	return r.marker
}

func (r *Repository) Close() error {
	return nil
}
