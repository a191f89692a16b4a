package memory

import (
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
)

// Memory is an in-memory repository for tests and development
type Memory struct {
	transcript *transcriptRepository
	marker     *markerRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		transcript: newTranscriptRepository(),
		marker:     newMarkerRepository(),
	}
}

func (m *Memory) Transcript() interfaces.TranscriptRepository {
	return m.transcript
}

func (m *Memory) Marker() interfaces.MarkerRepository {
	return m.marker
}

func (m *Memory) Close() error {
	return nil
}
