package usecase

import (
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
)

// UseCases wires the chat client, persistence, summarization engine and
// delivery queue into the per-cycle pipeline
type UseCases struct {
	chat       interfaces.ChatClient
	repo       interfaces.Repository
	summarizer interfaces.Summarizer
	queue      interfaces.DeliveryQueue

	acknowledge bool
}

type Option func(*UseCases)

// WithAcknowledge controls whether processed channels are marked as viewed
// on the server. Enabled by default.
func WithAcknowledge(enabled bool) Option {
	return func(uc *UseCases) {
		uc.acknowledge = enabled
	}
}

func New(chat interfaces.ChatClient, repo interfaces.Repository, summarizer interfaces.Summarizer, queue interfaces.DeliveryQueue, opts ...Option) *UseCases {
	uc := &UseCases{
		chat:        chat,
		repo:        repo,
		summarizer:  summarizer,
		queue:       queue,
		acknowledge: true,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
