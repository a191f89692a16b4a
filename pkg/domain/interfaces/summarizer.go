package interfaces

import (
	"context"

	"github.com/unread-lab/catchup/pkg/domain/model"
)

// Summarizer turns a transcript into a user-facing summary
type Summarizer interface {
	// Summarize runs the two-pass prompt sequence against the LLM backend.
	// On retry exhaustion the error wraps types.ErrLLMExhausted and the
	// caller skips the channel for the current cycle.
	Summarize(ctx context.Context, transcript *model.Transcript) (*model.ChannelSummary, error)

	// Close releases the LLM backend (HTTP session or local process)
	Close() error
}

// TextGenerator is a single LLM completion call. Implementations wrap a
// concrete backend; the summarization engine owns retry, backoff and
// throttling on top of it.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// DeliveryQueue carries ChannelSummary objects from the orchestrator to the
// presentation layer. Producer and consumer run on different goroutines; the
// consumer polls non-blockingly so a UI thread is never stalled.
type DeliveryQueue interface {
	// Publish enqueues a summary. After Close it is a no-op.
	Publish(ctx context.Context, summary *model.ChannelSummary)

	// Poll dequeues the oldest pending summary without blocking
	Poll() (*model.ChannelSummary, bool)

	// Pending returns the number of queued summaries
	Pending() int

	// Close stops the queue; consumers observe no further publications
	Close()
}
