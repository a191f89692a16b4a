package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/unread-lab/catchup/pkg/domain/types"
	"github.com/unread-lab/catchup/pkg/utils/logging"
)

// DefaultPollInterval is the gap between unread-channel polls
const DefaultPollInterval = 60 * time.Second

// Processor runs one full poll cycle over every unread channel
type Processor interface {
	ProcessUnread(ctx context.Context) error
}

// State is the externally visible poller state
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
	// StateAuthFailed means the chat platform rejected the credential and
	// the loop halted; a restart with fresh credentials is required
	StateAuthFailed State = "auth_failed"
)

// Status is a snapshot of the poller for the HTTP surface
type Status struct {
	State     State     `json:"state"`
	LastPoll  time.Time `json:"last_poll,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Cycles    int       `json:"cycles"`
}

// Poller drives the unread-channel pipeline on a fixed interval.
//
// Single instance per process; the chat platform serializes unread state per
// user, so concurrent pollers would race on acknowledgements.
type Poller struct {
	processor Processor
	interval  time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}

	mu     sync.RWMutex
	status Status
}

// New creates a poller running the processor every interval
func New(processor Processor, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		processor: processor,
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		status:    Status{State: StateIdle},
	}
}

// Start begins the polling loop in a background goroutine. The first cycle
// runs immediately so a fresh start surfaces unread channels without waiting
// a full interval.
func (w *Poller) Start(ctx context.Context) error {
	logging.Default().Info("unread poller starting", "interval", w.interval.String())
	go w.run(ctx)
	return nil
}

// Stop signals the loop to exit and waits for the in-flight cycle
func (w *Poller) Stop() {
	logging.Default().Info("unread poller stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("unread poller stopped")
}

// Status returns a snapshot of the poller state
func (w *Poller) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

func (w *Poller) run(ctx context.Context) {
	defer close(w.doneCh)
	defer func() {
		// A halted loop keeps its failure state visible
		w.mu.Lock()
		if w.status.State != StateAuthFailed {
			w.status.State = StateStopped
		}
		w.mu.Unlock()
	}()

	if halt := w.poll(ctx); halt {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if halt := w.poll(ctx); halt {
				return
			}

		case <-w.stopCh:
			logging.Default().Info("unread poller received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("unread poller context cancelled")
			return
		}
	}
}

// poll runs one cycle. It reports true when the loop must halt: an
// authentication failure will repeat every cycle until the operator fixes
// the credential, so retrying is pointless.
func (w *Poller) poll(ctx context.Context) (halt bool) {
	w.setState(StateRunning)
	start := time.Now()

	err := w.processor.ProcessUnread(ctx)

	w.mu.Lock()
	w.status.LastPoll = start
	w.status.Cycles++
	if err != nil {
		w.status.LastError = err.Error()
	} else {
		w.status.LastError = ""
	}
	w.mu.Unlock()

	switch {
	case err == nil:
		w.setState(StateIdle)
		logging.Default().Debug("poll cycle completed", "duration", time.Since(start).String())
		return false

	case errors.Is(err, types.ErrAuthentication):
		w.setState(StateAuthFailed)
		logging.Default().Error("authentication failed, halting poller",
			"error", err.Error())
		return true

	default:
		w.setState(StateIdle)
		logging.Default().Error("poll cycle failed (will retry next interval)",
			"error", err.Error())
		return false
	}
}

func (w *Poller) setState(s State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.State = s
}
