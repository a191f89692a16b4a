package summary

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/domain/types"
	"github.com/unread-lab/catchup/pkg/repository/storagekey"
	"github.com/unread-lab/catchup/pkg/utils/logging"
)

const (
	// DefaultMaxRetries is the per-call retry budget against the LLM backend
	DefaultMaxRetries = 3
	// DefaultBackoffBase is the first retry delay; it doubles per attempt
	DefaultBackoffBase = 2 * time.Second
	// DefaultRequestInterval is the minimum gap between any two LLM calls
	DefaultRequestInterval = time.Second

	promptDateFormat = "2006-01-02 15:04"
)

// Engine produces channel summaries with a two-pass prompt sequence: an
// analysis pass over the raw transcript, then a summary pass conditioned on
// the analysis output.
type Engine struct {
	generator interfaces.TextGenerator
	templates *Templates

	maxRetries      int
	backoffBase     time.Duration
	requestInterval time.Duration

	lastRequest time.Time
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

var _ interfaces.Summarizer = &Engine{}

// EngineOption is a functional option for Engine configuration
type EngineOption func(*Engine)

// WithTemplates replaces the embedded prompt templates
func WithTemplates(t *Templates) EngineOption {
	return func(e *Engine) {
		e.templates = t
	}
}

// WithMaxRetries sets the per-call retry budget
func WithMaxRetries(n int) EngineOption {
	return func(e *Engine) {
		e.maxRetries = n
	}
}

// WithBackoffBase sets the initial retry delay
func WithBackoffBase(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.backoffBase = d
	}
}

// WithRequestInterval sets the minimum gap between LLM calls
func WithRequestInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.requestInterval = d
	}
}

// NewEngine creates a summarization engine on top of a completion backend
func NewEngine(generator interfaces.TextGenerator, opts ...EngineOption) *Engine {
	e := &Engine{
		generator:       generator,
		templates:       DefaultTemplates(),
		maxRetries:      DefaultMaxRetries,
		backoffBase:     DefaultBackoffBase,
		requestInterval: DefaultRequestInterval,
		now:             time.Now,
		sleep:           sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Summarize(ctx context.Context, transcript *model.Transcript) (*model.ChannelSummary, error) {
	if len(transcript.Posts) == 0 {
		return nil, goerr.New("transcript is empty",
			goerr.V(types.ChannelNameKey, transcript.Channel.Name))
	}

	data := PromptData{
		ChannelName: transcript.Channel.Title(),
		Transcript:  transcript.Render(),
		StartDate:   transcript.StartAt().Format(promptDateFormat),
		EndDate:     transcript.EndAt().Format(promptDateFormat),
	}

	analysis, err := e.generate(ctx, e.templates.analysis, data)
	if err != nil {
		return nil, goerr.Wrap(err, "analysis pass failed",
			goerr.V(types.ChannelNameKey, transcript.Channel.Name))
	}
	data.Analysis = analysis

	text, err := e.generate(ctx, e.templates.summary, data)
	if err != nil {
		return nil, goerr.Wrap(err, "summary pass failed",
			goerr.V(types.ChannelNameKey, transcript.Channel.Name))
	}

	return &model.ChannelSummary{
		ID:            types.SummaryID(uuid.Must(uuid.NewV7()).String()),
		ChannelID:     transcript.Channel.ID,
		ChannelName:   transcript.Channel.Title(),
		Text:          strings.TrimSpace(text),
		GeneratedAt:   e.now().UTC(),
		TranscriptKey: storagekey.Encode(transcript.Channel.Title()),
		PostCount:     len(transcript.Posts),
	}, nil
}

func (e *Engine) Close() error {
	return e.generator.Close()
}

// generate renders one prompt and runs it with retry, backoff and request
// throttling
func (e *Engine) generate(ctx context.Context, tmpl *template.Template, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to render prompt template")
	}
	prompt := buf.String()

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := e.backoffBase * time.Duration(1<<(attempt-1))
			if e.backoffBase > 0 {
				backoff += time.Duration(rand.Int63n(int64(e.backoffBase)))
			}
			logging.From(ctx).Warn("retrying LLM call",
				"attempt", attempt, "backoff", backoff.String(), "error", lastErr)
			if err := e.sleep(ctx, backoff); err != nil {
				return "", err
			}
		}
		if err := e.throttle(ctx); err != nil {
			return "", err
		}

		text, err := e.generator.Generate(ctx, prompt)
		e.lastRequest = e.now()
		if err == nil {
			if strings.TrimSpace(text) == "" {
				lastErr = goerr.New("LLM returned an empty completion")
				continue
			}
			return text, nil
		}
		if ctx.Err() != nil {
			return "", goerr.Wrap(ctx.Err(), "canceled during LLM call")
		}
		lastErr = err
	}

	return "", goerr.Wrap(types.ErrLLMExhausted, "LLM retries exhausted",
		goerr.V("attempts", e.maxRetries+1), goerr.V("cause", lastErr))
}

// throttle waits out the minimum inter-request interval. The engine runs on
// a single goroutine, so lastRequest needs no lock.
func (e *Engine) throttle(ctx context.Context) error {
	if e.lastRequest.IsZero() || e.requestInterval <= 0 {
		return nil
	}
	wait := e.requestInterval - e.now().Sub(e.lastRequest)
	if wait <= 0 {
		return nil
	}
	return e.sleep(ctx, wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "canceled while waiting")
	}
}
