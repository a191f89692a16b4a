package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
	"github.com/unread-lab/catchup/pkg/service/summary"
	"github.com/urfave/cli/v3"
)

// LLM holds CLI flags for the summarization backend
type LLM struct {
	backend string

	// gemini backend
	geminiProject  string
	geminiLocation string

	// openai backend (remote or any compatible endpoint)
	openaiURL    string
	openaiKey    string
	openaiModel  string
	openaiCACert string

	// local backend (spawned llama-server process)
	localBinary  string
	localModel   string
	localThreads int
	localCtxSize int

	maxTokens       int
	temperature     float64
	timeout         time.Duration
	maxRetries      int
	requestInterval time.Duration
}

// Flags returns CLI flags for LLM configuration
func (x *LLM) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-backend",
			Usage:       "LLM backend (gemini, openai or local)",
			Value:       "gemini",
			Sources:     cli.EnvVars("CATCHUP_LLM_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for the Gemini API",
			Sources:     cli.EnvVars("CATCHUP_GEMINI_PROJECT"),
			Destination: &x.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for the Gemini API",
			Value:       "us-central1",
			Sources:     cli.EnvVars("CATCHUP_GEMINI_LOCATION"),
			Destination: &x.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "openai-url",
			Usage:       "OpenAI-compatible endpoint URL (empty for api.openai.com)",
			Sources:     cli.EnvVars("CATCHUP_OPENAI_URL"),
			Destination: &x.openaiURL,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "API key for the OpenAI-compatible endpoint",
			Sources:     cli.EnvVars("CATCHUP_OPENAI_API_KEY"),
			Destination: &x.openaiKey,
		},
		&cli.StringFlag{
			Name:        "openai-model",
			Usage:       "Model name for the OpenAI-compatible endpoint",
			Value:       "gpt-4o-mini",
			Sources:     cli.EnvVars("CATCHUP_OPENAI_MODEL"),
			Destination: &x.openaiModel,
		},
		&cli.StringFlag{
			Name:        "openai-ca-cert",
			Usage:       "PEM bundle for endpoints behind a private CA",
			Sources:     cli.EnvVars("CATCHUP_OPENAI_CA_CERT"),
			Destination: &x.openaiCACert,
		},
		&cli.StringFlag{
			Name:        "local-llm-binary",
			Usage:       "llama-server executable for the local backend",
			Value:       "llama-server",
			Sources:     cli.EnvVars("CATCHUP_LOCAL_LLM_BINARY"),
			Destination: &x.localBinary,
		},
		&cli.StringFlag{
			Name:        "local-llm-model",
			Usage:       "GGUF model file for the local backend",
			Sources:     cli.EnvVars("CATCHUP_LOCAL_LLM_MODEL"),
			Destination: &x.localModel,
		},
		&cli.IntFlag{
			Name:        "local-llm-threads",
			Usage:       "Thread count for the local backend",
			Sources:     cli.EnvVars("CATCHUP_LOCAL_LLM_THREADS"),
			Destination: &x.localThreads,
		},
		&cli.IntFlag{
			Name:        "local-llm-ctx-size",
			Usage:       "Context window for the local backend",
			Value:       8192,
			Sources:     cli.EnvVars("CATCHUP_LOCAL_LLM_CTX_SIZE"),
			Destination: &x.localCtxSize,
		},
		&cli.IntFlag{
			Name:        "llm-max-tokens",
			Usage:       "Completion token limit per LLM call",
			Value:       512,
			Sources:     cli.EnvVars("CATCHUP_LLM_MAX_TOKENS"),
			Destination: &x.maxTokens,
		},
		&cli.FloatFlag{
			Name:        "llm-temperature",
			Usage:       "Sampling temperature for LLM calls",
			Value:       0.2,
			Sources:     cli.EnvVars("CATCHUP_LLM_TEMPERATURE"),
			Destination: &x.temperature,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Usage:       "Request timeout per LLM call",
			Value:       2 * time.Minute,
			Sources:     cli.EnvVars("CATCHUP_LLM_TIMEOUT"),
			Destination: &x.timeout,
		},
		&cli.IntFlag{
			Name:        "llm-max-retries",
			Usage:       "Retry budget per LLM call",
			Value:       summary.DefaultMaxRetries,
			Sources:     cli.EnvVars("CATCHUP_LLM_MAX_RETRIES"),
			Destination: &x.maxRetries,
		},
		&cli.DurationFlag{
			Name:        "llm-request-interval",
			Usage:       "Minimum gap between LLM calls",
			Value:       summary.DefaultRequestInterval,
			Sources:     cli.EnvVars("CATCHUP_LLM_REQUEST_INTERVAL"),
			Destination: &x.requestInterval,
		},
	}
}

func (x LLM) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.Int("max_tokens", x.maxTokens),
		slog.Float64("temperature", x.temperature),
	)
}

// MaxRetries returns the per-call retry budget
func (x *LLM) MaxRetries() int {
	return x.maxRetries
}

// RequestInterval returns the minimum gap between LLM calls
func (x *LLM) RequestInterval() time.Duration {
	return x.requestInterval
}

// Configure creates the completion backend for the configured flags. The
// caller is responsible for calling Close() on the returned generator.
func (x *LLM) Configure(ctx context.Context) (interfaces.TextGenerator, error) {
	switch x.backend {
	case "gemini", "":
		if x.geminiProject == "" {
			return nil, goerr.New("gemini-project is required for the gemini backend")
		}
		client, err := gemini.New(ctx, x.geminiProject, x.geminiLocation)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client")
		}
		return summary.NewGollemGenerator(client), nil

	case "openai":
		return summary.NewOpenAIGenerator(summary.OpenAIConfig{
			BaseURL:     x.openaiURL,
			APIKey:      x.openaiKey,
			Model:       x.openaiModel,
			MaxTokens:   x.maxTokens,
			Temperature: float32(x.temperature),
			Timeout:     x.timeout,
			CACertFile:  x.openaiCACert,
		})

	case "local":
		return summary.NewLocalGenerator(ctx, summary.LocalConfig{
			Binary:      x.localBinary,
			ModelPath:   x.localModel,
			Threads:     x.localThreads,
			ContextSize: x.localCtxSize,
			MaxTokens:   x.maxTokens,
			Temperature: float32(x.temperature),
		})

	default:
		return nil, goerr.New("invalid LLM backend", goerr.V("backend", x.backend))
	}
}
