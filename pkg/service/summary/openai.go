package summary

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	openai "github.com/sashabaranov/go-openai"
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
)

// OpenAIConfig configures a completion backend speaking the OpenAI chat API.
// BaseURL may point at any compatible server, including a local one.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration

	// CACertFile adds a PEM bundle to the trusted roots, for servers behind
	// a private CA
	CACertFile string
}

type openaiGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

var _ interfaces.TextGenerator = &openaiGenerator{}

// NewOpenAIGenerator creates a completion backend from an OpenAI-compatible
// chat endpoint
func NewOpenAIGenerator(cfg OpenAIConfig) (interfaces.TextGenerator, error) {
	if cfg.Model == "" {
		return nil, goerr.New("OpenAI model name is required")
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		// Local servers ignore the key but the client requires one
		apiKey = "unused"
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	if cfg.CACertFile != "" {
		pool, err := caPool(cfg.CACertFile)
		if err != nil {
			return nil, err
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		}
	}
	clientCfg.HTTPClient = httpClient

	return &openaiGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (g *openaiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", goerr.Wrap(err, "chat completion failed", goerr.V("model", g.model))
	}
	if len(resp.Choices) == 0 {
		return "", goerr.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *openaiGenerator) Close() error {
	return nil
}

func caPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read CA bundle", goerr.V("path", path))
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, goerr.New("CA bundle contains no usable certificates", goerr.V("path", path))
	}
	return pool, nil
}
