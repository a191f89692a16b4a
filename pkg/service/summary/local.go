package summary

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
	"github.com/unread-lab/catchup/pkg/utils/logging"
)

// LocalConfig configures a locally spawned llama-server process exposing an
// OpenAI-compatible chat endpoint
type LocalConfig struct {
	// Binary is the llama-server executable, found on PATH when bare
	Binary string
	// ModelPath is the GGUF model file to load
	ModelPath string
	Threads   int
	// Port of the spawned server; 0 picks a free port
	Port int
	// ContextSize is the model context window passed to the server
	ContextSize int
	// StartupTimeout bounds the wait for the server's health endpoint
	StartupTimeout time.Duration

	MaxTokens   int
	Temperature float32
}

// localGenerator owns a llama-server child process and proxies completions
// to it through the OpenAI-compatible API
type localGenerator struct {
	interfaces.TextGenerator
	cmd    *exec.Cmd
	doneCh chan error
}

// NewLocalGenerator spawns a llama-server process for the given model and
// waits until it answers health checks. Close terminates the process.
func NewLocalGenerator(ctx context.Context, cfg LocalConfig) (interfaces.TextGenerator, error) {
	if cfg.ModelPath == "" {
		return nil, goerr.New("local model path is required")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, goerr.Wrap(err, "local model file is not readable", goerr.V("path", cfg.ModelPath))
	}

	binary := cfg.Binary
	if binary == "" {
		binary = "llama-server"
	}
	port := cfg.Port
	if port == 0 {
		p, err := freePort()
		if err != nil {
			return nil, err
		}
		port = p
	}

	args := []string{
		"--model", cfg.ModelPath,
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(port),
	}
	if cfg.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(cfg.Threads))
	}
	if cfg.ContextSize > 0 {
		args = append(args, "--ctx-size", strconv.Itoa(cfg.ContextSize))
	}

	cmd := exec.Command(binary, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, goerr.Wrap(err, "failed to start local LLM server",
			goerr.V("binary", binary))
	}
	logging.From(ctx).Info("started local LLM server",
		"binary", binary, "model", cfg.ModelPath, "port", port, "pid", cmd.Process.Pid)

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- cmd.Wait()
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d/v1", port)
	if err := waitReady(ctx, baseURL, doneCh, cfg.StartupTimeout); err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}

	inner, err := NewOpenAIGenerator(OpenAIConfig{
		BaseURL:     baseURL,
		Model:       "local",
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}

	return &localGenerator{TextGenerator: inner, cmd: cmd, doneCh: doneCh}, nil
}

func (g *localGenerator) Close() error {
	if err := g.cmd.Process.Kill(); err != nil {
		return goerr.Wrap(err, "failed to stop local LLM server")
	}
	select {
	case <-g.doneCh:
	case <-time.After(5 * time.Second):
	}
	return g.TextGenerator.Close()
}

// waitReady polls the server's health endpoint until it answers, the process
// exits, or the timeout elapses. llama-server loads the model before it
// starts listening, which can take a while for large models.
func waitReady(ctx context.Context, baseURL string, doneCh <-chan error, timeout time.Duration) error {
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	deadline := time.Now().Add(timeout)
	healthURL := baseURL + "/models"
	client := &http.Client{Timeout: 2 * time.Second}

	for time.Now().Before(deadline) {
		select {
		case err := <-doneCh:
			return goerr.Wrap(err, "local LLM server exited during startup")
		case <-ctx.Done():
			return goerr.Wrap(ctx.Err(), "canceled while waiting for local LLM server")
		case <-time.After(500 * time.Millisecond):
		}

		resp, err := client.Get(healthURL)
		if err != nil {
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode < 500 {
			return nil
		}
	}

	return goerr.New("local LLM server did not become ready",
		goerr.V("timeout", timeout.String()))
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, goerr.Wrap(err, "failed to pick a free port")
	}
	defer func() {
		_ = l.Close()
	}()
	return l.Addr().(*net.TCPAddr).Port, nil
}
