package summary

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
)

// gollemGenerator runs completions through a gollem.LLMClient. Each call
// opens a fresh session; the two-pass prompts carry their own context, so
// no conversation state is kept server-side.
type gollemGenerator struct {
	client gollem.LLMClient
}

var _ interfaces.TextGenerator = &gollemGenerator{}

// NewGollemGenerator wraps a gollem LLM client as a completion backend
func NewGollemGenerator(client gollem.LLMClient) interfaces.TextGenerator {
	return &gollemGenerator{client: client}
}

func (g *gollemGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	session, err := g.client.NewSession(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content from LLM")
	}
	if len(resp.Texts) == 0 {
		return "", goerr.New("LLM returned no text parts")
	}
	return resp.Texts[0], nil
}

func (g *gollemGenerator) Close() error {
	return nil
}
