package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/unread-lab/catchup/pkg/service/summary"
	"github.com/urfave/cli/v3"
)

// Templates holds CLI flags for prompt template overrides
type Templates struct {
	path string
}

// promptFile is the TOML schema of the template override file
type promptFile struct {
	Prompts promptSection `toml:"prompts"`
}

type promptSection struct {
	Analysis string `toml:"analysis"`
	Summary  string `toml:"summary"`
}

// Flags returns CLI flags for template configuration
func (x *Templates) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "prompt-file",
			Usage:       "TOML file overriding the prompt templates ([prompts] analysis/summary)",
			Sources:     cli.EnvVars("CATCHUP_PROMPT_FILE"),
			Destination: &x.path,
		},
	}
}

// Configure parses the override file when given, or returns the embedded
// defaults. An override may replace one template and keep the other.
func (x *Templates) Configure() (*summary.Templates, error) {
	if x.path == "" {
		return summary.DefaultTemplates(), nil
	}

	data, err := os.ReadFile(x.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read prompt file", goerr.V("path", x.path))
	}

	var file promptFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse prompt file", goerr.V("path", x.path))
	}

	tmpl, err := summary.NewTemplates(file.Prompts.Analysis, file.Prompts.Summary)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid prompt template", goerr.V("path", x.path))
	}
	return tmpl, nil
}
