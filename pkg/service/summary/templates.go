package summary

import (
	_ "embed"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/analysis.md
var defaultAnalysisPrompt string

//go:embed prompt/summary.md
var defaultSummaryPrompt string

// PromptData is the placeholder set available to prompt templates. Analysis
// is empty during the first pass and holds the first pass output during the
// second.
type PromptData struct {
	ChannelName string
	Transcript  string
	Analysis    string
	StartDate   string
	EndDate     string
}

// Templates holds the parsed two-pass prompt templates
type Templates struct {
	analysis *template.Template
	summary  *template.Template
}

// NewTemplates parses the prompt templates, substituting the embedded
// defaults for empty sources
func NewTemplates(analysisSrc, summarySrc string) (*Templates, error) {
	if analysisSrc == "" {
		analysisSrc = defaultAnalysisPrompt
	}
	if summarySrc == "" {
		summarySrc = defaultSummaryPrompt
	}

	analysis, err := template.New("analysis").Parse(analysisSrc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse analysis prompt template")
	}
	summary, err := template.New("summary").Parse(summarySrc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse summary prompt template")
	}

	return &Templates{analysis: analysis, summary: summary}, nil
}

// DefaultTemplates returns the embedded prompt templates
func DefaultTemplates() *Templates {
	tmpl, err := NewTemplates("", "")
	if err != nil {
		panic("embedded prompt templates must parse: " + err.Error())
	}
	return tmpl
}
