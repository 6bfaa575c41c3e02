package services

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
	"github.com/sailing-innocent/SailZen/internal/utils"
)

//go:embed prompts/entity_extraction.yaml
var defaultExtractionPromptYAML []byte

type extractionPrompts struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`

	userTmpl *template.Template
}

// loadExtractionPrompts reads the prompt pair from EXTRACTOR_PROMPT_FILE when
// set, otherwise the embedded default.
func loadExtractionPrompts(log *logger.Logger) (*extractionPrompts, error) {
	raw := defaultExtractionPromptYAML
	if path := utils.GetEnv("EXTRACTOR_PROMPT_FILE", "", log); path != "" {
		fileRaw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompt file %s: %w", path, err)
		}
		raw = fileRaw
	}

	var prompts extractionPrompts
	if err := yaml.Unmarshal(raw, &prompts); err != nil {
		return nil, fmt.Errorf("parse prompt yaml: %w", err)
	}
	if prompts.System == "" || prompts.User == "" {
		return nil, fmt.Errorf("prompt yaml must define system and user templates")
	}

	tmpl, err := template.New("user").Parse(prompts.User)
	if err != nil {
		return nil, fmt.Errorf("parse user prompt template: %w", err)
	}
	prompts.userTmpl = tmpl
	return &prompts, nil
}

func (p *extractionPrompts) render(text, contextText string) (system, user string, err error) {
	var buf bytes.Buffer
	if err := p.userTmpl.Execute(&buf, map[string]string{
		"Text":    text,
		"Context": contextText,
	}); err != nil {
		return "", "", fmt.Errorf("render user prompt: %w", err)
	}
	return p.System, buf.String(), nil
}
