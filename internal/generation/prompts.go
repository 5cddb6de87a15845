package generation

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsFS embed.FS

type PromptSet struct {
	System          string `yaml:"system"`
	ToolDescription string `yaml:"tool_description"`
}

// Prompts is the instruction catalog sent with every generation.
type Prompts struct {
	Version      int       `yaml:"version"`
	Flashcards   PromptSet `yaml:"flashcards"`
	Quiz         PromptSet `yaml:"quiz"`
	Doubt        PromptSet `yaml:"doubt"`
	UserTemplate string    `yaml:"user_template"`
}

// LoadPrompts reads the catalog from path, or the embedded default when
// path is empty.
func LoadPrompts(path string) (*Prompts, error) {
	var (
		data []byte
		err  error
	)
	if p := strings.TrimSpace(path); p != "" {
		data, err = os.ReadFile(p)
	} else {
		data, err = promptsFS.ReadFile("prompts.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// DefaultPrompts returns the embedded catalog; it panics if the embedded
// file is invalid, which a unit test guards.
func DefaultPrompts() *Prompts {
	p, err := LoadPrompts("")
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Prompts) validate() error {
	if strings.TrimSpace(p.Flashcards.System) == "" {
		return errors.New("prompts: flashcards.system is empty")
	}
	if strings.TrimSpace(p.Quiz.System) == "" {
		return errors.New("prompts: quiz.system is empty")
	}
	if strings.Count(p.UserTemplate, "%s") != 2 {
		return errors.New("prompts: user_template needs two %s verbs")
	}
	return nil
}

func (p *Prompts) For(t Type) PromptSet {
	if t == TypeQuiz {
		return p.Quiz
	}
	return p.Flashcards
}

// UserMessage renders the user turn for a generation request.
func (p *Prompts) UserMessage(t Type, content string) string {
	return fmt.Sprintf(p.UserTemplate, t, content)
}
