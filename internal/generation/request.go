package generation

import (
	"fmt"
	"strings"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
)

type Type string

const (
	TypeFlashcards Type = "flashcards"
	TypeQuiz       Type = "quiz"
)

func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeFlashcards:
		return TypeFlashcards, nil
	case TypeQuiz:
		return TypeQuiz, nil
	}
	return "", fmt.Errorf("%w: %q", apperr.ErrInvalidGenerationType, s)
}

// Request asks for exactly one of the two output schemas.
type Request struct {
	Content string `json:"content"`
	Type    Type   `json:"type"`
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return apperr.ErrNoSourceContent
	}
	if _, err := ParseType(string(r.Type)); err != nil {
		return err
	}
	return nil
}

// SourceDocument is one named piece of study material.
type SourceDocument struct {
	Name string
	Text string
}

// AssembleSource concatenates documents, each introduced by a filename
// marker line. Documents with no text are skipped.
func AssembleSource(docs []SourceDocument) string {
	var b strings.Builder
	for _, d := range docs {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		name := strings.TrimSpace(d.Name)
		if name == "" {
			name = "untitled"
		}
		fmt.Fprintf(&b, "--- %s ---\n", name)
		b.WriteString(text)
	}
	return b.String()
}

// SourceLabel names the batch a generation came from: the single
// filename, or a joined list for multi-document sources.
func SourceLabel(docs []SourceDocument) string {
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			continue
		}
		if n := strings.TrimSpace(d.Name); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, ", ")
}
