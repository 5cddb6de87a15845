package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
)

type FlashcardItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Subject  string `json:"subject"`
}

type FlashcardSet struct {
	Flashcards []FlashcardItem `json:"flashcards"`
}

type QuizItem struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

type QuizSet struct {
	Title     string     `json:"title"`
	Questions []QuizItem `json:"questions"`
}

// Issue is a data-quality problem found in a generated payload. Issues are
// reported, never repaired.
type Issue struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

func (i Issue) String() string {
	return fmt.Sprintf("#%d %s: %s", i.Index, i.Field, i.Problem)
}

// ParseFlashcards decodes tool arguments. Any non-negative count is accepted.
// Cards with a blank question or answer are dropped and reported.
func ParseFlashcards(raw []byte) (FlashcardSet, []Issue, error) {
	var set FlashcardSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return FlashcardSet{}, nil, fmt.Errorf("%w: decode flashcards: %v", apperr.ErrNoStructuredResult, err)
	}
	var (
		kept   = make([]FlashcardItem, 0, len(set.Flashcards))
		issues []Issue
	)
	for i, fc := range set.Flashcards {
		fc.Question = strings.TrimSpace(fc.Question)
		fc.Answer = strings.TrimSpace(fc.Answer)
		fc.Subject = strings.TrimSpace(fc.Subject)
		switch {
		case fc.Question == "":
			issues = append(issues, Issue{Index: i, Field: "question", Problem: "empty; card skipped"})
			continue
		case fc.Answer == "":
			issues = append(issues, Issue{Index: i, Field: "answer", Problem: "empty; card skipped"})
			continue
		}
		kept = append(kept, fc)
	}
	set.Flashcards = kept
	return set, issues, nil
}

// ParseQuiz decodes tool arguments and reports, without fixing, questions
// whose options are not four distinct strings or whose correct answer is
// not one of them.
func ParseQuiz(raw []byte) (QuizSet, []Issue, error) {
	var set QuizSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return QuizSet{}, nil, fmt.Errorf("%w: decode quiz: %v", apperr.ErrNoStructuredResult, err)
	}
	set.Title = strings.TrimSpace(set.Title)
	if set.Questions == nil {
		set.Questions = []QuizItem{}
	}
	var issues []Issue
	if set.Title == "" {
		issues = append(issues, Issue{Index: -1, Field: "title", Problem: "empty"})
	}
	for i, q := range set.Questions {
		issues = append(issues, CheckQuestion(i, q)...)
	}
	return set, issues, nil
}

// CheckQuestion lists the data-quality problems of a single question.
func CheckQuestion(index int, q QuizItem) []Issue {
	var issues []Issue
	if strings.TrimSpace(q.Question) == "" {
		issues = append(issues, Issue{Index: index, Field: "question", Problem: "empty"})
	}
	if len(q.Options) != 4 {
		issues = append(issues, Issue{Index: index, Field: "options", Problem: fmt.Sprintf("expected 4 options, got %d", len(q.Options))})
	}
	if dup, ok := firstDuplicate(q.Options); ok {
		issues = append(issues, Issue{Index: index, Field: "options", Problem: fmt.Sprintf("duplicate option %q makes grading ambiguous", dup)})
	}
	if !containsOption(q.Options, q.CorrectAnswer) {
		issues = append(issues, Issue{Index: index, Field: "correct_answer", Problem: "not among options"})
	}
	return issues
}

func firstDuplicate(options []string) (string, bool) {
	seen := make(map[string]struct{}, len(options))
	for _, o := range options {
		if _, ok := seen[o]; ok {
			return o, true
		}
		seen[o] = struct{}{}
	}
	return "", false
}

func containsOption(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
