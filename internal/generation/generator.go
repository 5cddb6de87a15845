package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/gateway"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

// ToolCaller performs one forced tool call.
type ToolCaller interface {
	CallTool(ctx context.Context, req gateway.ToolRequest) (json.RawMessage, error)
}

// Result holds exactly one of Flashcards or Quiz, matching Type.
type Result struct {
	Type       Type          `json:"type"`
	Flashcards *FlashcardSet `json:"flashcards,omitempty"`
	Quiz       *QuizSet      `json:"quiz,omitempty"`
	Issues     []Issue       `json:"issues,omitempty"`
}

type Generator struct {
	caller  ToolCaller
	prompts *Prompts
	timeout time.Duration
	log     *logger.Logger
}

func NewGenerator(caller ToolCaller, prompts *Prompts, timeout time.Duration, log *logger.Logger) *Generator {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{caller: caller, prompts: prompts, timeout: timeout, log: log.With("component", "Generator")}
}

func (g *Generator) Prompts() *Prompts { return g.prompts }

// Generate validates req, performs the tool call under the configured
// timeout and decodes the structured result.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, _ := ParseType(string(req.Type))

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	raw, err := g.caller.CallTool(callCtx, gateway.ToolRequest{
		System: g.prompts.For(t).System,
		User:   g.prompts.UserMessage(t, req.Content),
		Tool:   ToolFor(t, g.prompts),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", apperr.ErrGenerationTimeout, g.timeout)
		}
		g.log.Warn("generation call failed", "type", t, "error", err)
		return nil, err
	}

	res := &Result{Type: t}
	switch t {
	case TypeQuiz:
		set, issues, err := ParseQuiz(raw)
		if err != nil {
			return nil, err
		}
		res.Quiz, res.Issues = &set, issues
	default:
		set, issues, err := ParseFlashcards(raw)
		if err != nil {
			return nil, err
		}
		res.Flashcards, res.Issues = &set, issues
	}
	for _, is := range res.Issues {
		g.log.Warn("generated content quality issue", "type", t, "issue", is.String())
	}
	g.log.Debug("generation complete", "type", t, "elapsed_ms", time.Since(started).Milliseconds())
	return res, nil
}
