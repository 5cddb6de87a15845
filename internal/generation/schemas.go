package generation

import (
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/yungbote/studydesk-backend/internal/platform/gateway"
)

const (
	ToolGenerateFlashcards = "generate_flashcards"
	ToolGenerateQuiz       = "generate_quiz"
)

func flashcardsSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"flashcards": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"question": {Type: jsonschema.String, Description: "The question for the flashcard"},
						"answer":   {Type: jsonschema.String, Description: "The answer to the question"},
						"subject":  {Type: jsonschema.String, Description: "The subject/topic category"},
					},
					Required: []string{"question", "answer", "subject"},
				},
			},
		},
		Required: []string{"flashcards"},
	}
}

func quizSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"title": {Type: jsonschema.String, Description: "A title for the quiz based on the content"},
			"questions": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"question": {Type: jsonschema.String, Description: "The quiz question"},
						"options": {
							Type:        jsonschema.Array,
							Items:       &jsonschema.Definition{Type: jsonschema.String},
							Description: "Four possible answers",
						},
						"correct_answer": {Type: jsonschema.String, Description: "The correct answer (must be one of the options)"},
						"explanation":    {Type: jsonschema.String, Description: "Brief explanation of why this is correct"},
					},
					Required: []string{"question", "options", "correct_answer"},
				},
			},
		},
		Required: []string{"title", "questions"},
	}
}

// ToolFor returns the single tool offered for t.
func ToolFor(t Type, p *Prompts) gateway.Tool {
	set := p.For(t)
	if t == TypeQuiz {
		return gateway.NewFunctionTool(ToolGenerateQuiz, set.ToolDescription, quizSchema())
	}
	return gateway.NewFunctionTool(ToolGenerateFlashcards, set.ToolDescription, flashcardsSchema())
}
