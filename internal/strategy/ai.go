package strategy

import (
	"context"
	"fmt"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/llm"
)

// analysisPrompts maps the analysis_type parameter to the system prompt
// framing the LM call.
var analysisPrompts = map[string]string{
	"code":          "Review the following for correctness and clarity.",
	"security":      "Review the following for security vulnerabilities.",
	"performance":   "Review the following for performance issues.",
	"documentation": "Summarize the following for documentation purposes.",
	"general":       "Analyze the following.",
}

// AIStrategy implements AI_ANALYSIS and TEXT_PROCESSING by invoking a
// llm.LanguageModel with a prompt built from the task's analysis_type.
type AIStrategy struct {
	Model    llm.LanguageModel
	Auth     llm.Auth
	Narrator Narrator
}

// NewAIStrategy constructs an AIStrategy.
func NewAIStrategy(model llm.LanguageModel, auth llm.Auth, narrator Narrator) *AIStrategy {
	return &AIStrategy{Model: model, Auth: auth, Narrator: narrator}
}

// Execute implements Strategy.
func (s *AIStrategy) Execute(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		if s.Auth != nil && !s.Auth.IsReady() {
			return agentcore.TaskResult{}, agentcore.NewValidationError("auth", "language model backend is not ready")
		}

		content, err := requireParam(task, "content")
		if err != nil {
			return agentcore.TaskResult{}, err
		}
		analysisType := optionalParam(task, "analysis_type", "general")
		systemPrompt, ok := analysisPrompts[analysisType]
		if !ok {
			return agentcore.TaskResult{}, agentcore.NewValidationError("analysis_type", fmt.Sprintf("unknown analysis_type %q", analysisType))
		}

		if s.Narrator != nil {
			s.Narrator.Narrate(fmt.Sprintf("agent running %s analysis (%d bytes of content)", analysisType, len(content)))
		}

		text, usage, err := s.Model.Ask(ctx, systemPrompt, content, nil)
		if err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}

		return agentcore.TaskResult{
			Success: true,
			Output:  text,
			Metrics: map[string]float64{
				"input_tokens":  float64(usage.InputTokens),
				"output_tokens": float64(usage.OutputTokens),
			},
		}, nil
	})
}

// DecisionStrategy implements DECISION: a single LM call framed as a
// yes/no/choice prompt, returning the raw model text for the task's
// submitter to interpret.
type DecisionStrategy struct {
	Model    llm.LanguageModel
	Narrator Narrator
}

// NewDecisionStrategy constructs a DecisionStrategy.
func NewDecisionStrategy(model llm.LanguageModel, narrator Narrator) *DecisionStrategy {
	return &DecisionStrategy{Model: model, Narrator: narrator}
}

// Execute implements Strategy.
func (s *DecisionStrategy) Execute(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		question, err := requireParam(task, "question")
		if err != nil {
			return agentcore.TaskResult{}, err
		}
		if s.Narrator != nil {
			s.Narrator.Narrate(fmt.Sprintf("agent deciding: %s", question))
		}
		text, _, err := s.Model.Ask(ctx, "Answer concisely and decisively.", question, nil)
		if err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}
		return agentcore.TaskResult{Success: true, Output: text}, nil
	})
}
