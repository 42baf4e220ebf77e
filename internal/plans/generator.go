package plans

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
	"github.com/angelmondragon/quizfunnel-backend/pkg/openai"
	"github.com/google/uuid"
)

const systemPrompt = `You are a coach writing a short personalised programme from quiz answers.
Reply with a single JSON object and nothing else, using exactly these keys:
"profileType" (string), "batteryLevel" (integer 0-100), "blockers" (array of strings),
"skillTrack" (string), "weeks" (array of 4 objects with "title" and "summary"),
"dailyMission" (object with "title", "description", "durationMinutes").`

// Completer produces text for a chat conversation.
type Completer interface {
	Complete(ctx context.Context, req openai.CompletionRequest) (string, error)
}

// PlanStore attaches generated plans to leads.
type PlanStore interface {
	AttachPlan(ctx context.Context, id uuid.UUID, plan json.RawMessage) error
}

type GenerateInput struct {
	Name    string
	Answers json.RawMessage
	LeadID  *uuid.UUID
}

type Generator struct {
	completer Completer
	store     PlanStore
	logg      *logger.Logger
}

// NewGenerator accepts a nil completer; Generate then reports the feature as
// unavailable.
func NewGenerator(completer Completer, store PlanStore, logg *logger.Logger) *Generator {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Generator{completer: completer, store: store, logg: logg}
}

func (g *Generator) Generate(ctx context.Context, in GenerateInput) (*Plan, error) {
	if g.completer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plan generation is not configured")
	}
	if len(in.Answers) == 0 || !json.Valid(in.Answers) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan request").
			WithDetails(map[string]string{"answers": "must be valid json"})
	}

	output, err := g.completer.Complete(ctx, openai.CompletionRequest{
		Messages: []openai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(in.Name, in.Answers)},
		},
		Temperature: 0.7,
		MaxTokens:   900,
		JSONMode:    true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "plan generation failed")
	}

	plan, ok := ParsePlan(output)
	if !ok {
		g.logg.Warn(g.logg.WithField(ctx, "output_len", len(output)), "plan generation returned no json object")
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "plan generation returned no plan")
	}

	if in.LeadID != nil && g.store != nil {
		encoded, err := json.Marshal(plan)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode plan")
		}
		if err := g.store.AttachPlan(ctx, *in.LeadID, encoded); err != nil {
			return nil, err
		}
	}
	return &plan, nil
}

func userPrompt(name string, answers json.RawMessage) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "the visitor"
	}
	return fmt.Sprintf("Name: %s\nQuiz answers (JSON): %s", name, string(answers))
}
