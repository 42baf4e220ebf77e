package plans

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/angelmondragon/quizfunnel-backend/pkg/openai"
	"github.com/google/uuid"
)

func TestParsePlanWellFormed(t *testing.T) {
	out := "```json\n" + `{
		"profileType": "Sprinter",
		"batteryLevel": 72,
		"blockers": ["time", "focus"],
		"skillTrack": "Deep work",
		"weeks": [
			{"title": "Reset", "summary": "a"},
			{"title": "Build", "summary": "b"},
			{"title": "Stretch", "summary": "c"},
			{"title": "Own it", "summary": "d"}
		],
		"dailyMission": {"title": "Ten minutes", "description": "do it", "durationMinutes": 10}
	}` + "\n```"

	plan, ok := ParsePlan(out)
	if !ok {
		t.Fatal("expected json object to be found")
	}
	if plan.ProfileType != "Sprinter" || plan.BatteryLevel != 72 || plan.SkillTrack != "Deep work" {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if len(plan.Blockers) != 2 || plan.Weeks[3].Title != "Own it" || plan.Weeks[3].Week != 4 {
		t.Fatalf("unexpected lists %+v", plan)
	}
	if plan.DailyMission.DurationMinutes != 10 {
		t.Fatalf("unexpected mission %+v", plan.DailyMission)
	}
}

func TestParsePlanDefaultsMalformedFields(t *testing.T) {
	out := `Sure! Here you go: {"profileType": 12, "batteryLevel": "140%", "blockers": "procrastination",
		"weeks": [{"title": "Only one {brace} week"}], "dailyMission": null} trailing text`

	plan, ok := ParsePlan(out)
	if !ok {
		t.Fatal("expected json object to be found")
	}
	if plan.ProfileType != defaultProfileType || plan.SkillTrack != defaultSkillTrack {
		t.Fatalf("expected text defaults, got %+v", plan)
	}
	if plan.BatteryLevel != 100 {
		t.Fatalf("battery should clamp to 100, got %d", plan.BatteryLevel)
	}
	if len(plan.Blockers) != 1 || plan.Blockers[0] != "procrastination" {
		t.Fatalf("unexpected blockers %v", plan.Blockers)
	}
	if len(plan.Weeks) != planWeeks || plan.Weeks[0].Title != "Only one {brace} week" || plan.Weeks[2].Title != "Week 3" {
		t.Fatalf("unexpected weeks %+v", plan.Weeks)
	}
	if plan.DailyMission.Title == "" || plan.DailyMission.DurationMinutes != defaultMissionMins {
		t.Fatalf("mission should be defaulted, got %+v", plan.DailyMission)
	}
}

func TestParsePlanToleratesWrongTypedSections(t *testing.T) {
	out := `{
		"profileType": "Sprinter",
		"batteryLevel": 40,
		"weeks": ["Reset", "Build", 3, {"title": "Own it"}],
		"dailyMission": "Walk 10 minutes"
	}`

	plan, ok := ParsePlan(out)
	if !ok {
		t.Fatal("expected json object to be found")
	}
	if plan.ProfileType != "Sprinter" || plan.BatteryLevel != 40 {
		t.Fatalf("well-typed fields lost: %+v", plan)
	}
	if plan.Weeks[0].Title != "Reset" || plan.Weeks[1].Title != "Build" {
		t.Fatalf("string weeks not used as titles: %+v", plan.Weeks)
	}
	if plan.Weeks[2].Title != "Week 3" || plan.Weeks[3].Title != "Own it" {
		t.Fatalf("unexpected week fallback: %+v", plan.Weeks)
	}
	if plan.DailyMission.Title != "Walk 10 minutes" || plan.DailyMission.DurationMinutes != defaultMissionMins {
		t.Fatalf("unexpected mission %+v", plan.DailyMission)
	}

	plan, ok = ParsePlan(`{"profileType": "Anchor", "weeks": "four weeks", "dailyMission": 7}`)
	if !ok || plan.ProfileType != "Anchor" {
		t.Fatalf("expected object accepted, got ok=%v plan=%+v", ok, plan)
	}
	if len(plan.Weeks) != planWeeks || plan.Weeks[0].Title != "Week 1" || plan.DailyMission.Title != "Daily focus" {
		t.Fatalf("expected defaults, got %+v", plan)
	}
}

func TestParsePlanWithoutObject(t *testing.T) {
	plan, ok := ParsePlan("I cannot help with that.")
	if ok {
		t.Fatal("expected no object")
	}
	if len(plan.Weeks) != planWeeks || plan.Blockers == nil {
		t.Fatal("defaults must still be renderable")
	}
}

type stubCompleter struct {
	out  string
	err  error
	last openai.CompletionRequest
}

func (s *stubCompleter) Complete(_ context.Context, req openai.CompletionRequest) (string, error) {
	s.last = req
	return s.out, s.err
}

type stubStore struct {
	id   uuid.UUID
	plan json.RawMessage
}

func (s *stubStore) AttachPlan(_ context.Context, id uuid.UUID, plan json.RawMessage) error {
	s.id = id
	s.plan = plan
	return nil
}

func TestGenerateAttachesPlanToLead(t *testing.T) {
	completer := &stubCompleter{out: `{"profileType":"Builder","batteryLevel":30}`}
	store := &stubStore{}
	gen := NewGenerator(completer, store, nil)
	leadID := uuid.New()

	plan, err := gen.Generate(context.Background(), GenerateInput{
		Name:    "Sam",
		Answers: json.RawMessage(`{"q1":"a"}`),
		LeadID:  &leadID,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if plan.ProfileType != "Builder" {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if !completer.last.JSONMode || len(completer.last.Messages) != 2 {
		t.Fatalf("unexpected completion request %+v", completer.last)
	}
	if store.id != leadID || len(store.plan) == 0 {
		t.Fatal("expected plan attached to lead")
	}
}

func TestGenerateFailures(t *testing.T) {
	ctx := context.Background()
	answers := json.RawMessage(`{}`)

	_, err := NewGenerator(nil, nil, nil).Generate(ctx, GenerateInput{Answers: answers})
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error without completer, got %v", err)
	}

	_, err = NewGenerator(&stubCompleter{err: errors.New("timeout")}, nil, nil).Generate(ctx, GenerateInput{Answers: answers})
	if pkgerrors.As(err).Code() != pkgerrors.CodeUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}

	_, err = NewGenerator(&stubCompleter{out: "no json"}, nil, nil).Generate(ctx, GenerateInput{Answers: answers})
	if pkgerrors.As(err).Code() != pkgerrors.CodeUpstream {
		t.Fatalf("expected upstream error for unparseable output, got %v", err)
	}

	_, err = NewGenerator(&stubCompleter{}, nil, nil).Generate(ctx, GenerateInput{Answers: json.RawMessage(`{oops`)})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
