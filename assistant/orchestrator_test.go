package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/v-kyrychenko/ka4-today-bot/apperr"
	"github.com/v-kyrychenko/ka4-today-bot/store"
)

type fakePromptStore struct {
	prompts map[string]*store.PromptDefinition
}

func (f *fakePromptStore) GetPrompt(_ context.Context, lang, promptID string) (*store.PromptDefinition, error) {
	def, ok := f.prompts[promptID]
	if !ok {
		return nil, apperr.ClientInput("prompt %q not found", promptID)
	}
	if _, ok := def.Prompts[lang]; !ok {
		return nil, apperr.ClientInput("prompt %q has no translation for language %q", promptID, lang)
	}
	return def, nil
}

type runScriptStep struct {
	run *Run
}

type fakeRunService struct {
	started   []StartRun
	script    []runScriptStep
	getCalls  int
	submitted [][]ToolCallResult
	// submitBeforeGet records the get-call count at each submit, to assert
	// ordering between tool output submission and the next status check.
	submitBeforeGet []int
}

func (f *fakeRunService) CreateRun(_ context.Context, req StartRun) (string, error) {
	f.started = append(f.started, req)
	return "run_1", nil
}

func (f *fakeRunService) GetRun(_ context.Context, _ string) (*Run, error) {
	step := f.getCalls
	if step >= len(f.script) {
		step = len(f.script) - 1
	}
	f.getCalls++
	return f.script[step].run, nil
}

func (f *fakeRunService) SubmitToolOutputs(_ context.Context, _ string, outputs []ToolCallResult) error {
	f.submitted = append(f.submitted, outputs)
	f.submitBeforeGet = append(f.submitBeforeGet, f.getCalls)
	return nil
}

func testPromptStore() *fakePromptStore {
	return &fakePromptStore{prompts: map[string]*store.PromptDefinition{
		"daily_workout": {
			ID:              "daily_workout",
			SystemPromptRef: "trainer_system",
			VectorStoreIDs:  []string{"vs_1"},
			Prompts:         map[string]string{"ua": "Тренування: ${plan}", "en": "Workout: ${plan}"},
		},
		"trainer_system": {
			ID:      "trainer_system",
			Prompts: map[string]string{"ua": "Ти тренер.", "en": "You are a trainer."},
		},
		"no_system": {
			ID:      "no_system",
			Prompts: map[string]string{"ua": "..."},
		},
	}}
}

func completedRun(reply string) *Run {
	return &Run{
		ID:     "run_1",
		Status: StatusCompleted,
		Output: []OutputItem{textItem("assistant", 100, reply)},
	}
}

func newTestOrchestrator(runs RunService, funcs *Functions) *Orchestrator {
	return NewOrchestrator(runs, testPromptStore(), funcs, Config{
		PollInterval: time.Millisecond,
		PollAttempts: 5,
	})
}

func TestFetchReplyCompletesOnFirstTick(t *testing.T) {
	t.Parallel()

	runs := &fakeRunService{script: []runScriptStep{{run: completedRun("Ось ваш план.")}}}
	o := newTestOrchestrator(runs, NewFunctions())

	reply, err := o.FetchReply(context.Background(), RunContext{}, "daily_workout",
		map[string]any{"plan": map[string]int{"chest": 3}})
	if err != nil {
		t.Fatalf("FetchReply() error = %v", err)
	}
	if reply != "Ось ваш план." {
		t.Errorf("reply = %q", reply)
	}

	if len(runs.started) != 1 {
		t.Fatalf("CreateRun called %d times, want 1", len(runs.started))
	}
	req := runs.started[0]
	if req.SystemPrompt != "Ти тренер." {
		t.Errorf("system prompt = %q", req.SystemPrompt)
	}
	if req.UserPrompt != "Тренування: chest: 3" {
		t.Errorf("user prompt = %q", req.UserPrompt)
	}
	if len(req.VectorStoreIDs) != 1 || req.VectorStoreIDs[0] != "vs_1" {
		t.Errorf("vector store ids = %v", req.VectorStoreIDs)
	}
}

func TestFetchReplyUsesContextLanguage(t *testing.T) {
	t.Parallel()

	runs := &fakeRunService{script: []runScriptStep{{run: completedRun("Here you go.")}}}
	o := newTestOrchestrator(runs, NewFunctions())

	_, err := o.FetchReply(context.Background(), RunContext{Language: "en"}, "daily_workout",
		map[string]any{"plan": "chest"})
	if err != nil {
		t.Fatalf("FetchReply() error = %v", err)
	}
	if got := runs.started[0].UserPrompt; got != "Workout: chest" {
		t.Errorf("user prompt = %q", got)
	}
}

func TestFetchReplyMissingPromptIsClientInput(t *testing.T) {
	t.Parallel()

	runs := &fakeRunService{}
	o := newTestOrchestrator(runs, NewFunctions())

	_, err := o.FetchReply(context.Background(), RunContext{}, "unknown_ref", nil)
	if !apperr.IsKind(err, apperr.KindClientInput) {
		t.Fatalf("expected client-input error, got %v", err)
	}
	if len(runs.started) != 0 {
		t.Error("no run may start on a configuration error")
	}
}

func TestFetchReplyMissingSystemPromptRefIsClientInput(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(&fakeRunService{}, NewFunctions())
	_, err := o.FetchReply(context.Background(), RunContext{}, "no_system", nil)
	if !apperr.IsKind(err, apperr.KindClientInput) {
		t.Fatalf("expected client-input error, got %v", err)
	}
}

func TestFetchReplyServicesToolCallBatchBetweenTicks(t *testing.T) {
	t.Parallel()

	runs := &fakeRunService{script: []runScriptStep{
		{run: &Run{
			ID:     "run_1",
			Status: StatusRequiresAction,
			RequiredAction: &RequiredAction{
				Type: SubmitToolOutputsActionType,
				ToolCalls: []ToolCallRequest{{
					CallID:    "call_1",
					Name:      "getAvailableExercises",
					Arguments: "{}",
				}},
			},
		}},
		{run: completedRun("done")},
	}}

	funcs := NewFunctions()
	invocations := 0
	err := funcs.Register(FunctionSchema{Name: "getAvailableExercises"}, func(context.Context, map[string]any) (any, error) {
		invocations++
		return []string{"bench press"}, nil
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	o := newTestOrchestrator(runs, funcs)
	reply, err := o.FetchReply(context.Background(), RunContext{}, "daily_workout", nil)
	if err != nil {
		t.Fatalf("FetchReply() error = %v", err)
	}
	if reply != "done" {
		t.Errorf("reply = %q", reply)
	}
	if invocations != 1 {
		t.Errorf("handler invoked %d times, want 1", invocations)
	}
	if len(runs.submitted) != 1 || len(runs.submitted[0]) != 1 {
		t.Fatalf("submitted = %+v, want one batch of one output", runs.submitted)
	}
	// The batch must be submitted after the first status check and before
	// the second.
	if runs.submitBeforeGet[0] != 1 {
		t.Errorf("outputs submitted after %d status checks, want 1", runs.submitBeforeGet[0])
	}
}

func TestFetchReplyFailedStatusAbortsImmediately(t *testing.T) {
	t.Parallel()

	runs := &fakeRunService{script: []runScriptStep{
		{run: &Run{ID: "run_1", Status: StatusFailed}},
	}}
	o := newTestOrchestrator(runs, NewFunctions())

	_, err := o.FetchReply(context.Background(), RunContext{}, "daily_workout", nil)
	if !apperr.IsKind(err, apperr.KindRemoteService) {
		t.Fatalf("expected remote-service error, got %v", err)
	}
	if runs.getCalls != 1 {
		t.Errorf("status checked %d times, want 1", runs.getCalls)
	}
}

func TestFetchReplyExhaustedBudgetIsTimeout(t *testing.T) {
	t.Parallel()

	runs := &fakeRunService{script: []runScriptStep{
		{run: &Run{ID: "run_1", Status: StatusInProgress}},
	}}
	o := newTestOrchestrator(runs, NewFunctions())

	_, err := o.FetchReply(context.Background(), RunContext{}, "daily_workout", nil)
	if !apperr.IsKind(err, apperr.KindTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if runs.getCalls != 5 {
		t.Errorf("status checked %d times, want 5 (the attempt budget)", runs.getCalls)
	}
}

func TestFetchReplyUnknownFunctionFailsRun(t *testing.T) {
	t.Parallel()

	runs := &fakeRunService{script: []runScriptStep{
		{run: &Run{
			ID:     "run_1",
			Status: StatusRequiresAction,
			RequiredAction: &RequiredAction{
				Type:      SubmitToolOutputsActionType,
				ToolCalls: []ToolCallRequest{{CallID: "c", Name: "nope", Arguments: "{}"}},
			},
		}},
	}}
	o := newTestOrchestrator(runs, NewFunctions())

	_, err := o.FetchReply(context.Background(), RunContext{}, "daily_workout", nil)
	if !apperr.IsKind(err, apperr.KindUnknownCapability) {
		t.Fatalf("expected unknown-capability error, got %v", err)
	}
	if len(runs.submitted) != 0 {
		t.Error("nothing may be submitted when the batch fails")
	}
}
