package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/v-kyrychenko/ka4-today-bot/apperr"
	"github.com/v-kyrychenko/ka4-today-bot/internal/poll"
	"github.com/v-kyrychenko/ka4-today-bot/prompt"
	"github.com/v-kyrychenko/ka4-today-bot/store"
)

type Config struct {
	Model           string
	DefaultLanguage string
	PollInterval    time.Duration
	PollAttempts    int
}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// Orchestrator owns the lifecycle of one assistant invocation. At most one
// run is active per FetchReply call; a second run never starts before the
// first reaches a terminal status or the poll budget runs out.
type Orchestrator struct {
	runs    RunService
	prompts store.PromptStore
	funcs   *Functions
	cfg     Config
	log     *slog.Logger
}

func NewOrchestrator(runs RunService, prompts store.PromptStore, funcs *Functions, cfg Config, opts ...Option) *Orchestrator {
	if cfg.Model == "" {
		cfg.Model = "gpt-5-mini"
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "ua"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 30
	}
	o := &Orchestrator{
		runs:    runs,
		prompts: prompts,
		funcs:   funcs,
		cfg:     cfg,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// FetchReply resolves and renders the referenced prompt pair, starts a
// remote run, drives it to completion and returns the extracted reply.
func (o *Orchestrator) FetchReply(ctx context.Context, rc RunContext, promptRef string, vars map[string]any) (string, error) {
	lang := rc.Language
	if lang == "" {
		lang = o.cfg.DefaultLanguage
	}

	def, err := o.prompts.GetPrompt(ctx, lang, promptRef)
	if err != nil {
		return "", err
	}
	if def.SystemPromptRef == "" {
		return "", apperr.ClientInput("prompt %q has no system prompt reference", promptRef)
	}
	sysDef, err := o.prompts.GetPrompt(ctx, lang, def.SystemPromptRef)
	if err != nil {
		return "", err
	}

	systemPrompt := prompt.Render(sysDef.Prompts[lang], vars)
	userPrompt := prompt.Render(def.Prompts[lang], vars)

	runID, err := o.runs.CreateRun(ctx, StartRun{
		Model:          o.cfg.Model,
		SystemPrompt:   systemPrompt,
		UserPrompt:     userPrompt,
		VectorStoreIDs: def.VectorStoreIDs,
		Functions:      o.funcs.Schemas(),
	})
	if err != nil {
		return "", err
	}

	log := o.log.With("run_id", runID, "prompt_ref", promptRef, "lang", lang)
	log.Info("run_start", "model", o.cfg.Model, "vector_stores", len(def.VectorStoreIDs))

	completed, err := poll.Until(ctx, func(ctx context.Context) (bool, error) {
		return o.checkRun(ctx, log, rc, runID)
	}, o.cfg.PollInterval, o.cfg.PollAttempts)
	if err != nil {
		return "", err
	}
	if !completed {
		return "", apperr.Timeout("run %s did not complete within %d attempts", runID, o.cfg.PollAttempts)
	}

	run, err := o.runs.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	reply, err := ExtractReply(run.Output)
	if err != nil {
		return "", err
	}
	log.Info("run_done", "reply_len", len(reply))
	return reply, nil
}

// checkRun is one poll tick. A requires_action status services exactly one
// tool-call batch and reports "not yet"; the status is re-evaluated on the
// next tick rather than in a nested loop.
func (o *Orchestrator) checkRun(ctx context.Context, log *slog.Logger, rc RunContext, runID string) (bool, error) {
	run, err := o.runs.GetRun(ctx, runID)
	if err != nil {
		return false, err
	}
	log.Debug("poll_tick", "status", run.Status)

	switch run.Status {
	case StatusCompleted:
		return true, nil
	case StatusFailed:
		return false, apperr.RemoteService("run %s failed", runID)
	case StatusRequiresAction:
		if run.RequiredAction == nil || run.RequiredAction.Type != SubmitToolOutputsActionType {
			return false, apperr.MalformedResponse("run %s requires unsupported action", runID)
		}
		outputs, err := o.funcs.Dispatch(ctx, rc, run.RequiredAction.ToolCalls)
		if err != nil {
			return false, err
		}
		if err := o.runs.SubmitToolOutputs(ctx, runID, outputs); err != nil {
			return false, err
		}
		log.Info("tool_outputs_submitted", "count", len(outputs))
		return false, nil
	default:
		return false, nil
	}
}
