package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/v-kyrychenko/ka4-today-bot/apperr"
)

// Functions maps function names to local callbacks. The registry is built
// once at process start and read-only afterwards; registration validates
// eagerly so a bad wiring fails at boot, not mid-run.
type Functions struct {
	fns     map[string]Func
	schemas map[string]FunctionSchema
	log     *slog.Logger
}

type FunctionsOption func(*Functions)

func FunctionsWithLogger(l *slog.Logger) FunctionsOption {
	return func(f *Functions) {
		if l != nil {
			f.log = l
		}
	}
}

func NewFunctions(opts ...FunctionsOption) *Functions {
	f := &Functions{
		fns:     make(map[string]Func),
		schemas: make(map[string]FunctionSchema),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

func (f *Functions) Register(schema FunctionSchema, fn Func) error {
	if schema.Name == "" {
		return fmt.Errorf("function name is required")
	}
	if fn == nil {
		return fmt.Errorf("function %q: callback is required", schema.Name)
	}
	if _, ok := f.fns[schema.Name]; ok {
		return fmt.Errorf("function %q is already registered", schema.Name)
	}
	f.fns[schema.Name] = fn
	f.schemas[schema.Name] = schema
	return nil
}

// Schemas returns the declared function schemas in name order.
func (f *Functions) Schemas() []FunctionSchema {
	out := make([]FunctionSchema, 0, len(f.schemas))
	for _, s := range f.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch services one requires_action batch: every pending call is
// parsed and resolved up front (a malformed or unknown call fails the
// whole batch), then the calls execute concurrently. The result list is
// complete or the batch fails; partial submission is never valid.
func (f *Functions) Dispatch(ctx context.Context, rc RunContext, calls []ToolCallRequest) ([]ToolCallResult, error) {
	type resolved struct {
		call ToolCallRequest
		fn   Func
		args map[string]any
	}

	batch := make([]resolved, 0, len(calls))
	for _, call := range calls {
		fn, ok := f.fns[call.Name]
		if !ok {
			return nil, apperr.UnknownCapability("tool call %s references unregistered function %q", call.CallID, call.Name)
		}
		args, err := parseArguments(call)
		if err != nil {
			return nil, err
		}
		batch = append(batch, resolved{call: call, fn: fn, args: mergeOverrides(args, rc.Overrides)})
	}

	results := make([]ToolCallResult, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range batch {
		i, r := i, r
		g.Go(func() error {
			f.log.Info("tool_call", "call_id", r.call.CallID, "function", r.call.Name)
			out, err := r.fn(gctx, r.args)
			if err != nil {
				return fmt.Errorf("function %q: %w", r.call.Name, err)
			}
			encoded, err := json.Marshal(out)
			if err != nil {
				return fmt.Errorf("encode output of function %q: %w", r.call.Name, err)
			}
			results[i] = ToolCallResult{CallID: r.call.CallID, Output: string(encoded)}
			f.log.Info("tool_done", "call_id", r.call.CallID, "function", r.call.Name, "output_len", len(encoded))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// parseArguments refuses absent or unparseable payloads instead of
// defaulting to an empty bag: a malformed tool call cannot be safely
// serviced.
func parseArguments(call ToolCallRequest) (map[string]any, error) {
	if call.Arguments == "" {
		return nil, apperr.MalformedResponse("tool call %s: missing arguments for %q", call.CallID, call.Name)
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return nil, apperr.MalformedResponse("tool call %s: malformed arguments for %q", call.CallID, call.Name).WithCause(err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// mergeOverrides lets the trusted execution context win over
// caller-supplied arguments: only keys already present in args are
// overridden, so the model cannot impersonate context fields.
func mergeOverrides(args, overrides map[string]any) map[string]any {
	for key := range args {
		if v, ok := overrides[key]; ok {
			args[key] = v
		}
	}
	return args
}
