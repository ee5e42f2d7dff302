// Package assistant orchestrates one external AI run per conversation
// turn: start the run, poll it to completion, service tool-call
// interrupts, and extract the final reply.
package assistant

import (
	"context"
	"encoding/json"
)

type RunStatus string

const (
	StatusInProgress     RunStatus = "in_progress"
	StatusCompleted      RunStatus = "completed"
	StatusRequiresAction RunStatus = "requires_action"
	StatusFailed         RunStatus = "failed"
)

// RunContext carries the caller's trust context into one orchestration
// call: the resolved language and the fields that override any
// caller-supplied tool arguments of the same name (the conversation
// identity must come from us, not from the model).
type RunContext struct {
	Language  string
	Overrides map[string]any
}

// StartRun describes a new remote run.
type StartRun struct {
	Model          string
	SystemPrompt   string
	UserPrompt     string
	VectorStoreIDs []string
	Functions      []FunctionSchema
}

// Run is the observed state of one in-flight remote computation. Status
// transitions are driven entirely by the remote service.
type Run struct {
	ID             string
	Status         RunStatus
	RequiredAction *RequiredAction
	Output         []OutputItem
}

type RequiredAction struct {
	Type      string
	ToolCalls []ToolCallRequest
}

// SubmitToolOutputsActionType is the only interrupt this orchestrator
// services.
const SubmitToolOutputsActionType = "submit_tool_outputs"

// ToolCallRequest is one pending function call emitted mid-run.
type ToolCallRequest struct {
	CallID    string
	Name      string
	Arguments string
}

// ToolCallResult pairs a serialized output with its originating call.
type ToolCallResult struct {
	CallID string
	Output string
}

// OutputItem is one entry of the run's response payload.
type OutputItem struct {
	Type      string        `json:"type,omitempty"`
	Role      string        `json:"role"`
	CreatedAt int64         `json:"created_at"`
	Content   []ContentPart `json:"content"`
}

type ContentPart struct {
	Type        string       `json:"type"`
	Text        string       `json:"text"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotation is an inline citation marker to strip from the final reply.
type Annotation struct {
	Text string `json:"text"`
}

// RunService is the remote run API. The HTTP client implements it; tests
// substitute fakes.
type RunService interface {
	CreateRun(ctx context.Context, req StartRun) (string, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	SubmitToolOutputs(ctx context.Context, runID string, outputs []ToolCallResult) error
}

// Func is a local callback the remote run may invoke by name. args is the
// parsed argument bag after context overrides; the result must be
// JSON-serializable.
type Func func(ctx context.Context, args map[string]any) (any, error)

// FunctionSchema declares a callable function to the remote run.
type FunctionSchema struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}
