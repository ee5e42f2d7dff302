package assistant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/v-kyrychenko/ka4-today-bot/apperr"
	"github.com/v-kyrychenko/ka4-today-bot/internal/httpx"
)

func TestCreateRunRequestShape(t *testing.T) {
	t.Parallel()

	var (
		gotPath string
		gotAuth string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Write([]byte(`{"id":"resp_42","status":"in_progress"}`))
	}))
	defer srv.Close()

	c := NewClient(httpx.New(), ClientConfig{BaseURL: srv.URL, APIKey: "sk-test"})
	id, err := c.CreateRun(context.Background(), StartRun{
		Model:          "gpt-5-mini",
		SystemPrompt:   "be brief",
		UserPrompt:     "hello",
		VectorStoreIDs: []string{"vs_1"},
		Functions: []FunctionSchema{{
			Name:       "getAvailableExercises",
			Parameters: json.RawMessage(`{"type":"object"}`),
		}},
	})
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if id != "resp_42" {
		t.Errorf("run id = %q", id)
	}
	if gotPath != "/v1/responses" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody["model"] != "gpt-5-mini" || gotBody["background"] != true {
		t.Errorf("model/background = %v/%v", gotBody["model"], gotBody["background"])
	}

	input, ok := gotBody["input"].([]any)
	if !ok || len(input) != 2 {
		t.Fatalf("input = %v, want system+user messages", gotBody["input"])
	}
	first := input[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be brief" {
		t.Errorf("first input message = %v", first)
	}

	tools, ok := gotBody["tools"].([]any)
	if !ok || len(tools) != 2 {
		t.Fatalf("tools = %v, want file_search + function", gotBody["tools"])
	}
	if tools[0].(map[string]any)["type"] != "file_search" {
		t.Errorf("first tool = %v, want file_search", tools[0])
	}
	fn := tools[1].(map[string]any)
	if fn["type"] != "function" || fn["name"] != "getAvailableExercises" {
		t.Errorf("function tool = %v", fn)
	}
}

func TestCreateRunMissingIDIsMalformed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"in_progress"}`))
	}))
	defer srv.Close()

	c := NewClient(httpx.New(), ClientConfig{BaseURL: srv.URL})
	_, err := c.CreateRun(context.Background(), StartRun{Model: "gpt-5-mini"})
	if !apperr.IsKind(err, apperr.KindMalformedResponse) {
		t.Fatalf("expected malformed-response error, got %v", err)
	}
}

func TestGetRunMapsRequiredAction(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses/resp_42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"id": "resp_42",
			"status": "requires_action",
			"required_action": {
				"type": "submit_tool_outputs",
				"submit_tool_outputs": {
					"tool_calls": [
						{"id": "call_1", "function": {"name": "getUserName", "arguments": "{\"chatId\":\"7\"}"}}
					]
				}
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(httpx.New(), ClientConfig{BaseURL: srv.URL})
	run, err := c.GetRun(context.Background(), "resp_42")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != StatusRequiresAction {
		t.Errorf("status = %q", run.Status)
	}
	if run.RequiredAction == nil || run.RequiredAction.Type != SubmitToolOutputsActionType {
		t.Fatalf("required action = %+v", run.RequiredAction)
	}
	calls := run.RequiredAction.ToolCalls
	if len(calls) != 1 {
		t.Fatalf("tool calls = %+v", calls)
	}
	if calls[0].CallID != "call_1" || calls[0].Name != "getUserName" || calls[0].Arguments != `{"chatId":"7"}` {
		t.Errorf("tool call = %+v", calls[0])
	}
}

func TestGetRunMapsOutput(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"id": "resp_42",
			"status": "completed",
			"output": [
				{"type": "message", "role": "assistant", "created_at": 10,
				 "content": [{"type": "output_text", "text": "hi"}]}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(httpx.New(), ClientConfig{BaseURL: srv.URL})
	run, err := c.GetRun(context.Background(), "resp_42")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	reply, err := ExtractReply(run.Output)
	if err != nil {
		t.Fatalf("ExtractReply() error = %v", err)
	}
	if reply != "hi" {
		t.Errorf("reply = %q", reply)
	}
}

func TestSubmitToolOutputsPayload(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses/resp_42/tool_outputs" {
			t.Errorf("path = %q", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(httpx.New(), ClientConfig{BaseURL: srv.URL})
	err := c.SubmitToolOutputs(context.Background(), "resp_42", []ToolCallResult{
		{CallID: "call_1", Output: `["bench press"]`},
	})
	if err != nil {
		t.Fatalf("SubmitToolOutputs() error = %v", err)
	}

	outputs, ok := gotBody["tool_outputs"].([]any)
	if !ok || len(outputs) != 1 {
		t.Fatalf("tool_outputs = %v", gotBody["tool_outputs"])
	}
	item := outputs[0].(map[string]any)
	if item["tool_call_id"] != "call_1" || item["output"] != `["bench press"]` {
		t.Errorf("output item = %v", item)
	}
}
