package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/v-kyrychenko/ka4-today-bot/apperr"
	"github.com/v-kyrychenko/ka4-today-bot/internal/httpx"
)

const (
	apiLabel       = "openai"
	defaultBaseURL = "https://api.openai.com"
)

// ClientConfig is populated once at startup and validated there.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	ProjectID string
}

// Client speaks the background responses protocol of the run service:
// POST /v1/responses, GET /v1/responses/{id} and
// POST /v1/responses/{id}/tool_outputs.
type Client struct {
	http *httpx.Client
	cfg  ClientConfig
}

func NewClient(http *httpx.Client, cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{http: http, cfg: cfg}
}

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type createRunRequest struct {
	Model      string         `json:"model"`
	Background bool           `json:"background"`
	Input      []inputMessage `json:"input"`
	Tools      []any          `json:"tools,omitempty"`
}

type runPayload struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	RequiredAction *struct {
		Type              string `json:"type"`
		SubmitToolOutputs struct {
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"submit_tool_outputs"`
	} `json:"required_action,omitempty"`
	Output []OutputItem `json:"output"`
}

func (p *runPayload) toRun() *Run {
	run := &Run{
		ID:     p.ID,
		Status: RunStatus(p.Status),
		Output: p.Output,
	}
	if p.RequiredAction != nil {
		action := &RequiredAction{Type: p.RequiredAction.Type}
		for _, tc := range p.RequiredAction.SubmitToolOutputs.ToolCalls {
			action.ToolCalls = append(action.ToolCalls, ToolCallRequest{
				CallID:    tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		run.RequiredAction = action
	}
	return run
}

func (c *Client) CreateRun(ctx context.Context, req StartRun) (string, error) {
	body := createRunRequest{
		Model:      req.Model,
		Background: true,
		Input: []inputMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
	}
	if len(req.VectorStoreIDs) > 0 {
		body.Tools = append(body.Tools, map[string]any{
			"type":             "file_search",
			"vector_store_ids": req.VectorStoreIDs,
		})
	}
	for _, fn := range req.Functions {
		tool := map[string]any{
			"type": "function",
			"name": fn.Name,
		}
		if fn.Description != "" {
			tool["description"] = fn.Description
		}
		if len(fn.Parameters) > 0 {
			tool["parameters"] = json.RawMessage(fn.Parameters)
		}
		body.Tools = append(body.Tools, tool)
	}

	var out runPayload
	err := c.http.Do(ctx, httpx.Request{
		Method:  http.MethodPost,
		BaseURL: c.cfg.BaseURL,
		Path:    "/v1/responses",
		Header:  c.headers(),
		Body:    body,
		Label:   apiLabel + ":responses",
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", apperr.MalformedResponse("run service returned no run id")
	}
	return out.ID, nil
}

func (c *Client) GetRun(ctx context.Context, runID string) (*Run, error) {
	var out runPayload
	err := c.http.Do(ctx, httpx.Request{
		Method:  http.MethodGet,
		BaseURL: c.cfg.BaseURL,
		Path:    "/v1/responses/" + runID,
		Header:  c.headers(),
		Label:   apiLabel,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.toRun(), nil
}

func (c *Client) SubmitToolOutputs(ctx context.Context, runID string, outputs []ToolCallResult) error {
	items := make([]map[string]string, 0, len(outputs))
	for _, o := range outputs {
		items = append(items, map[string]string{
			"tool_call_id": o.CallID,
			"output":       o.Output,
		})
	}
	return c.http.Do(ctx, httpx.Request{
		Method:  http.MethodPost,
		BaseURL: c.cfg.BaseURL,
		Path:    "/v1/responses/" + runID + "/tool_outputs",
		Header:  c.headers(),
		Body:    map[string]any{"tool_outputs": items},
		Label:   apiLabel + ":tool_outputs",
	}, nil)
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.ProjectID != "" {
		h.Set("OpenAI-Project", c.cfg.ProjectID)
	}
	return h
}
