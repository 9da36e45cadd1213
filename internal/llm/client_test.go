package llm

import (
	"context"
	"testing"

	"google.golang.org/genai"
)

func TestChainFor(t *testing.T) {
	tests := []struct {
		task  Task
		first string
	}{
		{TaskQueries, ModelFlashLite},
		{TaskSummary, ModelFlashLite},
		{TaskResearch, ModelFlash},
		{TaskDocuments, ModelPro},
	}
	for _, tt := range tests {
		chain := chainFor(tt.task)
		if len(chain) == 0 {
			t.Fatalf("chainFor(%d) empty", tt.task)
		}
		if chain[0] != tt.first {
			t.Errorf("chainFor(%d)[0] = %s, want %s", tt.task, chain[0], tt.first)
		}
	}
}

func TestGenerateFallsBackAcrossModels(t *testing.T) {
	var tried []string
	c := &Client{}
	c.call = func(ctx context.Context, model, prompt string, jsonMode bool) (string, error) {
		tried = append(tried, model)
		if model == ModelPro {
			return "", genai.APIError{Code: 400, Message: "bad request"}
		}
		return "ok from " + model, nil
	}

	got, err := c.GenerateText(context.Background(), TaskDocuments, "prompt")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != "ok from "+ModelFlash {
		t.Errorf("got %q, want fallback model response", got)
	}
	if len(tried) != 2 || tried[0] != ModelPro || tried[1] != ModelFlash {
		t.Errorf("models tried = %v, want [pro flash]", tried)
	}
}

func TestGenerateAllModelsFail(t *testing.T) {
	c := &Client{}
	c.call = func(ctx context.Context, model, prompt string, jsonMode bool) (string, error) {
		return "", genai.APIError{Code: 400, Message: "nope"}
	}
	if _, err := c.GenerateText(context.Background(), TaskQueries, "prompt"); err == nil {
		t.Fatal("GenerateText succeeded, want error after chain exhausted")
	}
}

func TestGenerateJSON(t *testing.T) {
	c := &Client{}
	c.call = func(ctx context.Context, model, prompt string, jsonMode bool) (string, error) {
		if !jsonMode {
			t.Error("jsonMode not set for GenerateJSON")
		}
		return "```json\n{\"core_problem\": \"manual planning\"}\n```", nil
	}

	var out struct {
		CoreProblem string `json:"core_problem"`
	}
	if err := c.GenerateJSON(context.Background(), TaskSummary, "prompt", &out); err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if out.CoreProblem != "manual planning" {
		t.Errorf("CoreProblem = %q", out.CoreProblem)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding space", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFence(tt.in); got != tt.want {
				t.Errorf("StripCodeFence = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", genai.APIError{Code: 429}, true},
		{"server error", genai.APIError{Code: 500}, true},
		{"bad request", genai.APIError{Code: 400}, false},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.err); got != tt.want {
				t.Errorf("retryable = %v, want %v", got, tt.want)
			}
		})
	}
}
