package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/solutionspma/godrive-academy/internal/domain"
)

func TestGenerateParsesCompletion(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		completion := `Here are your questions:
[
  {"question": "What does a red octagon mean?", "options": ["Stop", "Yield", "Merge", "Exit"], "answer": "Stop", "explanation": "An octagon is always a stop sign."},
  {"question": "Broken answer", "options": ["A", "B"], "answer": "C", "explanation": "answer not among options"},
  {"question": "What is the hand signal for a left turn?", "options": ["Arm straight out", "Arm up", "Arm down", "No signal"], "answer": "Arm straight out", "explanation": "A straight-out arm signals a left turn."}
]`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": completion}},
			},
		})
	}))
	defer server.Close()

	generator := New("test-key", "gpt-4", server.URL, 5*time.Second)

	set, err := generator.Generate(context.Background(), "CA", 10)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if set.Source != domain.SourceGenerated || set.GeneratedAt.IsZero() {
		t.Fatalf("expected generated tag with timestamp, got %+v", set)
	}
	// The malformed middle question is dropped.
	if len(set.Questions) != 2 {
		t.Fatalf("expected 2 valid questions, got %d", len(set.Questions))
	}
	first := set.Questions[0]
	if first.CorrectIndex != 0 || first.Options[first.CorrectIndex] != "Stop" {
		t.Fatalf("expected correct index resolved by text, got %+v", first)
	}
	if err := first.Validate(); err != nil {
		t.Fatalf("generated question invalid: %v", err)
	}
}

func TestGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limit exceeded"},
		})
	}))
	defer server.Close()

	generator := New("test-key", "", server.URL, 5*time.Second)
	if _, err := generator.Generate(context.Background(), "CA", 10); err == nil {
		t.Fatalf("expected api error")
	}
}

func TestGenerateNoArrayInCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "I cannot generate questions right now."}},
			},
		})
	}))
	defer server.Close()

	generator := New("test-key", "", server.URL, 5*time.Second)
	if _, err := generator.Generate(context.Background(), "CA", 10); err == nil {
		t.Fatalf("expected parse failure")
	}
}
