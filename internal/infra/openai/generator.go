package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/solutionspma/godrive-academy/internal/domain"
)

const defaultBaseURL = "https://api.openai.com/v1/chat/completions"

// Generator produces question sets from the chat-completions API when a
// region has no static bank. Treated as an opaque question source: anything
// that fails to parse or validate is dropped.
type Generator struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	clock       func() time.Time
}

// New creates a generator. An empty model defaults to gpt-4, an empty baseURL
// to the public API. The timeout bounds the whole generation round-trip;
// expiry surfaces as a generation failure.
func New(apiKey, model, baseURL string, timeout time.Duration) *Generator {
	if model == "" {
		model = "gpt-4"
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Generator{
		apiKey:      apiKey,
		model:       model,
		baseURL:     baseURL,
		temperature: 0.7,
		maxTokens:   3000,
		httpClient:  &http.Client{Timeout: timeout},
		clock:       time.Now,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// generatedQuestion is the wire shape the prompt asks for: the correct answer
// arrives as the option text, not an index.
type generatedQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

func (g *Generator) Generate(ctx context.Context, regionCode string, count int) (domain.QuestionSet, error) {
	region := domain.RegionName(regionCode)

	request := chatRequest{
		Model: g.model,
		Messages: []message{
			{
				Role:    "system",
				Content: fmt.Sprintf("You are a DMV test question generator. Generate realistic, accurate DMV driving test questions for %s. Each question should have 4 multiple choice options with one correct answer and a brief explanation.", region),
			},
			{
				Role:    "user",
				Content: userPrompt(region, count),
			},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("decode response: %w", err)
	}
	if response.Error != nil {
		return domain.QuestionSet{}, fmt.Errorf("api error: %s", response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return domain.QuestionSet{}, fmt.Errorf("no response choices returned")
	}

	questions, err := parseQuestions(response.Choices[0].Message.Content, regionCode)
	if err != nil {
		return domain.QuestionSet{}, err
	}

	return domain.QuestionSet{
		RegionCode:  regionCode,
		Questions:   questions,
		Source:      domain.SourceGenerated,
		GeneratedAt: g.clock(),
	}, nil
}

// parseQuestions extracts the JSON array from the completion text and
// converts each entry, dropping anything malformed.
func parseQuestions(content, regionCode string) ([]domain.Question, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in completion")
	}

	var raw []generatedQuestion
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}

	questions := make([]domain.Question, 0, len(raw))
	for i, gq := range raw {
		correct := -1
		for j, opt := range gq.Options {
			if opt == gq.Answer {
				correct = j
				break
			}
		}
		if correct < 0 {
			continue
		}
		question := domain.Question{
			ID:           fmt.Sprintf("%s-gen-%d", strings.ToLower(regionCode), i+1),
			Prompt:       gq.Question,
			Options:      gq.Options,
			CorrectIndex: correct,
			Explanation:  gq.Explanation,
		}
		if question.Validate() != nil {
			continue
		}
		questions = append(questions, question)
	}
	return questions, nil
}

func userPrompt(region string, count int) string {
	return fmt.Sprintf(`Generate %d DMV practice test questions for %s. Format as JSON array with this structure:
[
  {
    "question": "Question text here?",
    "options": ["Option A", "Option B", "Option C", "Option D"],
    "answer": "Correct option text",
    "explanation": "Why this is correct"
  }
]

Cover topics like:
- Traffic laws and regulations
- Road signs and signals
- Safe driving practices
- Right-of-way rules
- Speed limits and parking
- Driving conditions (weather, night driving)
- Vehicle safety and maintenance

Make questions realistic, challenging but fair, and based on actual DMV content.`, count, region)
}
