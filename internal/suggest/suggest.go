// Package suggest asks a chat-completion model for a likely expiration date
// given a free-text item description. Failures are expected and non-fatal:
// the caller degrades to manual date entry.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guonaihong/gout"

	"renttrack/internal/model"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("suggestions not configured")

const systemPrompt = `You estimate expiration dates for subscriptions and rentals.
Given an item description, answer with a single JSON object:
{"end_date": "YYYY-MM-DD", "rationale": "<one short sentence>"}
Answer with the JSON object only.`

// Suggestion is the model's proposed end date with a short rationale.
type Suggestion struct {
	EndDate   string `json:"end_date"`
	Rationale string `json:"rationale"`
}

// Client calls an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
}

// New creates a client. An empty apiKey disables the feature.
func New(baseURL, apiKey, chatModel string) *Client {
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   chatModel,
		timeout: 20 * time.Second,
	}
}

// Enabled reports whether the client is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != "" && c.baseURL != ""
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Suggest returns a proposed end date for the described item.
func (c *Client) Suggest(ctx context.Context, description string) (*Suggestion, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp chatResponse
	var code int
	err := gout.POST(c.baseURL + "/chat/completions").
		WithContext(ctx).
		SetHeader(gout.H{"Authorization": "Bearer " + c.apiKey}).
		SetJSON(gout.H{
			"model": c.model,
			"messages": []gout.H{
				{"role": "system", "content": systemPrompt},
				{"role": "user", "content": description},
			},
		}).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil {
		return nil, fmt.Errorf("requesting suggestion: %w", err)
	}
	if code != 200 {
		return nil, fmt.Errorf("suggestion endpoint returned status %d", code)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty completion response")
	}

	suggestion, err := parseAnswer(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return suggestion, nil
}

// parseAnswer extracts the JSON object from the model's answer, tolerating
// surrounding prose or code fences.
func parseAnswer(content string) (*Suggestion, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in answer %q", content)
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(content[start:end+1]), &s); err != nil {
		return nil, fmt.Errorf("parsing answer: %w", err)
	}
	if _, err := time.Parse(model.DateLayout, s.EndDate); err != nil {
		return nil, fmt.Errorf("model returned invalid date %q", s.EndDate)
	}
	return &s, nil
}
