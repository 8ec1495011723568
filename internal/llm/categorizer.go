// Package llm categorizes documents with a model served behind an OpenAI-compatible chat completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bool64/ctxd"

	"github.com/nhatthm/docharvest/internal/classifier"
)

var _ classifier.ExternalCategorizer = (*Categorizer)(nil)

const (
	// ErrMissingModel indicates that no model is configured.
	ErrMissingModel = Error("llm model is required")
	// ErrUnexpectedStatus indicates that the server did not answer with a 2xx status.
	ErrUnexpectedStatus = Error("unexpected status")
	// ErrEmptyAnswer indicates that the server answered without any choice.
	ErrEmptyAnswer = Error("empty answer")
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 4 << 10
)

const systemPrompt = `You sort documents collected from university websites.
Answer with exactly one of: syllabus, question_papers, educational_materials.
syllabus: curricula, course structures, schemes of study.
question_papers: question papers, model papers, previous year papers, sample papers.
educational_materials: anything else.
Return only the category name, nothing else.`

// Error is an llm error.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

// Categorizer asks a chat model for the category of a document.
type Categorizer struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
	log     ctxd.Logger
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Categorize returns the category the model answered with. Answers outside the known categories yield
// classifier.ErrInvalidCategory.
func (c *Categorizer) Categorize(ctx context.Context, s classifier.Subject) (classifier.Category, error) {
	answer, err := c.complete(ctx, userPrompt(s))
	if err != nil {
		return "", err
	}

	category, ok := classifier.ParseCategory(strings.Trim(answer, " \t\r\n.\"'`"))
	if !ok {
		c.log.Debug(ctx, "unknown category answered", "llm.answer", answer)

		return "", fmt.Errorf("%w: %q", classifier.ErrInvalidCategory, answer)
	}

	return category, nil
}

func (c *Categorizer) complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}

	defer resp.Body.Close() // nolint: errcheck

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) // nolint: errcheck

		return "", fmt.Errorf("llm: %w %s: %s", ErrUnexpectedStatus, resp.Status, strings.TrimSpace(string(body)))
	}

	var out chatResponse

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}

	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llm: %w", ErrEmptyAnswer)
	}

	return out.Choices[0].Message.Content, nil
}

func userPrompt(s classifier.Subject) string {
	var sb strings.Builder

	sb.WriteString("Filename: ")
	sb.WriteString(s.Filename)
	sb.WriteString("\nURL: ")
	sb.WriteString(s.URL)

	if s.Text != "" {
		sb.WriteString("\nLink text: ")
		sb.WriteString(s.Text)
	}

	return sb.String()
}

// New creates a new Categorizer for the given model.
func New(model string, opts ...Option) (*Categorizer, error) {
	if model == "" {
		return nil, ErrMissingModel
	}

	c := &Categorizer{
		client:  &http.Client{Timeout: defaultTimeout},
		baseURL: defaultBaseURL,
		model:   model,
		log:     ctxd.NoOpLogger{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Option is option to set up Categorizer.
type Option func(c *Categorizer)

// WithBaseURL sets the server root, without the /v1 suffix.
func WithBaseURL(u string) Option {
	return func(c *Categorizer) {
		u = strings.TrimSuffix(strings.TrimRight(u, "/"), "/v1")
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithAPIKey sets the bearer token sent to the server.
func WithAPIKey(key string) Option {
	return func(c *Categorizer) {
		c.apiKey = key
	}
}

// WithTimeout sets the http client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Categorizer) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithLogger sets logger for Categorizer.
func WithLogger(l ctxd.Logger) Option {
	return func(c *Categorizer) {
		c.log = l
	}
}
