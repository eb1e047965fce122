// Package llm provides direct Anthropic API integration for QuoteCall.
// All natural-language judgment in the system flows through the narrow
// Service interface so callers stay testable without a live model.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// CompleteOptions tunes a single model call.
type CompleteOptions struct {
	// Model overrides the client default when non-empty.
	Model string
	// MaxTokens caps the response length. 0 uses the client default.
	MaxTokens int64
	// Temperature is the sampling temperature. Nil uses the API default.
	Temperature *float64
}

// Service is the model-client contract consumed by the state machine,
// the Overseer, and the Commander.
type Service interface {
	// Complete returns a free-text completion for the prompt.
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)
	// Structured returns the first well-formed JSON value in the model's
	// response, tolerating markdown fences and surrounding prose.
	Structured(ctx context.Context, prompt string, opts CompleteOptions) (json.RawMessage, error)
	// AnalysisModel is the preferred model for supervisory analysis.
	AnalysisModel() string
}

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// Model is the default conversational model.
	Model string
	// AnalysisModel is the model used for Overseer/Commander analysis.
	// Defaults to Model when empty.
	AnalysisModel string
	// DefaultMaxTokens caps responses when CompleteOptions leaves it zero.
	DefaultMaxTokens int64
}

// Client wraps the Anthropic SDK client with token tracking.
type Client struct {
	inner         anthropic.Client
	model         anthropic.Model
	analysisModel anthropic.Model
	maxTokens     int64
	tracker       *TokenTracker
}

var _ Service = (*Client)(nil)

// NewClient creates a new Anthropic API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	analysisModel := anthropic.Model(cfg.AnalysisModel)
	if analysisModel == "" {
		analysisModel = model
	}

	maxTokens := cfg.DefaultMaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return &Client{
		inner:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:         model,
		analysisModel: analysisModel,
		maxTokens:     maxTokens,
		tracker:       NewTokenTracker(),
	}, nil
}

// Complete returns a free-text completion for the prompt.
func (c *Client) Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error) {
	model := c.model
	if opts.Model != "" {
		model = anthropic.Model(opts.Model)
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if opts.Temperature != nil {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("model completion: %w", err)
	}

	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	return text, nil
}

// Structured completes the prompt and extracts the first well-formed
// JSON value from the response.
func (c *Client) Structured(ctx context.Context, prompt string, opts CompleteOptions) (json.RawMessage, error) {
	text, err := c.Complete(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("structured response: %w", err)
	}
	return raw, nil
}

// AnalysisModel returns the preferred model for supervisory analysis.
func (c *Client) AnalysisModel() string {
	return string(c.analysisModel)
}

// Tracker returns the token tracker for this client.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// TokenTracker tracks token usage across API calls.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
