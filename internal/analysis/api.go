package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/triagekit/triage/internal/types"
)

// maxSuggestTokens bounds the one-shot completion size
const maxSuggestTokens = 1024

// Client is a one-shot, non-streaming analysis client used by the CLI
// for label suggestions and item summaries. The streamed conversation
// path goes through CLITransport instead.
type Client struct {
	client *anthropic.Client
	model  string
}

// NewClient creates an API client. Requires ANTHROPIC_API_KEY.
func NewClient(model string) (*Client, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		client: &client,
		model:  model,
	}, nil
}

// SuggestLabels asks the model which of the available labels fit the
// item. Returns a subset of available, possibly empty.
func (c *Client) SuggestLabels(ctx context.Context, item types.Item, available []string) ([]string, error) {
	prompt := fmt.Sprintf(`You are triaging a repository %s.

Title: %s
Author: %s
Current labels: %s

Available labels: %s

Respond with a JSON array of label names from the available list that
should be applied to this item. Respond with the JSON array only.`,
		item.Kind, item.Title, item.Author,
		strings.Join(item.Labels, ", "),
		strings.Join(available, ", "))

	text, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var suggested []string
	if err := json.Unmarshal([]byte(extractJSONArray(text)), &suggested); err != nil {
		return nil, fmt.Errorf("parse label suggestions: %w", err)
	}

	// Keep only labels that actually exist in the repository.
	valid := make(map[string]bool, len(available))
	for _, l := range available {
		valid[l] = true
	}
	var out []string
	for _, l := range suggested {
		if valid[l] {
			out = append(out, l)
		}
	}
	return out, nil
}

// Summarize produces a short triage summary for one item
func (c *Client) Summarize(ctx context.Context, item types.Item) (string, error) {
	prompt := fmt.Sprintf("Summarize this repository %s in two sentences for a triage dashboard.\n\nTitle: %s\nAuthor: %s\nURL: %s",
		item.Kind, item.Title, item.Author, item.URL)
	return c.complete(ctx, prompt)
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	response, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxSuggestTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("API call failed: %w", err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

// extractJSONArray pulls the first JSON array out of a response that
// may be wrapped in prose or a code fence.
func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return "[]"
	}
	return text[start : end+1]
}
