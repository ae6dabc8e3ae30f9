package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel       = "claude-sonnet-4-20250514"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7

	issueToolName = "create_issue"

	statusOverloaded = 529
)

type Client struct {
	client      anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
	reqOpts     []option.RequestOption
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = anthropic.Model(model) }
}

func WithMaxTokens(n int64) Option {
	return func(c *Client) { c.maxTokens = n }
}

func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

// WithRequestOptions passes extra options to the underlying SDK client, e.g.
// a base URL or HTTP client.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(c *Client) { c.reqOpts = append(c.reqOpts, opts...) }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		model:       anthropic.Model(DefaultModel),
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
	for _, o := range opts {
		o(c)
	}
	// A failed call aborts the run; the SDK would otherwise retry twice.
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, c.reqOpts...)
	c.client = anthropic.NewClient(reqOpts...)
	return c
}

type Request struct {
	System string
	Prompt string
	// Labels and IssueTypes bound the values the model may return.
	Labels     []string
	IssueTypes []string
}

type GeneratedIssue struct {
	Title     string
	Body      string
	Labels    []string
	IssueType string
}

// Generate asks the model for an issue and forces the answer through the
// create_issue tool so that it arrives as schema-shaped JSON.
func (c *Client) Generate(ctx context.Context, req Request) (GeneratedIssue, error) {
	tool := issueTool(req.Labels, req.IssueTypes)

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Tools: []anthropic.ToolUnionParam{{OfTool: &tool}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: issueToolName},
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode == statusOverloaded) {
			return GeneratedIssue{}, &QuotaError{StatusCode: apiErr.StatusCode, Err: err}
		}
		return GeneratedIssue{}, fmt.Errorf("anthropic api: %w", err)
	}

	if string(resp.StopReason) == "max_tokens" {
		return GeneratedIssue{}, &ResponseError{Reason: "response hit the max_tokens limit"}
	}

	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == issueToolName {
			return parseIssue(block.Input)
		}
	}
	return GeneratedIssue{}, &ResponseError{Reason: "model did not call " + issueToolName}
}

func issueTool(labels, issueTypes []string) anthropic.ToolParam {
	labelItems := map[string]interface{}{"type": "string"}
	if len(labels) > 0 {
		enum := slices.Clone(labels)
		slices.Sort(enum)
		labelItems["enum"] = slices.Compact(enum)
	}

	properties := map[string]interface{}{
		"title": map[string]interface{}{
			"type":        "string",
			"description": "Short, informative issue title.",
		},
		"body": map[string]interface{}{
			"type":        "string",
			"description": "Issue description in Markdown: the context of the problem and why it matters.",
		},
		"labels": map[string]interface{}{
			"type":        "array",
			"items":       labelItems,
			"description": "Labels for the issue, chosen only from the repository's existing labels.",
		},
	}
	if len(issueTypes) > 0 {
		properties["issue_type"] = map[string]interface{}{
			"type":        "string",
			"enum":        issueTypes,
			"description": "The single most fitting issue type.",
		}
	}

	return anthropic.ToolParam{
		Name:        issueToolName,
		Description: anthropic.String("Create the issue that the pull request resolves. Always call this, never respond with plain text."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: properties,
			Required:   []string{"title", "body", "labels"},
		},
	}
}

type issueInput struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Labels    []string `json:"labels"`
	IssueType string   `json:"issue_type"`
}

func parseIssue(raw json.RawMessage) (GeneratedIssue, error) {
	var input issueInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return GeneratedIssue{}, &ResponseError{Reason: "unmarshal " + issueToolName + " input", Err: err}
	}
	if strings.TrimSpace(input.Title) == "" {
		return GeneratedIssue{}, &ResponseError{Reason: "missing required field title"}
	}
	if strings.TrimSpace(input.Body) == "" {
		return GeneratedIssue{}, &ResponseError{Reason: "missing required field body"}
	}
	return GeneratedIssue{
		Title:     strings.TrimSpace(input.Title),
		Body:      input.Body,
		Labels:    input.Labels,
		IssueType: input.IssueType,
	}, nil
}
