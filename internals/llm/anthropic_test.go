package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessagesURL = "https://api.anthropic.test/v1/messages"

func newTestClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	c := NewClient("test-key", WithRequestOptions(
		option.WithBaseURL("https://api.anthropic.test/"),
		option.WithHTTPClient(&http.Client{Transport: mt}),
	))
	return c, mt
}

func toolUseMessage(input string) string {
	return `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-20250514",
		"content": [{"type": "tool_use", "id": "toolu_01", "name": "create_issue", "input": ` + input + `}],
		"stop_reason": "tool_use",
		"stop_sequence": null,
		"usage": {"input_tokens": 10, "output_tokens": 20}
	}`
}

func jsonResponder(status int, body string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(status, body)
		resp.Header.Set("Content-Type", "application/json")
		return resp, nil
	}
}

func TestClient_GenerateSendsLabelSchema(t *testing.T) {
	c, mt := newTestClient(t)

	var sent map[string]interface{}
	mt.RegisterResponder(http.MethodPost, testMessagesURL, func(req *http.Request) (*http.Response, error) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&sent))
		return jsonResponder(http.StatusOK, toolUseMessage(`{
			"title": "Login accepts empty passwords",
			"body": "## Context\nUsers can log in without a password.",
			"labels": ["bug"]
		}`))(req)
	})

	issue, err := c.Generate(context.Background(), Request{
		System: "system text",
		Prompt: "prompt text",
		Labels: []string{"enhancement", "bug"},
	})
	require.NoError(t, err)
	assert.Equal(t, GeneratedIssue{
		Title:  "Login accepts empty passwords",
		Body:   "## Context\nUsers can log in without a password.",
		Labels: []string{"bug"},
	}, issue)

	assert.Equal(t, map[string]interface{}{"type": "tool", "name": "create_issue"}, sent["tool_choice"])
	assert.EqualValues(t, 0.7, sent["temperature"])

	tools := sent["tools"].([]interface{})
	require.Len(t, tools, 1)
	schema := tools[0].(map[string]interface{})["input_schema"].(map[string]interface{})
	labels := schema["properties"].(map[string]interface{})["labels"].(map[string]interface{})
	assert.Equal(t, []interface{}{"bug", "enhancement"}, labels["items"].(map[string]interface{})["enum"])
	assert.ElementsMatch(t, []interface{}{"title", "body", "labels"}, schema["required"])
	assert.NotContains(t, schema["properties"], "issue_type")

	messages := sent["messages"].([]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, 1, mt.GetCallCountInfo()["POST "+testMessagesURL])
}

func TestClient_GenerateWithIssueType(t *testing.T) {
	c, mt := newTestClient(t)
	mt.RegisterResponder(http.MethodPost, testMessagesURL, jsonResponder(http.StatusOK, toolUseMessage(`{
		"title": "t", "body": "b", "labels": [], "issue_type": "Bug"
	}`)))

	issue, err := c.Generate(context.Background(), Request{Prompt: "p", IssueTypes: []string{"Bug", "Task"}})
	require.NoError(t, err)
	assert.Equal(t, "Bug", issue.IssueType)
	assert.Empty(t, issue.Labels)
}

func TestClient_GenerateInvalidResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing title",
			body: toolUseMessage(`{"body": "b", "labels": ["bug"]}`),
		},
		{
			name: "blank body",
			body: toolUseMessage(`{"title": "t", "body": "  ", "labels": []}`),
		},
		{
			name: "wrong field type",
			body: toolUseMessage(`{"title": 5, "body": "b", "labels": []}`),
		},
		{
			name: "plain text answer",
			body: `{
				"id": "msg_01", "type": "message", "role": "assistant", "model": "m",
				"content": [{"type": "text", "text": "Here is your issue"}],
				"stop_reason": "end_turn", "usage": {"input_tokens": 1, "output_tokens": 1}
			}`,
		},
		{
			name: "truncated",
			body: `{
				"id": "msg_01", "type": "message", "role": "assistant", "model": "m",
				"content": [{"type": "text", "text": "Here"}],
				"stop_reason": "max_tokens", "usage": {"input_tokens": 1, "output_tokens": 1}
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mt := newTestClient(t)
			mt.RegisterResponder(http.MethodPost, testMessagesURL, jsonResponder(http.StatusOK, tt.body))

			_, err := c.Generate(context.Background(), Request{Prompt: "p"})
			var respErr *ResponseError
			require.True(t, errors.As(err, &respErr), "got %v", err)
		})
	}
}

func TestClient_GenerateQuota(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, statusOverloaded} {
		c, mt := newTestClient(t)
		mt.RegisterResponder(http.MethodPost, testMessagesURL, jsonResponder(status,
			`{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`))

		_, err := c.Generate(context.Background(), Request{Prompt: "p"})
		var quotaErr *QuotaError
		require.True(t, errors.As(err, &quotaErr), "got %v", err)
		assert.Equal(t, status, quotaErr.StatusCode)
		// retries are disabled
		assert.Equal(t, 1, mt.GetCallCountInfo()["POST "+testMessagesURL])
	}
}

func TestClient_GenerateServerError(t *testing.T) {
	c, mt := newTestClient(t)
	mt.RegisterResponder(http.MethodPost, testMessagesURL, jsonResponder(http.StatusUnauthorized,
		`{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`))

	_, err := c.Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)

	var quotaErr *QuotaError
	var respErr *ResponseError
	assert.False(t, errors.As(err, &quotaErr))
	assert.False(t, errors.As(err, &respErr))
	assert.Contains(t, err.Error(), "anthropic api")
}

func labelItems(t *testing.T, labels []string) map[string]interface{} {
	t.Helper()
	tool := issueTool(labels, nil)
	b, err := json.Marshal(tool.InputSchema)
	require.NoError(t, err)

	var schema struct {
		Properties map[string]struct {
			Items map[string]interface{} `json:"items"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(b, &schema))
	return schema.Properties["labels"].Items
}

func TestIssueTool_LabelEnum(t *testing.T) {
	assert.Equal(t, []interface{}{"a", "b"}, labelItems(t, []string{"b", "a", "b"})["enum"])
	assert.NotContains(t, labelItems(t, nil), "enum")
}
