package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blixt/skillflow/content"
	"github.com/blixt/skillflow/llm"
	"github.com/blixt/skillflow/tool"
)

func TestStreamRequestAndChunks(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"id\":\"c1\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"Hi\"},\"finish_reason\":null}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"call_1\",\"type\":\"function\",\"function\":{\"name\":\"lookup\",\"arguments\":\"\"}}]}}]}\n\n")
		fmt.Fprint(w, "data: {not json}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"tool_calls\"}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[],\"usage\":{\"prompt_tokens\":10,\"completion_tokens\":4,\"total_tokens\":14}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	schema := tool.Schema{Name: "lookup", Description: "Look up", Parameters: map[string]any{"type": "object"}}
	model := New("gpt-4o").WithAPIKey("sk-test").WithBaseURL(server.URL + "/v1/")

	var msg llm.Message
	msg.Role = "user"
	msg.Content.Append("What is this?")
	msg.Content.AddImage("https://example.com/cat.png", "image/png")

	stream, err := model.Stream(context.Background(), llm.Request{
		SystemPrompt: "Be helpful.",
		Messages:     []llm.Message{llm.UserText("Hello"), msg},
		Tools:        []tool.Schema{schema},
	})
	require.NoError(t, err)
	defer stream.Close()

	var chunks []llm.Chunk
	for stream.Next() {
		chunks = append(chunks, stream.Chunk())
	}
	require.NoError(t, stream.Err())
	require.Len(t, chunks, 5)

	assert.Equal(t, "Hi", *chunks[0].Choices[0].Delta.Content)
	assert.Nil(t, chunks[0].Choices[0].FinishReason)

	tc := chunks[1].Choices[0].Delta.ToolCalls[0]
	assert.Equal(t, "call_1", *tc.ID)
	assert.Equal(t, "lookup", *tc.Function.Name)
	assert.Equal(t, "", *tc.Function.Arguments)

	var chunkErr *llm.ChunkError
	require.True(t, errors.As(chunks[2].Err, &chunkErr))
	assert.Equal(t, "{not json}", chunkErr.Data)

	assert.Equal(t, llm.FinishReasonToolCalls, *chunks[3].Choices[0].FinishReason)
	assert.Empty(t, chunks[4].Choices)
	require.NotNil(t, chunks[4].Usage)
	assert.Equal(t, 14, *chunks[4].Usage.TotalTokens)

	assert.Equal(t, "gpt-4o", received["model"])
	assert.Equal(t, true, received["stream"])
	assert.Equal(t, map[string]any{"include_usage": true}, received["stream_options"])
	messages := received["messages"].([]any)
	require.Len(t, messages, 3)
	assert.Equal(t, map[string]any{"role": "system", "content": "Be helpful."}, messages[0])
	assert.Equal(t, map[string]any{"role": "user", "content": "Hello"}, messages[1])
	assert.Equal(t, []any{
		map[string]any{"type": "text", "text": "What is this?"},
		map[string]any{"type": "image_url", "image_url": map[string]any{"url": "https://example.com/cat.png"}},
	}, messages[2].(map[string]any)["content"])
	tools := received["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, "function", tools[0].(map[string]any)["type"])
	assert.Equal(t, "lookup", tools[0].(map[string]any)["function"].(map[string]any)["name"])
}

func TestStreamModelOverrideAndNoTools(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	stream, err := New("gpt-4o").WithBaseURL(server.URL).Stream(context.Background(), llm.Request{
		Model:    "gpt-4o-mini",
		Messages: []llm.Message{{Role: "user", Content: content.FromText("hi")}},
	})
	require.NoError(t, err)
	assert.False(t, stream.Next())
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())

	assert.Equal(t, "gpt-4o-mini", received["model"])
	_, hasTools := received["tools"]
	assert.False(t, hasTools)
	assert.Len(t, received["messages"], 1)
}

func TestStreamAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	_, err := New("gpt-4o").WithBaseURL(server.URL).Stream(context.Background(), llm.Request{
		Messages: []llm.Message{llm.UserText("hi")},
	})
	var apiErr *llm.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid_request_error", apiErr.Type)
	assert.Equal(t, "401 invalid_request_error: Incorrect API key provided", err.Error())
}

func TestStreamConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New("gpt-4o").WithBaseURL(url).Stream(context.Background(), llm.Request{
		Messages: []llm.Message{llm.UserText("hi")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error making request")
}

func TestStreamErrorEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `data: {"choices":[{"index":0,"delta":{"content":"Hel"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"error":{"message":"The server had an error","type":"server_error"}}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"index":0,"delta":{"content":"lo"}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	stream, err := New("gpt-4o").WithBaseURL(server.URL).Stream(context.Background(), llm.Request{
		Messages: []llm.Message{llm.UserText("hi")},
	})
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Next())
	require.Len(t, stream.Chunk().Choices, 1)
	assert.Equal(t, "Hel", *stream.Chunk().Choices[0].Delta.Content)

	assert.False(t, stream.Next())
	assert.False(t, stream.Next())
	var apiErr *llm.APIError
	require.True(t, errors.As(stream.Err(), &apiErr))
	assert.Equal(t, "server_error", apiErr.Type)
	assert.Equal(t, "server_error: The server had an error", stream.Err().Error())
}
