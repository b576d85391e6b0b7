package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/blixt/skillflow/content"
	"github.com/blixt/skillflow/llm"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Model struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
}

func New(model string) *Model {
	return &Model{
		model:   model,
		baseURL: DefaultBaseURL,
		client:  http.DefaultClient,
	}
}

func (m *Model) WithAPIKey(apiKey string) *Model {
	m.apiKey = apiKey
	return m
}

// WithBaseURL points the provider at any OpenAI-compatible server.
func (m *Model) WithBaseURL(baseURL string) *Model {
	m.baseURL = strings.TrimRight(baseURL, "/")
	return m
}

func (m *Model) WithHTTPClient(client *http.Client) *Model {
	m.client = client
	return m
}

func (m *Model) Company() string {
	return "OpenAI"
}

func (m *Model) Stream(ctx context.Context, req llm.Request) (llm.ChunkStream, error) {
	model := req.Model
	if model == "" {
		model = m.model
	}

	apiMessages := make([]message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		apiMessages = append(apiMessages, message{
			Role:    "system",
			Content: messageContent(content.FromText(req.SystemPrompt)),
		})
	}
	for _, msg := range req.Messages {
		apiMessages = append(apiMessages, messageFromLLM(msg))
	}

	payload := chatCompletionRequest{
		Model:         model,
		Messages:      apiMessages,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}
	if len(req.Tools) > 0 {
		payload.Tools = toolsFromSchemas(req.Tools)
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error encoding JSON: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if m.apiKey != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", m.apiKey))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &llm.APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		var errResp errorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&errResp); err == nil && errResp.Error.Message != "" {
			apiErr.Message = errResp.Error.Message
			apiErr.Type = errResp.Error.Type
		}
		return nil, apiErr
	}

	return &Stream{body: resp.Body, events: llm.NewSSEReader(resp.Body)}, nil
}

// Stream decodes chat.completion.chunk events straight into llm.Chunk.
type Stream struct {
	body      io.ReadCloser
	events    *llm.SSEReader
	chunk     llm.Chunk
	err       error
	closeOnce sync.Once
	closeErr  error
}

func (s *Stream) Next() bool {
	if s.err != nil || !s.events.Next() {
		return false
	}
	data := s.events.Data()
	// Errors after the response has started arrive as an event in place of
	// a chunk. They end the stream.
	if e := gjson.GetBytes(data, "error"); e.IsObject() {
		s.err = &llm.APIError{Type: e.Get("type").String(), Message: e.Get("message").String()}
		return false
	}
	var chunk llm.Chunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		chunk = llm.Chunk{Err: &llm.ChunkError{Data: string(data), Err: err}}
	}
	s.chunk = chunk
	return true
}

func (s *Stream) Chunk() llm.Chunk {
	return s.chunk
}

func (s *Stream) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.events.Err()
}

func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
