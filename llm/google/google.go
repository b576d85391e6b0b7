package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/blixt/skillflow/llm"
)

type Model struct {
	accessToken     string
	model           string
	endpoint        string
	maxOutputTokens int
	temperature     float64
	topP            float64
	client          *http.Client
}

func New(model string) *Model {
	return &Model{
		model:           model,
		maxOutputTokens: 8192,
		temperature:     1,
		topP:            0.95,
		client:          http.DefaultClient,
	}
}

func (m *Model) WithGeminiAPI(apiKey string) *Model {
	m.accessToken = ""
	m.endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:streamGenerateContent?alt=sse&key=%s", m.model, apiKey)
	return m
}

func (m *Model) WithVertexAI(accessToken, projectID, region string) *Model {
	m.accessToken = accessToken
	m.endpoint = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:streamGenerateContent?alt=sse", region, projectID, region, m.model)
	return m
}

// WithEndpoint sets the full streamGenerateContent URL, e.g. for a proxy.
func (m *Model) WithEndpoint(endpoint string) *Model {
	m.endpoint = endpoint
	return m
}

func (m *Model) WithMaxOutputTokens(maxOutputTokens int) *Model {
	m.maxOutputTokens = maxOutputTokens
	return m
}

func (m *Model) WithTemperature(temperature float64) *Model {
	m.temperature = temperature
	return m
}

func (m *Model) WithTopP(topP float64) *Model {
	m.topP = topP
	return m
}

func (m *Model) WithHTTPClient(client *http.Client) *Model {
	m.client = client
	return m
}

func (m *Model) Company() string {
	return "Google"
}

// Stream ignores req.Model; the model is part of the endpoint URL.
func (m *Model) Stream(ctx context.Context, req llm.Request) (llm.ChunkStream, error) {
	if m.endpoint == "" {
		return nil, fmt.Errorf("must call either WithVertexAI(…) or WithGeminiAPI(…) first")
	}

	systemParts := convertContentText(req.SystemPrompt)
	var apiMessages []message
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			systemParts = append(systemParts, convertContent(msg.Content)...)
			continue
		}
		apiMessages = append(apiMessages, messageFromLLM(msg))
	}

	payload := map[string]any{
		"contents": apiMessages,
		"generationConfig": map[string]any{
			"maxOutputTokens": m.maxOutputTokens,
			"temperature":     m.temperature,
			"topP":            m.topP,
		},
	}

	if len(systemParts) > 0 {
		payload["systemInstruction"] = map[string]any{
			"parts": systemParts,
		}
	}

	if len(req.Tools) > 0 {
		payload["tools"] = []map[string]any{
			{"functionDeclarations": req.Tools},
		}
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error encoding JSON: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if m.accessToken != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", m.accessToken))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var errResp errorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&errResp); err != nil {
			return nil, &llm.APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return nil, &llm.APIError{StatusCode: resp.StatusCode, Type: errResp.Error.Status, Message: errResp.Error.Message}
	}
	return &Stream{body: resp.Body, events: llm.NewSSEReader(resp.Body)}, nil
}

func convertContentText(text string) []part {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []part{{Text: &text}}
}

// Stream converts Gemini responses into OpenAI shaped chunks. Gemini sends
// function calls whole, so each becomes a single fragment with a generated id.
type Stream struct {
	body   io.ReadCloser
	events *llm.SSEReader

	pending     []llm.Chunk
	chunk       llm.Chunk
	toolIndex   int
	sawToolCall bool
	usage       *usageMetadata
	usageSent   bool

	closeOnce sync.Once
	closeErr  error
}

func (s *Stream) Next() bool {
	for len(s.pending) == 0 {
		if !s.events.Next() {
			if s.events.Err() == nil && s.usage != nil && !s.usageSent {
				s.usageSent = true
				s.pending = append(s.pending, llm.UsageChunk(s.usage.PromptTokenCount, s.usage.CandidatesTokenCount))
				if s.usage.TotalTokenCount > 0 {
					total := s.usage.TotalTokenCount
					s.pending[0].Usage.TotalTokens = &total
				}
				break
			}
			return false
		}
		data := s.events.Data()
		var resp streamingResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			s.pending = append(s.pending, llm.Chunk{Err: &llm.ChunkError{Data: string(data), Err: err}})
			break
		}
		if resp.UsageMetadata != nil {
			s.usage = resp.UsageMetadata
		}
		s.pending = append(s.pending, s.convert(resp)...)
	}
	s.chunk, s.pending = s.pending[0], s.pending[1:]
	return true
}

func (s *Stream) convert(resp streamingResponse) []llm.Chunk {
	var chunks []llm.Chunk
	for _, c := range resp.Candidates {
		// Only the first candidate is surfaced.
		if c.Index != 0 {
			continue
		}
		for _, p := range c.Content.Parts {
			if p.Text != nil && *p.Text != "" {
				chunks = append(chunks, llm.TextChunk(*p.Text))
			}
			if p.FunctionCall != nil {
				args := string(p.FunctionCall.Args)
				if args == "" || args == "null" {
					args = "{}"
				}
				id := "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
				chunks = append(chunks, llm.ToolCallChunk(s.toolIndex, id, p.FunctionCall.Name, args))
				s.toolIndex++
				s.sawToolCall = true
			}
		}
		if reason := s.finishReason(c.FinishReason); reason != "" {
			chunks = append(chunks, llm.FinishChunk(reason))
		}
	}
	return chunks
}

func (s *Stream) finishReason(reason string) string {
	switch reason {
	case "":
		return ""
	case "STOP":
		if s.sawToolCall {
			return llm.FinishReasonToolCalls
		}
		return llm.FinishReasonStop
	case "MAX_TOKENS":
		return llm.FinishReasonLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return llm.FinishReasonContentFilter
	default:
		return strings.ToLower(reason)
	}
}

func (s *Stream) Chunk() llm.Chunk {
	return s.chunk
}

func (s *Stream) Err() error {
	return s.events.Err()
}

func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

var _ llm.ChunkStream = (*Stream)(nil)
