package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/blixt/skillflow/llm"
	"github.com/blixt/skillflow/uistream"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to the /api/chat endpoint of a skillflow server.
type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}
}

func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.client = client
	return c
}

// Chat sends the conversation and returns a reader over the response frames.
// The reader must be closed.
func (c *Client) Chat(ctx context.Context, messages []Message) (*FrameReader, error) {
	body, err := json.Marshal(map[string]any{"messages": messages})
	if err != nil {
		return nil, fmt.Errorf("error encoding JSON: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat?protocol=data", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if msg := gjson.GetBytes(data, "error"); msg.Exists() {
			return nil, fmt.Errorf("%s: %s", resp.Status, msg.String())
		}
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	return &FrameReader{body: resp.Body, events: llm.NewSSEReader(resp.Body)}, nil
}

// FrameReader reads the frames of one chat response.
type FrameReader struct {
	body   io.ReadCloser
	events *llm.SSEReader
	frame  uistream.Frame
	raw    gjson.Result
	err    error
}

func (r *FrameReader) Next() bool {
	if r.err != nil || !r.events.Next() {
		return false
	}
	data := r.events.Data()
	frame, err := uistream.DecodeFrame(data)
	if err != nil {
		r.err = err
		return false
	}
	r.frame, r.raw = frame, gjson.ParseBytes(data)
	return true
}

// Frame returns the current frame.
func (r *FrameReader) Frame() uistream.Frame {
	return r.frame
}

// Raw returns the JSON body of the current frame, for fields that are not
// part of the typed frame.
func (r *FrameReader) Raw() gjson.Result {
	return r.raw
}

func (r *FrameReader) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.events.Err()
}

func (r *FrameReader) Close() error {
	return r.body.Close()
}

// Text sends the conversation and returns the complete assistant text. An
// error frame in the response is returned as an error.
func (c *Client) Text(ctx context.Context, messages []Message) (string, error) {
	frames, err := c.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	defer frames.Close()
	var sb strings.Builder
	for frames.Next() {
		raw := frames.Raw()
		switch raw.Get("type").String() {
		case uistream.TypeTextDelta:
			sb.WriteString(raw.Get("delta").String())
		case uistream.TypeError:
			return sb.String(), fmt.Errorf("stream error: %s", raw.Get("error").String())
		}
	}
	return sb.String(), frames.Err()
}
