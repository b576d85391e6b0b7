package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/blixt/skillflow/content"
	"github.com/blixt/skillflow/llm"
)

// chatRequest accepts both the UI shape, where messages carry typed parts,
// and the plain shape, where content is a string.
type chatRequest struct {
	ID       string      `json:"id,omitempty"`
	Messages []uiMessage `json:"messages"`
	// Context replaces the configured company context when set.
	Context *string `json:"context,omitempty"`
}

type uiMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content,omitempty"`
	Parts   []uiPart        `json:"parts,omitempty"`
}

type uiPart struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	URL       string `json:"url,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

func decodeChatRequest(data []byte) (*chatRequest, error) {
	var req chatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	return &req, nil
}

// llmMessages converts the request history. Messages that end up without any
// content, such as assistant messages that only hold tool parts, are left out.
func (r *chatRequest) llmMessages() ([]llm.Message, error) {
	var messages []llm.Message
	for i, m := range r.Messages {
		switch m.Role {
		case "user", "assistant", "system":
		default:
			return nil, fmt.Errorf("messages[%d]: unsupported role %q", i, m.Role)
		}
		c, err := m.content()
		if err != nil {
			return nil, fmt.Errorf("messages[%d]: %w", i, err)
		}
		if c.IsEmpty() {
			continue
		}
		messages = append(messages, llm.Message{Role: m.Role, Content: c})
	}
	return messages, nil
}

func (m *uiMessage) content() (content.Content, error) {
	parts := m.Parts
	if len(parts) == 0 && len(m.Content) > 0 {
		var text string
		if err := json.Unmarshal(m.Content, &text); err == nil {
			return content.FromText(text), nil
		}
		if err := json.Unmarshal(m.Content, &parts); err != nil {
			return nil, errors.New("content must be a string or a list of parts")
		}
	}
	var c content.Content
	for _, p := range parts {
		switch {
		case p.Type == "text":
			c.Append(p.Text)
		case p.Type == "file" && strings.HasPrefix(p.MediaType, "image/"):
			c.AddImage(p.URL, p.MediaType)
		}
		// Tool, reasoning and other part types are not sent back upstream.
	}
	return c, nil
}
