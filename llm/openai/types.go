package openai

import (
	"encoding/json"

	"github.com/blixt/skillflow/content"
	"github.com/blixt/skillflow/llm"
	"github.com/blixt/skillflow/tool"
)

type message struct {
	// Role can be "system", "user" or "assistant".
	Role string `json:"role"`
	// Content is either a plain string or a list of content parts.
	Content messageContent `json:"content"`
}

type messageContent content.Content

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// MarshalJSON sends text-only content as a plain string, which every
// compatible server accepts, and anything else in the parts form.
func (c messageContent) MarshalJSON() ([]byte, error) {
	cc := content.Content(c)
	if cc.IsTextOnly() {
		return json.Marshal(cc.String())
	}
	parts := make([]contentPart, 0, len(cc))
	for _, item := range cc {
		switch v := item.(type) {
		case *content.Text:
			parts = append(parts, contentPart{Type: "text", Text: v.Text})
		case *content.ImageURL:
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: v.URL}})
		}
	}
	return json.Marshal(parts)
}

func messageFromLLM(m llm.Message) message {
	return message{Role: m.Role, Content: messageContent(m.Content)}
}

type functionTool struct {
	Type     string      `json:"type"`
	Function tool.Schema `json:"function"`
}

func toolsFromSchemas(schemas []tool.Schema) []functionTool {
	tools := make([]functionTool, len(schemas))
	for i, schema := range schemas {
		tools[i] = functionTool{Type: "function", Function: schema}
	}
	return tools
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatCompletionRequest struct {
	Model         string         `json:"model"`
	Messages      []message      `json:"messages"`
	Stream        bool           `json:"stream"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
	Tools         []functionTool `json:"tools,omitempty"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
