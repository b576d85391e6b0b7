package google

import (
	"encoding/json"
	"strings"

	"github.com/blixt/skillflow/content"
	"github.com/blixt/skillflow/llm"
)

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type fileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type part struct {
	Text         *string       `json:"text,omitempty"`
	InlineData   *inlineData   `json:"inlineData,omitempty"`
	FileData     *fileData     `json:"fileData,omitempty"`
	FunctionCall *functionCall `json:"functionCall,omitempty"`
}

func convertContent(c content.Content) (p []part) {
	for _, item := range c {
		var pp part
		switch v := item.(type) {
		case *content.Text:
			text := v.Text
			pp.Text = &text
		case *content.ImageURL:
			if dataValue, found := strings.CutPrefix(v.URL, "data:"); found {
				mimeType, data, found := strings.Cut(dataValue, ";base64,")
				if !found {
					// Not something Gemini can take inline; pass the text along instead.
					text := v.URL
					pp.Text = &text
					break
				}
				pp.InlineData = &inlineData{mimeType, data}
			} else {
				pp.FileData = &fileData{MimeType: v.MediaType, FileURI: v.URL}
			}
		default:
			continue
		}
		p = append(p, pp)
	}
	return p
}

type message struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

func messageFromLLM(m llm.Message) message {
	role := m.Role
	if role == "assistant" {
		role = "model"
	}
	return message{
		Role:  role,
		Parts: convertContent(m.Content),
	}
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type streamingResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
}

type candidate struct {
	Content      candidateContent `json:"content"`
	FinishReason string           `json:"finishReason,omitempty"`
	Index        int              `json:"index"`
}

type candidateContent struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}
