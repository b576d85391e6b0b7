package uistream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Frame types of the UI message stream protocol, version 1.
const (
	TypeStart               = "start"
	TypeError               = "error"
	TypeTextStart           = "text-start"
	TypeTextDelta           = "text-delta"
	TypeTextEnd             = "text-end"
	TypeToolInputStart      = "tool-input-start"
	TypeToolInputDelta      = "tool-input-delta"
	TypeToolInputAvailable  = "tool-input-available"
	TypeToolInputError      = "tool-input-error"
	TypeToolOutputAvailable = "tool-output-available"
	TypeToolOutputError     = "tool-output-error"
	TypeFinish              = "finish"
	TypeMessageFinish       = "message-finish"
)

// Frame is one event of the UI message stream. The JSON encoding of a frame
// is its "type" followed by the struct fields in declaration order.
type Frame interface {
	FrameType() string
}

type Start struct {
	MessageID string `json:"messageId"`
}

type Error struct {
	Error     string `json:"error"`
	MessageID string `json:"messageId,omitempty"`
	ErrorType string `json:"errorType,omitempty"`
}

type TextStart struct {
	ID string `json:"id"`
}

type TextDelta struct {
	ID    string `json:"id"`
	Delta string `json:"delta"`
}

type TextEnd struct {
	ID string `json:"id"`
}

type ToolInputStart struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
}

type ToolInputDelta struct {
	ToolCallID     string `json:"toolCallId"`
	InputTextDelta string `json:"inputTextDelta"`
}

// ToolInputAvailable carries the parsed arguments of a tool call.
type ToolInputAvailable struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Input      json.RawMessage `json:"input"`
}

// ToolInputError carries the raw argument text that failed to parse.
type ToolInputError struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
	Input      string `json:"input"`
	ErrorText  string `json:"errorText"`
}

type ToolOutputAvailable struct {
	ToolCallID string          `json:"toolCallId"`
	Output     json.RawMessage `json:"output"`
}

type ToolOutputError struct {
	ToolCallID string `json:"toolCallId"`
	ErrorText  string `json:"errorText"`
}

type Finish struct {
	MessageMetadata *FinishMetadata `json:"messageMetadata,omitempty"`
}

// FinishMetadata only includes the keys that are known at the end of a turn.
type FinishMetadata struct {
	FinishReason string         `json:"finishReason,omitempty"`
	Usage        *UsageMetadata `json:"usage,omitempty"`
}

type UsageMetadata struct {
	PromptTokens     int  `json:"promptTokens"`
	CompletionTokens int  `json:"completionTokens"`
	TotalTokens      *int `json:"totalTokens,omitempty"`
}

type MessageFinish struct {
	MessageID string `json:"messageId"`
}

func (Start) FrameType() string               { return TypeStart }
func (Error) FrameType() string               { return TypeError }
func (TextStart) FrameType() string           { return TypeTextStart }
func (TextDelta) FrameType() string           { return TypeTextDelta }
func (TextEnd) FrameType() string             { return TypeTextEnd }
func (ToolInputStart) FrameType() string      { return TypeToolInputStart }
func (ToolInputDelta) FrameType() string      { return TypeToolInputDelta }
func (ToolInputAvailable) FrameType() string  { return TypeToolInputAvailable }
func (ToolInputError) FrameType() string      { return TypeToolInputError }
func (ToolOutputAvailable) FrameType() string { return TypeToolOutputAvailable }
func (ToolOutputError) FrameType() string     { return TypeToolOutputError }
func (Finish) FrameType() string              { return TypeFinish }
func (MessageFinish) FrameType() string       { return TypeMessageFinish }

var (
	ssePrefix = []byte("data: ")
	sseSuffix = []byte("\n\n")
)

// marshal encodes v as compact JSON without escaping HTML characters.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// EncodeJSON returns the JSON body of a frame, with "type" as the first key.
func EncodeJSON(f Frame) ([]byte, error) {
	body, err := marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encoding %s frame: %w", f.FrameType(), err)
	}
	typ, err := marshal(f.FrameType())
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+len(typ)+10)
	out = append(out, `{"type":`...)
	out = append(out, typ...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}

// Encode returns a frame as one SSE unit: "data: <json>\n\n".
func Encode(f Frame) ([]byte, error) {
	body, err := EncodeJSON(f)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(ssePrefix)+len(body)+len(sseSuffix))
	out = append(out, ssePrefix...)
	out = append(out, body...)
	return append(out, sseSuffix...), nil
}

// DecodeFrame parses a frame from either an SSE unit or a bare JSON body.
func DecodeFrame(data []byte) (Frame, error) {
	data = bytes.TrimSuffix(bytes.TrimPrefix(data, ssePrefix), sseSuffix)
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid frame JSON: %q", data)
	}
	var f Frame
	switch typ := gjson.GetBytes(data, "type").String(); typ {
	case TypeStart:
		f = &Start{}
	case TypeError:
		f = &Error{}
	case TypeTextStart:
		f = &TextStart{}
	case TypeTextDelta:
		f = &TextDelta{}
	case TypeTextEnd:
		f = &TextEnd{}
	case TypeToolInputStart:
		f = &ToolInputStart{}
	case TypeToolInputDelta:
		f = &ToolInputDelta{}
	case TypeToolInputAvailable:
		f = &ToolInputAvailable{}
	case TypeToolInputError:
		f = &ToolInputError{}
	case TypeToolOutputAvailable:
		f = &ToolOutputAvailable{}
	case TypeToolOutputError:
		f = &ToolOutputError{}
	case TypeFinish:
		f = &Finish{}
	case TypeMessageFinish:
		f = &MessageFinish{}
	default:
		return nil, fmt.Errorf("unknown frame type %q", typ)
	}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("decoding %s frame: %w", f.FrameType(), err)
	}
	return deref(f), nil
}

// deref turns the pointer used for decoding back into the value form the
// translator emits, so decoded frames compare equal to emitted ones.
func deref(f Frame) Frame {
	switch v := f.(type) {
	case *Start:
		return *v
	case *Error:
		return *v
	case *TextStart:
		return *v
	case *TextDelta:
		return *v
	case *TextEnd:
		return *v
	case *ToolInputStart:
		return *v
	case *ToolInputDelta:
		return *v
	case *ToolInputAvailable:
		return *v
	case *ToolInputError:
		return *v
	case *ToolOutputAvailable:
		return *v
	case *ToolOutputError:
		return *v
	case *Finish:
		return *v
	case *MessageFinish:
		return *v
	}
	return f
}
