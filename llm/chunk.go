package llm

// Chunk is one incremental unit of a streamed chat completion. The JSON shape
// is the OpenAI chat.completion.chunk object; other providers convert into it.
type Chunk struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`

	// Err is set when the provider received the chunk but could not decode
	// it. Such a chunk carries no other data and can be skipped.
	Err error `json:"-"`
}

type Choice struct {
	Index        int     `json:"index"`
	Delta        *Delta  `json:"delta,omitempty"`
	FinishReason *string `json:"finish_reason,omitempty"`
}

type Delta struct {
	Role      string          `json:"role,omitempty"`
	Content   *string         `json:"content,omitempty"`
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

// ToolCallDelta is a fragment of a tool call. Fields that are nil were not
// part of this fragment.
type ToolCallDelta struct {
	Index    int            `json:"index"`
	ID       *string        `json:"id,omitempty"`
	Type     string         `json:"type,omitempty"`
	Function *FunctionDelta `json:"function,omitempty"`
}

type FunctionDelta struct {
	Name      *string `json:"name,omitempty"`
	Arguments *string `json:"arguments,omitempty"`
}

type Usage struct {
	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens int  `json:"completion_tokens"`
	TotalTokens      *int `json:"total_tokens,omitempty"`
}

// Finish reasons used by the providers.
const (
	FinishReasonStop          = "stop"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonLength        = "length"
	FinishReasonContentFilter = "content_filter"
)

func ptr[T any](v T) *T {
	return &v
}

// TextChunk returns a chunk with a single text fragment.
func TextChunk(text string) Chunk {
	return Chunk{Choices: []Choice{{Delta: &Delta{Content: ptr(text)}}}}
}

// ToolCallChunk returns a chunk with a single tool call fragment. Empty id,
// name or arguments are left out of the fragment.
func ToolCallChunk(index int, id, name, arguments string) Chunk {
	tc := ToolCallDelta{Index: index}
	if id != "" {
		tc.ID = ptr(id)
		tc.Type = "function"
	}
	if name != "" || arguments != "" {
		tc.Function = &FunctionDelta{}
		if name != "" {
			tc.Function.Name = ptr(name)
		}
		if arguments != "" {
			tc.Function.Arguments = ptr(arguments)
		}
	}
	return Chunk{Choices: []Choice{{Delta: &Delta{ToolCalls: []ToolCallDelta{tc}}}}}
}

// FinishChunk returns a chunk carrying only a finish reason.
func FinishChunk(reason string) Chunk {
	return Chunk{Choices: []Choice{{Delta: &Delta{}, FinishReason: ptr(reason)}}}
}

// UsageChunk returns the trailing choice-less chunk that carries token usage.
func UsageChunk(promptTokens, completionTokens int) Chunk {
	return Chunk{
		Choices: []Choice{},
		Usage: &Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      ptr(promptTokens + completionTokens),
		},
	}
}
