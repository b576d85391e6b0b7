package uistream

import (
	"strings"

	"github.com/blixt/skillflow/llm"
)

// textBlockID is the id of the single text block of a message.
const textBlockID = "text-1"

type textBlock struct {
	started bool
	ended   bool
}

// toolCallAccumulator collects the fragments of one tool call. The id and name
// are known once their has* flag is set; an empty value counts as missing.
type toolCallAccumulator struct {
	id      string
	hasID   bool
	name    string
	hasName bool

	arguments strings.Builder
	// flushed is how much of arguments has been sent as tool-input-delta.
	flushed int
	// started is set once tool-input-start has been emitted.
	started bool
}

func (a *toolCallAccumulator) ready() bool {
	return a.hasID && a.hasName
}

func (a *toolCallAccumulator) setID(id string) {
	if id == "" {
		return
	}
	a.id, a.hasID = id, true
}

func (a *toolCallAccumulator) setName(name string) {
	if name == "" {
		return
	}
	a.name, a.hasName = name, true
}

// unflushed returns the argument text not yet sent to the client and marks it
// as sent.
func (a *toolCallAccumulator) unflushed() string {
	args := a.arguments.String()
	rest := args[a.flushed:]
	a.flushed = len(args)
	return rest
}

// session is the mutable state of one translation. It is owned by a single
// Stream and never shared.
type session struct {
	messageID    string
	text         textBlock
	toolCalls    map[int]*toolCallAccumulator
	finishReason *string
	usage        *llm.Usage
	chunkCount   int
}

func newSession(messageID string) *session {
	return &session{
		messageID: messageID,
		toolCalls: make(map[int]*toolCallAccumulator),
	}
}

func (s *session) toolCall(index int) *toolCallAccumulator {
	acc, ok := s.toolCalls[index]
	if !ok {
		acc = &toolCallAccumulator{}
		s.toolCalls[index] = acc
	}
	return acc
}

// finishMetadata returns nil when neither the finish reason nor the usage is
// known, so the finish frame carries no metadata at all.
func (s *session) finishMetadata() *FinishMetadata {
	if s.finishReason == nil && s.usage == nil {
		return nil
	}
	meta := &FinishMetadata{}
	if s.finishReason != nil {
		meta.FinishReason = strings.ReplaceAll(*s.finishReason, "_", "-")
	}
	if s.usage != nil {
		meta.Usage = &UsageMetadata{
			PromptTokens:     s.usage.PromptTokens,
			CompletionTokens: s.usage.CompletionTokens,
			TotalTokens:      s.usage.TotalTokens,
		}
	}
	return meta
}
