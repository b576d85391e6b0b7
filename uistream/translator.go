package uistream

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blixt/skillflow/llm"
	"github.com/blixt/skillflow/tool"
)

// Invoker runs a tool by name. Returning an error that wraps tool.ErrNotFound
// means no tool has that name.
type Invoker interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) (any, error)
}

var _ Invoker = (*tool.Toolbox)(nil)

// Request is the input of one translation.
type Request struct {
	// Messages is the conversation history. It must not be empty.
	Messages []llm.Message
	// Context is the company context put into the system prompt.
	Context string
	// Tools are advertised to the model.
	Tools []tool.Schema
	// Invoker runs the tool calls the model makes. It may be nil, in which
	// case every tool call is reported as not found.
	Invoker Invoker
}

// Translator turns one model turn into a UI message stream.
type Translator struct {
	provider     llm.Provider
	model        string
	systemPrompt func(companyContext string) string
	logger       zerolog.Logger
	messageID    func() string
	report       func(toolCallID, status string)
}

type Option func(*Translator)

func WithModel(model string) Option {
	return func(t *Translator) {
		t.model = model
	}
}

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(fn func(companyContext string) string) Option {
	return func(t *Translator) {
		t.systemPrompt = fn
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(t *Translator) {
		t.logger = logger
	}
}

// WithMessageID overrides how message ids are generated.
func WithMessageID(fn func() string) Option {
	return func(t *Translator) {
		t.messageID = fn
	}
}

// WithRunnerReport receives the status lines tools report while running.
func WithRunnerReport(fn func(toolCallID, status string)) Option {
	return func(t *Translator) {
		t.report = fn
	}
}

func New(provider llm.Provider, opts ...Option) *Translator {
	t := &Translator{
		provider:     provider,
		systemPrompt: DefaultSystemPrompt,
		logger:       zerolog.Nop(),
		messageID:    NewMessageID,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewMessageID returns "msg-" followed by 32 random hex characters.
func NewMessageID() string {
	return "msg-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Translate returns a stream over the frames of one model turn. Nothing
// happens until the first call to Next. The stream must be closed.
func (t *Translator) Translate(ctx context.Context, req Request) *Stream {
	if ctx == nil {
		ctx = context.Background()
	}
	s := newSession(t.messageID())
	return &Stream{
		t:       t,
		ctx:     ctx,
		req:     req,
		session: s,
		log:     t.logger.With().Str("messageId", s.messageID).Logger(),
		state:   stateStart,
	}
}
