package uistream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/blixt/skillflow/llm"
	"github.com/blixt/skillflow/tool"
)

type state int

const (
	stateStart state = iota
	stateAwaitingChunk
	stateEmitting
	stateFinalizing
	stateDone
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateAwaitingChunk:
		return "awaiting-chunk"
	case stateEmitting:
		return "emitting"
	case stateFinalizing:
		return "finalizing"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Stream is a pull iterator over the frames of one translation. Work only
// happens inside Next, and only when the frames produced by the previous step
// have all been consumed. A Stream is not safe for concurrent use.
type Stream struct {
	t       *Translator
	ctx     context.Context
	req     Request
	session *session
	log     zerolog.Logger

	state state
	// resume is the state to continue in once pending has been drained.
	resume  state
	pending []Frame

	upstream       llm.ChunkStream
	upstreamClosed bool
	closeErr       error

	// finalize holds the tool call indices left to finalize, ascending.
	finalize []int

	frame Frame
	data  []byte
	err   error
}

// Next advances to the next frame. It returns false when the stream has ended
// or failed; Err tells the two apart.
func (s *Stream) Next() bool {
	for {
		switch s.state {
		case stateDone:
			s.frame, s.data = nil, nil
			s.closeUpstream()
			return false
		case stateEmitting:
			if len(s.pending) == 0 {
				s.state = s.resume
				continue
			}
			frame := s.pending[0]
			s.pending[0] = nil
			s.pending = s.pending[1:]
			if s.encode(frame) {
				return true
			}
		default:
			s.resume = s.step()
			s.state = stateEmitting
		}
	}
}

// Frame returns the current frame.
func (s *Stream) Frame() Frame {
	return s.frame
}

// Bytes returns the current frame as an SSE unit.
func (s *Stream) Bytes() []byte {
	return s.data
}

// JSON returns the JSON body of the current frame.
func (s *Stream) JSON() []byte {
	return bytes.TrimSuffix(bytes.TrimPrefix(s.data, ssePrefix), sseSuffix)
}

// Err returns the error that ended the stream. It is a *StreamError, or nil
// if the stream ended normally or the request was rejected with an error
// frame.
func (s *Stream) Err() error {
	return s.err
}

// Close stops the stream and releases the upstream connection. It is safe to
// call more than once and after the stream has ended.
func (s *Stream) Close() error {
	if s.state != stateDone {
		s.log.Debug().Stringer("state", s.state).Msg("Stream closed by consumer")
	}
	s.state = stateDone
	s.pending = nil
	s.closeUpstream()
	return s.closeErr
}

// All iterates over the frames and closes the stream when done. A terminal
// error is yielded last, with a nil frame.
func (s *Stream) All() iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.frame, nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// WriteTo writes every frame to w with one Write call per frame, flushing
// after each one if w supports it. The stream is closed when WriteTo returns.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	defer s.Close()
	flusher, _ := w.(interface{ Flush() })
	var total int64
	for s.Next() {
		n, err := w.Write(s.data)
		total += int64(n)
		if err != nil {
			return total, err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	return total, s.Err()
}

func (s *Stream) step() state {
	switch s.state {
	case stateStart:
		return s.start()
	case stateAwaitingChunk:
		return s.readChunk()
	case stateFinalizing:
		return s.finalizeNext()
	}
	return stateDone
}

func (s *Stream) emit(frames ...Frame) {
	s.pending = append(s.pending, frames...)
}

func (s *Stream) encode(frame Frame) bool {
	data, err := Encode(frame)
	if err == nil {
		s.frame, s.data = frame, data
		return true
	}
	if _, ok := frame.(Error); ok {
		s.log.Error().Err(err).Msg("Failed to send error frame")
		s.pending = nil
		s.resume = stateDone
		return false
	}
	s.resume = s.fail(KindEncode, err, ErrorTypeEncode)
	return false
}

func (s *Stream) start() state {
	s.emit(Start{MessageID: s.session.messageID})
	s.log.Info().
		Int("messages", len(s.req.Messages)).
		Int("tools", len(s.req.Tools)).
		Str("model", s.t.model).
		Msg("Starting stream")
	if len(s.req.Messages) == 0 {
		s.log.Warn().Msg("Empty messages list received")
		s.emit(Error{Error: "No messages provided"})
		return stateDone
	}
	return stateAwaitingChunk
}

func (s *Stream) open() state {
	companyContext := s.req.Context
	if strings.TrimSpace(companyContext) == "" {
		s.log.Warn().Msg("Empty company context received")
		companyContext = NoContext
	}
	upstream, err := s.t.provider.Stream(s.ctx, llm.Request{
		Model:        s.t.model,
		SystemPrompt: s.t.systemPrompt(companyContext),
		Messages:     s.req.Messages,
		Tools:        s.req.Tools,
	})
	if err != nil {
		s.log.Error().Err(err).Str("provider", s.t.provider.Company()).Msg("Error creating stream")
		s.err = &StreamError{Kind: KindUpstreamOpen, Err: err}
		s.emit(Error{Error: "Failed to create stream: " + err.Error()})
		return stateDone
	}
	s.upstream = upstream
	return stateAwaitingChunk
}

func (s *Stream) readChunk() state {
	if s.upstream == nil {
		return s.open()
	}
	if !s.upstream.Next() {
		if err := s.upstream.Err(); err != nil {
			return s.fail(KindUpstream, err, errorType(err))
		}
		if err := s.ctx.Err(); err != nil {
			return s.fail(KindUpstream, err, errorType(err))
		}
		s.closeUpstream()
		return s.beginFinalize()
	}
	s.session.chunkCount++
	n := s.session.chunkCount
	if n%10 == 0 {
		s.log.Debug().Int("chunks", n).Msg("Processed chunks")
	}
	chunk := s.upstream.Chunk()
	if chunk.Err != nil {
		s.log.Error().Err(chunk.Err).Int("chunk", n).Msg("Error processing chunk")
		return stateAwaitingChunk
	}
	s.processChunk(n, chunk)
	return stateAwaitingChunk
}

// processChunk turns one chunk into frames. A panic only loses the rest of
// the chunk; frames already queued for it are kept.
func (s *Stream) processChunk(n int, chunk llm.Chunk) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Int("chunk", n).Interface("panic", r).Msg("Error processing chunk")
		}
	}()
	for _, choice := range chunk.Choices {
		if choice.FinishReason != nil {
			reason := *choice.FinishReason
			s.session.finishReason = &reason
			s.log.Info().Str("finishReason", reason).Msg("Finish reason")
		}
		delta := choice.Delta
		if delta == nil {
			continue
		}
		if delta.Content != nil {
			// An empty fragment does not open the text block, but is passed
			// through once it is open.
			if !s.session.text.started && *delta.Content != "" {
				s.session.text.started = true
				s.emit(TextStart{ID: textBlockID})
			}
			if s.session.text.started {
				s.emit(TextDelta{ID: textBlockID, Delta: *delta.Content})
			}
		}
		for _, tc := range delta.ToolCalls {
			s.accumulate(tc)
		}
	}
	if len(chunk.Choices) == 0 && chunk.Usage != nil {
		usage := *chunk.Usage
		s.session.usage = &usage
	}
}

// accumulate applies one tool call fragment. Any of the three fields can be
// the one that makes the call ready to announce.
func (s *Stream) accumulate(tc llm.ToolCallDelta) {
	acc := s.session.toolCall(tc.Index)
	if tc.ID != nil {
		acc.setID(*tc.ID)
		s.announce(acc)
	}
	if tc.Function == nil {
		return
	}
	if tc.Function.Name != nil {
		acc.setName(*tc.Function.Name)
		s.announce(acc)
	}
	if tc.Function.Arguments != nil && *tc.Function.Arguments != "" {
		acc.arguments.WriteString(*tc.Function.Arguments)
		s.announce(acc)
		s.flushArguments(acc)
	}
}

// announce emits tool-input-start the first time both id and name are known,
// followed by any argument text that arrived before that.
func (s *Stream) announce(acc *toolCallAccumulator) {
	if acc.started || !acc.ready() {
		return
	}
	acc.started = true
	s.emit(ToolInputStart{ToolCallID: acc.id, ToolName: acc.name})
	s.flushArguments(acc)
}

func (s *Stream) flushArguments(acc *toolCallAccumulator) {
	if !acc.started || acc.flushed == acc.arguments.Len() {
		return
	}
	s.emit(ToolInputDelta{ToolCallID: acc.id, InputTextDelta: acc.unflushed()})
}

func (s *Stream) closeText() {
	if s.session.text.started && !s.session.text.ended {
		s.session.text.ended = true
		s.emit(TextEnd{ID: textBlockID})
	}
}

func (s *Stream) beginFinalize() state {
	reason := ""
	if s.session.finishReason != nil {
		reason = *s.session.finishReason
	}
	if reason == llm.FinishReasonStop {
		s.closeText()
	}
	if reason == llm.FinishReasonToolCalls {
		s.finalize = slices.Sorted(maps.Keys(s.session.toolCalls))
	}
	return stateFinalizing
}

// finalizeNext finalizes one tool call per step, then ends the message.
func (s *Stream) finalizeNext() state {
	if len(s.finalize) > 0 {
		if err := s.ctx.Err(); err != nil {
			return s.fail(KindUpstream, err, errorType(err))
		}
		index := s.finalize[0]
		s.finalize = s.finalize[1:]
		s.finalizeToolCall(index)
		return stateFinalizing
	}
	s.closeText()
	meta := s.session.finishMetadata()
	s.log.Info().Interface("messageMetadata", meta).Msg("Sending finish event")
	s.emit(Finish{MessageMetadata: meta}, MessageFinish{MessageID: s.session.messageID})
	s.log.Info().Int("chunks", s.session.chunkCount).Msg("Stream completed")
	return stateDone
}

func (s *Stream) finalizeToolCall(index int) {
	acc := s.session.toolCalls[index]
	if !acc.ready() {
		s.log.Debug().Int("index", index).Msg("Skipping tool call without id or name")
		return
	}
	s.announce(acc)
	raw := acc.arguments.String()
	input, err := parseArguments(raw)
	if err != nil {
		s.log.Error().Err(err).Str("tool", acc.name).Msg("Invalid tool arguments")
		s.emit(ToolInputError{ToolCallID: acc.id, ToolName: acc.name, Input: raw, ErrorText: err.Error()})
		return
	}
	s.emit(ToolInputAvailable{ToolCallID: acc.id, ToolName: acc.name, Input: input})
	s.emit(s.invoke(acc, input))
}

// parseArguments validates the argument text of a tool call. No text at all
// means no arguments.
func parseArguments(raw string) (json.RawMessage, error) {
	if raw == "" {
		return json.RawMessage("{}"), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Stream) invoke(acc *toolCallAccumulator, input json.RawMessage) (frame Frame) {
	log := s.log.With().Str("tool", acc.name).Str("toolCallId", acc.id).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Tool panicked")
			frame = ToolOutputError{ToolCallID: acc.id, ErrorText: fmt.Sprintf("tool panicked: %v", r)}
		}
	}()
	notFound := ToolOutputError{ToolCallID: acc.id, ErrorText: fmt.Sprintf("Tool '%s' not found.", acc.name)}
	if s.req.Invoker == nil {
		return notFound
	}
	ctx := tool.WithReport(s.ctx, func(status string) {
		log.Debug().Str("status", status).Msg("Tool status")
		if s.t.report != nil {
			s.t.report(acc.id, status)
		}
	})
	log.Info().RawJSON("args", input).Msg("Executing tool")
	output, err := s.req.Invoker.Invoke(ctx, acc.name, input)
	if errors.Is(err, tool.ErrNotFound) {
		log.Warn().Msg("Tool not found")
		return notFound
	} else if err != nil {
		log.Error().Err(err).Msg("Tool execution failed")
		return ToolOutputError{ToolCallID: acc.id, ErrorText: err.Error()}
	}
	data, err := marshal(output)
	if err != nil {
		log.Error().Err(err).Msg("Tool output could not be encoded")
		return ToolOutputError{ToolCallID: acc.id, ErrorText: fmt.Sprintf("tool output could not be encoded: %v", err)}
	}
	log.Info().Msg("Tool executed successfully")
	return ToolOutputAvailable{ToolCallID: acc.id, Output: data}
}

// fail reports err to the client in place of anything still queued and ends
// the stream.
func (s *Stream) fail(kind ErrorKind, err error, errType string) state {
	s.log.Error().Err(err).Str("errorType", errType).Msg("Stream error")
	s.err = &StreamError{Kind: kind, Type: errType, Err: err}
	s.pending = []Frame{Error{MessageID: s.session.messageID, Error: err.Error(), ErrorType: errType}}
	s.finalize = nil
	s.closeUpstream()
	return stateDone
}

func (s *Stream) closeUpstream() {
	if s.upstream == nil || s.upstreamClosed {
		return
	}
	s.upstreamClosed = true
	s.closeErr = s.upstream.Close()
}
