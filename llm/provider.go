package llm

import (
	"context"

	"github.com/blixt/skillflow/tool"
)

type Request struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Tools        []tool.Schema
}

// ChunkStream is an open upstream completion. It must be closed by the
// consumer on every path.
type ChunkStream interface {
	// Next blocks until the next chunk is available. It returns false at the
	// end of the stream or on a transport error.
	Next() bool
	// Chunk returns the current chunk. A chunk with Err set could not be
	// decoded and should be skipped.
	Chunk() Chunk
	// Err returns the transport error that ended the stream, if any.
	Err() error
	Close() error
}

type Provider interface {
	Company() string
	// Stream opens a streaming completion. Errors returned here mean the
	// request never produced a stream.
	Stream(ctx context.Context, req Request) (ChunkStream, error)
}
