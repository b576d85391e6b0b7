package llm

import "fmt"

// APIError is a non-2xx response from a provider, or an error event sent
// mid-stream, in which case StatusCode is 0.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		if e.Type != "" {
			return fmt.Sprintf("%s: %s", e.Type, e.Message)
		}
		return e.Message
	}
	if e.Type != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// ChunkError describes a streamed event that could not be decoded.
type ChunkError struct {
	Data string
	Err  error
}

func (e *ChunkError) Error() string {
	data := e.Data
	if len(data) > 120 {
		data = data[:120] + "…"
	}
	return fmt.Sprintf("error decoding chunk %q: %v", data, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}
