package llm

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

const maxEventSize = 1 << 20

// SSEReader reads the data payloads of a server-sent event stream. Events
// without data, comments and other fields are skipped. A "[DONE]" payload
// ends the stream.
type SSEReader struct {
	scanner *bufio.Scanner
	data    []byte
	done    bool
}

func NewSSEReader(r io.Reader) *SSEReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &SSEReader{scanner: scanner}
}

// Next advances to the next event that carries data.
func (r *SSEReader) Next() bool {
	if r.done {
		return false
	}
	var buf bytes.Buffer
	hasData := false
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if !hasData {
				continue
			}
			if r.dispatch(buf.Bytes()) {
				return true
			}
			return false
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		if field != "data" {
			continue
		}
		value = strings.TrimPrefix(value, " ")
		if hasData {
			buf.WriteByte('\n')
		}
		buf.WriteString(value)
		hasData = true
	}
	// The stream may end without a trailing blank line.
	if hasData {
		return r.dispatch(buf.Bytes())
	}
	r.done = true
	return false
}

func (r *SSEReader) dispatch(data []byte) bool {
	if string(data) == "[DONE]" {
		r.done = true
		r.data = nil
		return false
	}
	r.data = append(r.data[:0], data...)
	return true
}

// Data returns the payload of the current event.
func (r *SSEReader) Data() []byte {
	return r.data
}

// Err returns the error that stopped the scanner, if any.
func (r *SSEReader) Err() error {
	return r.scanner.Err()
}
