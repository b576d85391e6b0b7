package tool

import (
	"encoding/json"
	"fmt"
)

type Result interface {
	// Label returns a short single line description of the entire tool run.
	Label() string
	// Output returns the value produced by the tool. It is nil on error.
	Output() any
	// Error returns the error that occurred during the tool run, if any.
	Error() error
	// JSON returns the output encoded as JSON, or an error object.
	JSON() json.RawMessage
}

type result struct {
	label  string
	output any
	err    error
}

func (r *result) Label() string {
	return r.label
}

func (r *result) Output() any {
	return r.output
}

func (r *result) Error() error {
	return r.err
}

func (r *result) JSON() json.RawMessage {
	if r.err != nil {
		data, _ := json.Marshal(map[string]string{"error": r.err.Error()})
		return data
	}
	data, err := json.Marshal(r.output)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("unencodable output: %v", err)})
	}
	return data
}

func Error(label string, err error) Result {
	return &result{label: label, err: err}
}

func Success(label string, output any) Result {
	return &result{label: label, output: output}
}
