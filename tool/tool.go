package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrInvalidArguments wraps argument validation and decoding failures, so
// callers can tell a bad tool call apart from a tool that failed.
var ErrInvalidArguments = errors.New("invalid arguments")

// Tool is a function the model can call. Its schema is advertised with the
// request and its result becomes the output frame of the call.
type Tool interface {
	// Label returns a nice human readable title for the tool.
	Label() string
	// Description returns the description of the tool.
	Description() string
	// FuncName returns the function name for the tool.
	FuncName() string
	// Run runs the tool with the provided parameters.
	Run(r Runner, params json.RawMessage) Result
	// Schema returns the JSON schema for the tool.
	Schema() *Schema
}

// Func returns a tool for a function implementation with the given name and
// description. The parameter schema is reflected from Params, which must be a
// struct; json tags name the properties, fields without omitempty are
// required and a description tag documents them. Arguments are validated
// against the schema before fn is called, and missing arguments count as an
// empty object.
func Func[Params any](label, description, funcName string, fn func(r Runner, params Params) Result) Tool {
	var zeroParams Params
	schemaType := reflect.TypeOf(zeroParams)
	if schemaType == nil || schemaType.Kind() != reflect.Struct {
		panic("Params must be a struct")
	}
	var t *tool
	t = &tool{
		label:       label,
		description: description,
		schemaType:  schemaType,
		funcName:    funcName,
		fn: func(r Runner, params json.RawMessage) Result {
			if len(params) == 0 {
				params = json.RawMessage("{}")
			}
			if err := validateJSON(*t.Schema(), params); err != nil {
				return Error("Invalid arguments", fmt.Errorf("%w for %s: %w", ErrInvalidArguments, funcName, err))
			}
			var p Params
			if err := json.Unmarshal(params, &p); err != nil {
				return Error("Invalid arguments", fmt.Errorf("%w for %s: %w", ErrInvalidArguments, funcName, err))
			}
			return fn(r, p)
		},
	}
	return t
}

type tool struct {
	label, description, funcName string

	fn func(r Runner, params json.RawMessage) Result

	// Built on first use and shared by every request that advertises the tool.
	schema     *Schema
	schemaOnce sync.Once
	schemaType reflect.Type
}

func (t *tool) Label() string {
	return t.label
}

func (t *tool) Description() string {
	return t.description
}

func (t *tool) FuncName() string {
	return t.funcName
}

func (t *tool) Run(r Runner, params json.RawMessage) Result {
	return t.fn(r, params)
}

func (t *tool) Schema() *Schema {
	t.schemaOnce.Do(func() {
		schema := generateSchema(t.funcName, t.description, t.schemaType)
		t.schema = &schema
	})
	return t.schema
}
