package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrNotFound is returned by Invoke when no tool has the requested name.
var ErrNotFound = errors.New("tool not found")

type Toolbox struct {
	tools  map[string]Tool
	report func(funcName, status string)
}

// Box returns a new Toolbox containing the given tools.
func Box(tools ...Tool) *Toolbox {
	t := &Toolbox{
		tools: make(map[string]Tool),
	}
	for _, tool := range tools {
		t.Add(tool)
	}
	return t
}

// Add adds a tool to the toolbox.
func (t *Toolbox) Add(tool Tool) {
	funcName := tool.FuncName()
	if _, ok := t.tools[funcName]; ok {
		panic(fmt.Sprintf("tool %q already exists", funcName))
	}
	t.tools[funcName] = tool
}

// OnReport sets a function that receives status reports from running tools.
func (t *Toolbox) OnReport(fn func(funcName, status string)) {
	t.report = fn
}

// Get returns the tool with the given function name.
func (t *Toolbox) Get(funcName string) Tool {
	if t == nil {
		return nil
	}
	return t.tools[funcName]
}

// All returns the tools sorted by function name.
func (t *Toolbox) All() []Tool {
	if t == nil {
		return nil
	}
	names := slices.Sorted(maps.Keys(t.tools))
	tools := make([]Tool, len(names))
	for i, name := range names {
		tools[i] = t.tools[name]
	}
	return tools
}

// Run runs the tool with the given name and parameters, which should be provided as a JSON string.
func (t *Toolbox) Run(r Runner, funcName string, params json.RawMessage) Result {
	tool := t.Get(funcName)
	if tool == nil {
		err := fmt.Errorf("%w: %q", ErrNotFound, funcName)
		return Error(err.Error(), err)
	}
	return tool.Run(r, params)
}

// Invoke runs a tool and returns its output, or the error it failed with.
// A missing tool is reported as ErrNotFound.
func (t *Toolbox) Invoke(ctx context.Context, funcName string, params json.RawMessage) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	fromContext := reportFromContext(ctx)
	runner := NewRunner(ctx, func(status string) {
		if t.report != nil {
			t.report(funcName, status)
		}
		if fromContext != nil {
			fromContext(status)
		}
	})
	result := t.Run(runner, funcName, params)
	if err := result.Error(); err != nil {
		return nil, err
	}
	return result.Output(), nil
}

// Schema returns the JSON schema for all tools in the toolbox.
func (t *Toolbox) Schema() []Schema {
	tools := []Schema{}
	for _, tool := range t.All() {
		tools = append(tools, *tool.Schema())
	}
	return tools
}
