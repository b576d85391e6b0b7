package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lookupParams mirrors the shape of a typical support tool's arguments.
type lookupParams struct {
	Query   string   `json:"query" description:"What to look for"`
	Limit   int      `json:"limit,omitempty"`
	Exact   bool     `json:"exact"`
	Tags    []string `json:"tags,omitempty"`
	private string
}

func echoLookup(r Runner, p lookupParams) Result {
	return Success("Lookup", map[string]any{
		"query": p.Query,
		"limit": p.Limit,
		"exact": p.Exact,
	})
}

func TestGenerateSchema(t *testing.T) {
	schema := generateSchema("lookup", "Looks things up", reflect.TypeOf(lookupParams{}))

	expected := map[string]any{
		"name":        "lookup",
		"description": "Looks things up",
		"parameters": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "What to look for"},
				"limit": map[string]any{"type": "integer"},
				"exact": map[string]any{"type": "boolean"},
				"tags":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []string{"query", "exact"},
		},
	}

	actualJSON, err := json.Marshal(schema)
	require.NoError(t, err)
	expectedJSON, err := json.Marshal(expected)
	require.NoError(t, err)
	assert.JSONEq(t, string(expectedJSON), string(actualJSON))
}

func TestToolRun(t *testing.T) {
	lookup := Func("Lookup", "Looks things up", "lookup", echoLookup)

	t.Run("valid input", func(t *testing.T) {
		result := lookup.Run(NopRunner, json.RawMessage(`{"query":"pricing","limit":3,"exact":false}`))
		require.NoError(t, result.Error())
		assert.JSONEq(t, `{"query":"pricing","limit":3,"exact":false}`, string(result.JSON()))
	})

	t.Run("optional field absent", func(t *testing.T) {
		result := lookup.Run(NopRunner, json.RawMessage(`{"query":"pricing","exact":true}`))
		require.NoError(t, result.Error())
		assert.JSONEq(t, `{"query":"pricing","limit":0,"exact":true}`, string(result.JSON()))
	})

	t.Run("missing required field", func(t *testing.T) {
		result := lookup.Run(NopRunner, json.RawMessage(`{"query":"pricing"}`))
		require.Error(t, result.Error())
		assert.Contains(t, result.Error().Error(), "missing required field: exact")
		assert.ErrorIs(t, result.Error(), ErrInvalidArguments)
		assert.Nil(t, result.Output())
	})

	t.Run("type mismatch", func(t *testing.T) {
		result := lookup.Run(NopRunner, json.RawMessage(`{"query":"pricing","exact":"yes"}`))
		require.Error(t, result.Error())
		assert.Contains(t, result.Error().Error(), "type mismatch")
	})

	t.Run("array items are validated", func(t *testing.T) {
		result := lookup.Run(NopRunner, json.RawMessage(`{"query":"pricing","exact":true,"tags":["a",1]}`))
		require.Error(t, result.Error())
		assert.Contains(t, result.Error().Error(), "tags: type mismatch")
	})

	t.Run("not an object", func(t *testing.T) {
		for _, params := range []string{`[1,2]`, `"pricing"`, `null`} {
			result := lookup.Run(NopRunner, json.RawMessage(params))
			require.Error(t, result.Error(), params)
			assert.Contains(t, result.Error().Error(), "expected an object")
		}
	})

	t.Run("missing arguments count as an empty object", func(t *testing.T) {
		type optionalParams struct {
			Query string `json:"query,omitempty"`
		}
		optional := Func("Optional", "All optional", "optional", func(r Runner, p optionalParams) Result {
			return Success("Optional", p.Query)
		})
		result := optional.Run(NopRunner, nil)
		require.NoError(t, result.Error())
		assert.Equal(t, "", result.Output())

		result = lookup.Run(NopRunner, nil)
		assert.ErrorIs(t, result.Error(), ErrInvalidArguments)
	})

	t.Run("unexpected fields are ignored", func(t *testing.T) {
		result := lookup.Run(NopRunner, json.RawMessage(`{"query":"pricing","exact":true,"locale":"sv"}`))
		require.NoError(t, result.Error())
	})
}

func TestFuncRequiresStructParams(t *testing.T) {
	assert.Panics(t, func() {
		Func("Bad", "Bad", "bad", func(r Runner, p string) Result { return Success("Bad", p) })
	})
}

func TestRunnerReport(t *testing.T) {
	var statuses []string
	r := NewRunner(context.Background(), func(status string) {
		statuses = append(statuses, status)
	})
	reporting := Func("Reporting", "Reports progress", "reporting", func(r Runner, p lookupParams) Result {
		r.Report("searching")
		r.Report("done")
		return Success("Reporting", p.Query)
	})

	result := reporting.Run(r, json.RawMessage(`{"query":"refunds","exact":true}`))

	require.NoError(t, result.Error())
	assert.Equal(t, []string{"searching", "done"}, statuses)
	assert.Equal(t, "refunds", result.Output())
}

func TestToolboxInvoke(t *testing.T) {
	failing := Func("Failing", "Always fails", "failing", func(r Runner, p lookupParams) Result {
		return Error("Failing", fmt.Errorf("backend unavailable for %q", p.Query))
	})
	box := Box(Func("Lookup", "Looks things up", "lookup", echoLookup), failing)

	t.Run("success", func(t *testing.T) {
		output, err := box.Invoke(context.Background(), "lookup", json.RawMessage(`{"query":"q","exact":true}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"query": "q", "limit": 0, "exact": true}, output)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := box.Invoke(context.Background(), "missing", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("tool error", func(t *testing.T) {
		_, err := box.Invoke(context.Background(), "failing", json.RawMessage(`{"query":"q","exact":true}`))
		require.Error(t, err)
		assert.Equal(t, `backend unavailable for "q"`, err.Error())
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := box.Invoke(ctx, "lookup", json.RawMessage(`{"query":"q","exact":true}`))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("reports are forwarded", func(t *testing.T) {
		reporting := Box(Func("Reporting", "Reports", "reporting", func(r Runner, p lookupParams) Result {
			r.Report("working on " + p.Query)
			return Success("Reporting", nil)
		}))
		var got []string
		reporting.OnReport(func(funcName, status string) {
			got = append(got, funcName+": "+status)
		})
		_, err := reporting.Invoke(context.Background(), "reporting", json.RawMessage(`{"query":"q","exact":true}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"reporting: working on q"}, got)

		var fromContext []string
		ctx := WithReport(context.Background(), func(status string) {
			fromContext = append(fromContext, status)
		})
		_, err = reporting.Invoke(ctx, "reporting", json.RawMessage(`{"query":"r","exact":true}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"working on r"}, fromContext)
	})
}

func TestToolboxDuplicatePanics(t *testing.T) {
	lookup := Func("Lookup", "Looks things up", "lookup", echoLookup)
	box := Box(lookup)
	assert.Panics(t, func() { box.Add(lookup) })
}

func TestToolboxSchemaIsSorted(t *testing.T) {
	box := Box(
		Func("Zeta", "z", "zeta", echoLookup),
		Func("Alpha", "a", "alpha", echoLookup),
	)
	schemas := box.Schema()
	require.Len(t, schemas, 2)
	assert.Equal(t, "alpha", schemas[0].Name)
	assert.Equal(t, "zeta", schemas[1].Name)
}
