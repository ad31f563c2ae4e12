package oracle

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/Feresey/metagraph/schema"
)

func testGraph(t *testing.T) (*schema.Graph, schema.Relationships) {
	t.Helper()
	g, err := schema.Build(
		[]schema.TableRecord{
			{Schema: "clinical", Table: "patient"},
			{Schema: "clinical", Table: "encounter"},
		},
		[]schema.ColumnRecord{
			{Schema: "clinical", Table: "patient", Column: schema.Column{Name: "patient_id", IsPrimaryKey: true}},
			{Schema: "clinical", Table: "encounter", Column: schema.Column{
				Name:         "patient_id",
				IsForeignKey: true,
				References:   &schema.Reference{Schema: "clinical", Table: "patient", Column: "patient_id"},
			}},
		},
	)
	require.NoError(t, err)
	rels, err := schema.Resolve(g)
	require.NoError(t, err)
	return g, rels
}

func TestLuaOracle(t *testing.T) {
	g, rels := testGraph(t)

	const script = `
function complete(prompt)
	local names = {}
	for key, _ in pairs(schema.tables) do
		table.insert(names, key)
	end
	table.sort(names)
	local edges = #relationships["clinical.encounter"]
	return '{"tables": ' .. #names .. ', "first": "' .. names[1] .. '", "edges": ' .. edges .. ', "prompt": "' .. prompt .. '"}'
end
`
	o, err := NewLua(zap.NewNop(), g, rels, strings.NewReader(script), "test.lua")
	require.NoError(t, err)
	t.Cleanup(o.Close)

	got, err := o.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tables": 2, "first": "clinical.encounter", "edges": 1, "prompt": "hi"}`, got)
}

func TestLuaOracleErrors(t *testing.T) {
	tests := []struct {
		name       string
		script     string
		wantNewErr bool
	}{
		{name: "syntax", script: "function complete(", wantNewErr: true},
		{name: "no function", script: "complete = 1", wantNewErr: true},
		{name: "runtime error", script: `function complete(p) error("nope") end`},
		{name: "wrong type", script: `function complete(p) return {} end`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := NewLua(zap.NewNop(), nil, nil, strings.NewReader(tt.script), tt.name)
			if tt.wantNewErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(o.Close)

			_, err = o.Complete(context.Background(), "x")
			var ce *CallError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "lua", ce.Provider)
		})
	}
}

func TestLuaOracleTimeout(t *testing.T) {
	o, err := NewLua(zap.NewNop(), nil, nil,
		strings.NewReader(`function complete(p) while true do end end`), "loop.lua")
	require.NoError(t, err)
	t.Cleanup(o.Close)

	_, err = WithTimeout(o, 50*time.Millisecond).Complete(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestLuaOracleScriptErrorWrapped(t *testing.T) {
	_, err := NewLua(zap.NewNop(), nil, nil, strings.NewReader(`error("boom")`), "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load lua oracle script: ")

	var apiErr *lua.ApiError
	assert.ErrorAs(t, err, &apiErr)
}
