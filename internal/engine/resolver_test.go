package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/promptlib/internal/domain"
)

func boolPtr(b bool) *bool { return &b }

func TestResolve_Default(t *testing.T) {
	defs := map[string]domain.VariableDefinition{
		"lang": {Name: "lang", Default: "Python"},
	}

	resolved, err := Resolve([]string{"lang"}, map[string]any{}, defs)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"lang": "Python"}, resolved)

	resolved, err = Resolve([]string{"lang"}, map[string]any{"lang": "Rust"}, defs)
	require.NoError(t, err)
	assert.Equal(t, "Rust", resolved["lang"])
}

func TestResolve_Optional(t *testing.T) {
	defs := map[string]domain.VariableDefinition{
		"note": {Name: "note", Required: boolPtr(false)},
	}

	resolved, err := Resolve([]string{"note"}, nil, defs)
	require.NoError(t, err)
	assert.Equal(t, "", resolved["note"])
}

func TestResolve_Missing(t *testing.T) {
	tests := []struct {
		name string
		defs map[string]domain.VariableDefinition
	}{
		{name: "no definition", defs: nil},
		{name: "required without default", defs: map[string]domain.VariableDefinition{"code": {Name: "code"}}},
		{name: "explicitly required", defs: map[string]domain.VariableDefinition{"code": {Name: "code", Required: boolPtr(true)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve([]string{"code"}, map[string]any{"other": 1}, tt.defs)
			require.ErrorIs(t, err, ErrMissingVariable)

			var verr *VariableError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "code", verr.Name)
		})
	}
}

func TestResolve_Number(t *testing.T) {
	defs := map[string]domain.VariableDefinition{
		"n": {Name: "n", Type: domain.VariableTypeNumber},
	}

	for _, in := range []any{"3.5", 3.5, 7, " 2 "} {
		resolved, err := Resolve([]string{"n"}, map[string]any{"n": in}, defs)
		require.NoError(t, err)
		assert.IsType(t, float64(0), resolved["n"])
	}

	_, err := Resolve([]string{"n"}, map[string]any{"n": "abc"}, defs)
	require.ErrorIs(t, err, ErrInvalidVariableType)
}

func TestResolve_NumberIntegerKinds(t *testing.T) {
	defs := map[string]domain.VariableDefinition{
		"n": {Name: "n", Type: domain.VariableTypeNumber},
	}

	for _, in := range []any{int8(-3), int16(300), int32(7), uint8(3), uint16(7), uint32(70000), uint64(9), json.Number("4.25")} {
		resolved, err := Resolve([]string{"n"}, map[string]any{"n": in}, defs)
		require.NoError(t, err, "%T", in)
		assert.IsType(t, float64(0), resolved["n"])
	}

	resolved, err := Resolve([]string{"n"}, map[string]any{"n": uint16(7)}, defs)
	require.NoError(t, err)
	assert.Equal(t, float64(7), resolved["n"])

	_, err = Resolve([]string{"n"}, map[string]any{"n": []int{1}}, defs)
	require.ErrorIs(t, err, ErrInvalidVariableType)
}

func TestResolve_Boolean(t *testing.T) {
	defs := map[string]domain.VariableDefinition{
		"flag": {Name: "flag", Type: domain.VariableTypeBoolean},
	}

	tests := []struct {
		in       any
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"Yes", true},
		{"no", false},
		{"anything", false},
		{true, true},
		{false, false},
	}

	for _, tt := range tests {
		resolved, err := Resolve([]string{"flag"}, map[string]any{"flag": tt.in}, defs)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, resolved["flag"], "input %v", tt.in)
	}
}

func TestResolve_Pattern(t *testing.T) {
	defs := map[string]domain.VariableDefinition{
		"lang": {Name: "lang", Pattern: "^[a-z]+$"},
	}

	_, err := Resolve([]string{"lang"}, map[string]any{"lang": "go"}, defs)
	require.NoError(t, err)

	_, err = Resolve([]string{"lang"}, map[string]any{"lang": "Go 1.24"}, defs)
	assert.ErrorIs(t, err, ErrPatternMismatch)
}

func TestResolve_KeepsExtraProvided(t *testing.T) {
	resolved, err := Resolve([]string{"a"}, map[string]any{"a": 1, "b": 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, resolved)
}

func TestValidateDefinitions(t *testing.T) {
	assert.NoError(t, ValidateDefinitions([]domain.VariableDefinition{
		{Name: "a", Type: domain.VariableTypeNumber},
		{Name: "b", Pattern: `^\d+$`},
	}))

	assert.ErrorIs(t, ValidateDefinitions([]domain.VariableDefinition{{Name: ""}}), ErrInvalidDefinition)
	assert.ErrorIs(t, ValidateDefinitions([]domain.VariableDefinition{{Name: "a"}, {Name: "a"}}), ErrInvalidDefinition)
	assert.ErrorIs(t, ValidateDefinitions([]domain.VariableDefinition{{Name: "a", Type: "date"}}), ErrInvalidDefinition)
	assert.ErrorIs(t, ValidateDefinitions([]domain.VariableDefinition{{Name: "a", Pattern: "("}}), ErrInvalidDefinition)
}
