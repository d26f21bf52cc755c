package condition

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/formplugins/internal/form"
)

const groupYAML = `
field: and
rules:
  - value:
      field: b-country
      operator: eq
      value_dropdown: c1
  - value:
      field: or
      rules:
        - value: {field: b-age, operator: ute, value_number: 18}
        - value: {field: b-born, operator: bt, value_date: "2000-01-01"}
`

func TestParse_Group(t *testing.T) {
	var block form.RuleBlock
	require.NoError(t, yaml.Unmarshal([]byte(groupYAML), &block))

	n, err := Parse(block)
	require.NoError(t, err)

	root, ok := n.(*Composite)
	require.True(t, ok, "root should be a group, got %T", n)
	assert.Equal(t, And, root.Connective)
	require.Len(t, root.Children, 2)

	first, ok := root.Children[0].(*Leaf)
	require.True(t, ok)
	assert.Equal(t, "b-country", first.Target)
	assert.Equal(t, OpEq, first.Operator)
	assert.Equal(t, "c1", first.Value.Dropdown)

	inner, ok := root.Children[1].(*Composite)
	require.True(t, ok)
	assert.Equal(t, Or, inner.Connective)
	assert.Equal(t, form.Decimal("18"), inner.Children[0].(*Leaf).Value.Number)

	assert.Equal(t, []string{"b-country", "b-age", "b-born"}, Targets(n))
	_, hasController := Controller(n)
	assert.False(t, hasController)
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name  string
		block form.RuleBlock
		want  error
	}{
		{"empty group", form.RuleBlock{Field: "or"}, ErrMalformedRule},
		{"no field", form.RuleBlock{Operator: "eq"}, ErrMalformedRule},
		{"unknown operator", form.RuleBlock{Field: "b-1", Operator: "=="}, ErrUnknownOperator},
		{"nested unknown operator", form.RuleBlock{Field: "and", Rules: []form.RuleEntry{
			{Value: form.RuleBlock{Field: "b-1", Operator: "eq"}},
			{Value: form.RuleBlock{Field: "b-2", Operator: "gt"}},
		}}, ErrUnknownOperator},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.block)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestParseField(t *testing.T) {
	f := &form.Field{Slug: "region"}
	n, err := ParseField(f)
	require.NoError(t, err)
	assert.Nil(t, n)

	f.Rule = []form.RuleEntry{{Type: "rule", Value: form.RuleBlock{Field: "b-country", Operator: "eq", ValueDropdown: "c1"}}}
	n, err = ParseField(f)
	require.NoError(t, err)
	target, ok := Controller(n)
	assert.True(t, ok)
	assert.Equal(t, "b-country", target)
}

func TestWire(t *testing.T) {
	var block form.RuleBlock
	require.NoError(t, yaml.Unmarshal([]byte(groupYAML), &block))
	n, err := Parse(block)
	require.NoError(t, err)

	b, err := MarshalWire(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"and":[
		{"entry":{"target":"b-country","val":"c1","opr":"eq"}},
		{"or":[
			{"entry":{"target":"b-age","val":18,"opr":"ute"}},
			{"entry":{"target":"b-born","val":946684800,"opr":"bt"}}
		]}
	]}`, string(b))
}

func TestWire_Values(t *testing.T) {
	cases := []struct {
		name string
		node Node
		want string
	}{
		{"no rule", nil, `{}`},
		{"char", leaf("b-1", OpContains, Literal{Char: "abc"}), `{"entry":{"target":"b-1","val":"abc","opr":"ct"}}`},
		{"time", leaf("b-1", OpAt, Literal{Time: "01:00"}), `{"entry":{"target":"b-1","val":3600,"opr":"at"}}`},
		{"datetime", leaf("b-1", OpAt, Literal{DateTime: "1970-01-02T00:00:00Z"}), `{"entry":{"target":"b-1","val":86400,"opr":"at"}}`},
		{"checkbox", leaf("b-1", OpChecked, Literal{}), `{"entry":{"target":"b-1","val":"","opr":"c"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := MarshalWire(tc.node)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(b))
		})
	}
}
