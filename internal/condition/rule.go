package condition

import (
	"github.com/cockroachdb/errors"

	"github.com/gyaneshwarpardhi/formplugins/internal/form"
)

// -----------------------------------------------------------------------
// Rule tree
// -----------------------------------------------------------------------

// Node is the common interface for rule tree nodes: *Leaf or *Composite.
type Node interface {
	ruleNode()
}

// Connective joins the children of a Composite.
type Connective string

const (
	And Connective = "and"
	Or  Connective = "or"
)

// Composite is an AND / OR group over a non-empty list of children.
type Composite struct {
	Connective Connective
	Children   []Node
}

func (*Composite) ruleNode() {}

// Leaf compares the value submitted for Target (a field block id) with the
// literal held in Value.
type Leaf struct {
	Target   string
	Operator Operator
	Value    Literal
}

func (*Leaf) ruleNode() {}

// Literal holds the authored right operand. Only the slot matching the
// controlling field's type is meaningful.
type Literal struct {
	Char     string
	Number   form.Decimal
	Dropdown string
	Date     string
	Time     string
	DateTime string
}

// -----------------------------------------------------------------------
// Parsing
// -----------------------------------------------------------------------

// Parse builds a rule tree from an authored rule block. Blocks whose field
// is "and" or "or" become Composites; everything else is a Leaf.
func Parse(b form.RuleBlock) (Node, error) {
	switch Connective(b.Field) {
	case And, Or:
		if len(b.Rules) == 0 {
			return nil, errors.Wrapf(ErrMalformedRule, "%q group has no rules", b.Field)
		}
		c := &Composite{Connective: Connective(b.Field), Children: make([]Node, 0, len(b.Rules))}
		for i, entry := range b.Rules {
			child, err := Parse(entry.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "%s[%d]", b.Field, i)
			}
			c.Children = append(c.Children, child)
		}
		return c, nil
	}
	if b.Field == "" {
		return nil, errors.Wrap(ErrMalformedRule, "rule has no field")
	}
	op := Operator(b.Operator)
	if !op.Valid() {
		return nil, errors.Wrapf(ErrUnknownOperator, "%q", b.Operator)
	}
	return &Leaf{
		Target:   b.Field,
		Operator: op,
		Value: Literal{
			Char:     b.ValueChar,
			Number:   b.ValueNumber,
			Dropdown: b.ValueDropdown,
			Date:     b.ValueDate,
			Time:     b.ValueTime,
			DateTime: b.ValueDateTime,
		},
	}, nil
}

// ParseField parses the rule of f. It returns a nil Node when f has no rule.
// Only the first authored entry is used.
func ParseField(f *form.Field) (Node, error) {
	if !f.HasRule() {
		return nil, nil
	}
	n, err := Parse(f.Rule[0].Value)
	if err != nil {
		return nil, errors.Wrapf(err, "field %s", f.Slug)
	}
	return n, nil
}

// Controller returns the target of a top-level Leaf. Composites have no
// single controlling field.
func Controller(n Node) (string, bool) {
	if l, ok := n.(*Leaf); ok {
		return l.Target, true
	}
	return "", false
}

// Targets returns every leaf target of n, in tree order, without duplicates.
func Targets(n Node) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch x := n.(type) {
		case *Leaf:
			if !seen[x.Target] {
				seen[x.Target] = true
				out = append(out, x.Target)
			}
		case *Composite:
			for _, c := range x.Children {
				walk(c)
			}
		}
	}
	walk(n)
	return out
}
