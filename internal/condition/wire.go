package condition

import (
	"encoding/json"

	"github.com/gyaneshwarpardhi/formplugins/internal/form"
)

// WireEntry is a leaf as consumed by the client-side visibility script.
type WireEntry struct {
	Target string   `json:"target"`
	Val    any      `json:"val"`
	Opr    Operator `json:"opr"`
}

type wireLeaf struct {
	Entry WireEntry `json:"entry"`
}

// Wire converts n to the shape the front-end script expects:
// {"entry":{"target","val","opr"}} for leaves, {"and":[...]} or {"or":[...]}
// for groups, and {} when there is no rule.
func Wire(n Node) any {
	switch x := n.(type) {
	case *Leaf:
		return wireLeaf{Entry: WireEntry{Target: x.Target, Val: wireValue(x.Value), Opr: x.Operator}}
	case *Composite:
		children := make([]any, 0, len(x.Children))
		for _, c := range x.Children {
			children = append(children, Wire(c))
		}
		return map[string][]any{string(x.Connective): children}
	}
	return map[string]any{}
}

// MarshalWire returns the JSON encoding of Wire(n).
func MarshalWire(n Node) ([]byte, error) {
	return json.Marshal(Wire(n))
}

// wireValue picks the populated literal slot. Temporal literals are sent as
// epoch seconds so the client compares numbers only.
func wireValue(lit Literal) any {
	for _, slot := range []struct {
		t form.FieldType
		s string
	}{
		{form.TypeDate, lit.Date},
		{form.TypeTime, lit.Time},
		{form.TypeDateTime, lit.DateTime},
	} {
		if slot.s == "" {
			continue
		}
		if ts, err := form.Timestamp(slot.t, slot.s); err == nil {
			return ts
		}
		return slot.s
	}
	switch {
	case lit.Dropdown != "":
		return lit.Dropdown
	case lit.Number != "":
		if f, err := lit.Number.Float(); err == nil {
			return f
		}
		return string(lit.Number)
	}
	return lit.Char
}
