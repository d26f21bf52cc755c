package condition

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/gyaneshwarpardhi/formplugins/internal/form"
)

// Operator is a comparison operator id as authored in rule blocks.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNeq        Operator = "neq"
	OpIs         Operator = "is"
	OpNis        Operator = "nis"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpUt         Operator = "ut"
	OpUte        Operator = "ute"
	OpBt         Operator = "bt"
	OpBte        Operator = "bte"
	OpAt         Operator = "at"
	OpAte        Operator = "ate"
	OpContains   Operator = "ct"
	OpNContains  Operator = "nct"
	OpChecked    Operator = "c"
	OpNotChecked Operator = "nc"
)

var allOperators = []Operator{
	OpEq, OpNeq, OpIs, OpNis,
	OpLt, OpLte, OpUt, OpUte,
	OpBt, OpBte, OpAt, OpAte,
	OpContains, OpNContains,
	OpChecked, OpNotChecked,
}

// operatorsByKind lists the operators each field kind accepts. Temporal
// fields only support ordering.
var operatorsByKind = map[form.Kind][]Operator{
	form.KindText:         {OpEq, OpNeq, OpIs, OpNis, OpContains, OpNContains},
	form.KindNumber:       {OpEq, OpNeq, OpIs, OpNis, OpLt, OpLte, OpUt, OpUte},
	form.KindSingleChoice: {OpEq, OpNeq, OpIs, OpNis},
	form.KindMultiChoice:  {OpEq, OpNeq, OpIs, OpNis, OpContains, OpNContains},
	form.KindTemporal:     {OpBt, OpBte, OpAt, OpAte},
	form.KindCheckbox:     {OpChecked, OpNotChecked},
}

// Valid reports whether o is a known operator id.
func (o Operator) Valid() bool { return slices.Contains(allOperators, o) }

// Operators returns every known operator id.
func Operators() []Operator { return slices.Clone(allOperators) }

// OperatorsFor returns the operators usable on fields of kind k.
func OperatorsFor(k form.Kind) []Operator { return slices.Clone(operatorsByKind[k]) }

// Supports reports whether op can be applied to a field of kind k.
func Supports(k form.Kind, op Operator) bool {
	return slices.Contains(operatorsByKind[k], op)
}

func checkSupported(t form.FieldType, op Operator) error {
	if !Supports(t.Kind(), op) {
		return errors.Wrapf(ErrOperatorNotSupported, "%s on %s field", op, t)
	}
	return nil
}

// -----------------------------------------------------------------------
// Comparisons, one per operand shape. Callers check applicability first.
// -----------------------------------------------------------------------

func compareStrings(op Operator, l, r string) bool {
	switch op {
	case OpEq, OpIs:
		return l == r
	case OpNeq, OpNis:
		return l != r
	case OpContains:
		return strings.Contains(l, r)
	case OpNContains:
		return !strings.Contains(l, r)
	}
	return false
}

func compareNumbers(op Operator, l, r float64) bool {
	switch op {
	case OpEq, OpIs:
		return l == r
	case OpNeq, OpNis:
		return l != r
	case OpLt:
		return l < r
	case OpLte:
		return l <= r
	case OpUt:
		return l > r
	case OpUte:
		return l >= r
	}
	return false
}

func compareTimestamps(op Operator, l, r int64) bool {
	switch op {
	case OpBt:
		return l < r
	case OpBte:
		return l <= r
	case OpAt:
		return l > r
	case OpAte:
		return l >= r
	}
	return false
}

// compareSelection compares a multi-choice selection with one label:
// contains is membership, equality means exactly that single selection.
func compareSelection(op Operator, l []string, r string) bool {
	switch op {
	case OpEq, OpIs:
		return len(l) == 1 && l[0] == r
	case OpNeq, OpNis:
		return !(len(l) == 1 && l[0] == r)
	case OpContains:
		return slices.Contains(l, r)
	case OpNContains:
		return !slices.Contains(l, r)
	}
	return false
}

func compareChecked(op Operator, l bool) bool {
	switch op {
	case OpChecked:
		return l
	case OpNotChecked:
		return !l
	}
	return false
}
