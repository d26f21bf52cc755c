package condition

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/gyaneshwarpardhi/formplugins/internal/form"
	"github.com/gyaneshwarpardhi/formplugins/internal/metrics"
)

// Evaluator walks rule trees against cleaned submitted values.
//
// A failing comparison (missing value, bad coercion, unsupported operator,
// non-numeric literal) is logged and evaluates to false, so a broken rule
// hides its field instead of exposing it. A leaf whose target is not in the
// catalog is false as well, unless Strict is set, in which case Evaluate
// returns an error wrapping ErrUnknownField.
type Evaluator struct {
	Logger *slog.Logger
	Now    func() time.Time
	Strict bool
}

// NewEvaluator returns a lenient evaluator using the default logger and the
// wall clock.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{Logger: logger, Now: time.Now}
}

// Evaluate returns the truth value of n. A nil node is true.
func (e *Evaluator) Evaluate(n Node, values form.Values, c *form.Catalog) (bool, error) {
	switch x := n.(type) {
	case nil:
		return true, nil
	case *Composite:
		return e.evalComposite(x, values, c)
	case *Leaf:
		return e.evalLeaf(x, values, c)
	default:
		return false, errors.Newf("unknown rule node %T", n)
	}
}

func (e *Evaluator) evalComposite(n *Composite, values form.Values, c *form.Catalog) (bool, error) {
	for _, child := range n.Children {
		ok, err := e.Evaluate(child, values, c)
		if err != nil {
			return false, err
		}
		switch n.Connective {
		case And:
			if !ok {
				return false, nil // short-circuit
			}
		case Or:
			if ok {
				return true, nil // short-circuit
			}
		default:
			return false, errors.Wrapf(ErrMalformedRule, "unknown connective %q", n.Connective)
		}
	}
	return n.Connective == And, nil
}

func (e *Evaluator) evalLeaf(l *Leaf, values form.Values, c *form.Catalog) (bool, error) {
	f, ok := c.ByBlockID(l.Target)
	if !ok {
		err := errors.Wrapf(ErrUnknownField, "target %q", l.Target)
		if e.Strict {
			return false, err
		}
		e.leafFailed(l, "unknown", err)
		return false, nil
	}
	res, err := e.Compare(f, l.Operator, values, l.Value)
	if err != nil {
		e.leafFailed(l, f.Type.Kind().String(), errors.Wrapf(err, "field %s", f.Slug))
		return false, nil
	}
	return res, nil
}

// Compare applies op to the value submitted for f and the literal, with the
// coercion rules of f's kind.
func (e *Evaluator) Compare(f *form.Field, op Operator, values form.Values, lit Literal) (bool, error) {
	if err := checkSupported(f.Type, op); err != nil {
		return false, err
	}
	v, ok := values[f.Slug]
	if !ok {
		return false, ErrMissingValue
	}

	switch f.Type.Kind() {
	case form.KindText:
		l, err := leftString(v)
		if err != nil {
			return false, err
		}
		return compareStrings(op, l, lit.Char), nil

	case form.KindNumber:
		r, err := rightNumber(lit)
		if err != nil {
			return false, err
		}
		l, err := leftNumber(v)
		if err != nil {
			return false, err
		}
		return compareNumbers(op, l, r), nil

	case form.KindSingleChoice:
		l, err := leftString(v)
		if err != nil {
			return false, err
		}
		return compareStrings(op, choiceLabel(f, l), choiceLabel(f, lit.Dropdown)), nil

	case form.KindMultiChoice:
		l, err := leftSelection(f, v)
		if err != nil {
			return false, err
		}
		return compareSelection(op, l, choiceLabel(f, lit.Dropdown)), nil

	case form.KindTemporal:
		r, err := rightTimestamp(f.Type, lit, e.now())
		if err != nil {
			return false, err
		}
		l, err := leftTimestamp(f.Type, v)
		if err != nil {
			return false, err
		}
		return compareTimestamps(op, l, r), nil

	case form.KindCheckbox:
		return compareChecked(op, leftBool(v)), nil
	}
	return false, errors.Wrapf(ErrOperatorNotSupported, "%s field", f.Type)
}

func (e *Evaluator) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Evaluator) leafFailed(l *Leaf, kind string, err error) {
	metrics.RuleLeafErrors.WithLabelValues(kind).Inc()
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("rule comparison failed, treating as false",
		"target", l.Target, "operator", l.Operator, "err", err)
}

// Validate statically checks n against the catalog: every target must
// resolve, every operator must suit its field and every literal must coerce.
// All problems are returned joined.
func Validate(n Node, c *form.Catalog) error {
	var errs []error
	var walk func(Node, string)
	walk = func(n Node, path string) {
		switch x := n.(type) {
		case *Composite:
			if len(x.Children) == 0 {
				errs = append(errs, errors.Wrapf(ErrMalformedRule, "%s: empty %q group", path, x.Connective))
			}
			for i, child := range x.Children {
				walk(child, fmt.Sprintf("%s.%s[%d]", path, x.Connective, i))
			}
		case *Leaf:
			if err := validateLeaf(x, c); err != nil {
				errs = append(errs, errors.Wrapf(err, "%s", path))
			}
		}
	}
	walk(n, "rule")
	return errors.Join(errs...)
}

func validateLeaf(l *Leaf, c *form.Catalog) error {
	f, ok := c.ByBlockID(l.Target)
	if !ok {
		return errors.Wrapf(ErrUnknownField, "target %q", l.Target)
	}
	if err := checkSupported(f.Type, l.Operator); err != nil {
		return err
	}
	switch f.Type.Kind() {
	case form.KindNumber:
		if _, err := rightNumber(l.Value); err != nil {
			return err
		}
	case form.KindTemporal:
		if _, err := rightTimestamp(f.Type, l.Value, time.Now()); err != nil {
			return err
		}
	}
	return nil
}
