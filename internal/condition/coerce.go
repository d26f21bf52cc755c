package condition

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/gyaneshwarpardhi/formplugins/internal/form"
)

// Left operands come from cleaned submitted values; right operands from the
// authored literal, typed by the controlling field.

func leftString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	}
	return "", errors.Wrapf(ErrCoercion, "expected text, got %T", v)
}

func leftNumber(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, ErrMissingValue
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, errors.Wrapf(ErrCoercion, "%q is not a number", x)
		}
		return f, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, ErrMissingValue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.Wrapf(ErrCoercion, "%q is not a number", x)
		}
		return f, nil
	}
	return 0, errors.Wrapf(ErrCoercion, "expected a number, got %T", v)
}

func leftBool(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "", "false", "0", "off", "no":
			return false
		}
		return true
	}
	return !form.IsEmpty(v)
}

// choiceLabel maps a choice key to its label, leaving stale keys untouched.
func choiceLabel(f *form.Field, key string) string {
	if l, ok := f.ChoiceLabel(key); ok {
		return l
	}
	return key
}

func leftSelection(f *form.Field, v any) ([]string, error) {
	var keys []string
	switch x := v.(type) {
	case nil:
	case []string:
		keys = x
	case []any:
		for _, it := range x {
			s, err := leftString(it)
			if err != nil {
				return nil, err
			}
			keys = append(keys, s)
		}
	case string:
		if x != "" {
			keys = []string{x}
		}
	default:
		return nil, errors.Wrapf(ErrCoercion, "expected a selection, got %T", v)
	}
	labels := make([]string, 0, len(keys))
	for _, k := range keys {
		labels = append(labels, choiceLabel(f, k))
	}
	return labels, nil
}

func leftTimestamp(t form.FieldType, v any) (int64, error) {
	if form.IsEmpty(v) {
		return 0, ErrMissingValue
	}
	ts, err := form.Timestamp(t, v)
	if err != nil {
		return 0, errors.Mark(err, ErrCoercion)
	}
	return ts, nil
}

func rightNumber(lit Literal) (float64, error) {
	f, err := lit.Number.Float()
	if err != nil {
		return 0, errors.Mark(errors.Wrap(err, "number literal"), ErrCoercion)
	}
	return f, nil
}

// rightTimestamp converts the temporal literal to epoch seconds. An empty
// literal means the current instant.
func rightTimestamp(t form.FieldType, lit Literal, now time.Time) (int64, error) {
	var s string
	switch t {
	case form.TypeDate:
		s = lit.Date
	case form.TypeTime:
		s = lit.Time
	case form.TypeDateTime:
		s = lit.DateTime
	}
	if strings.TrimSpace(s) == "" {
		return form.Timestamp(t, form.WallClock(now))
	}
	ts, err := form.Timestamp(t, s)
	if err != nil {
		return 0, errors.Mark(errors.Wrap(err, "temporal literal"), ErrCoercion)
	}
	return ts, nil
}
