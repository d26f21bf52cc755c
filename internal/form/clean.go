package form

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// FieldErrors maps field slugs to a user-facing validation message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

type cleanFunc func(f *Field, raw any) (any, error)

// cleaners is the single creation table keyed by field type.
var cleaners = map[FieldType]cleanFunc{
	TypeSingleLine:  cleanText,
	TypeMultiLine:   cleanText,
	TypeHidden:      cleanText,
	TypeFile:        cleanText,
	TypeEmail:       cleanEmail,
	TypeURL:         cleanURL,
	TypeNumber:      cleanNumber,
	TypeCheckbox:    cleanCheckbox,
	TypeDropdown:    cleanChoice,
	TypeRadio:       cleanChoice,
	TypeCheckboxes:  cleanChoices,
	TypeMultiSelect: cleanChoices,
	TypeDate:        cleanDate,
	TypeTime:        cleanTime,
	TypeDateTime:    cleanDateTime,
	TypeLabel:       func(*Field, any) (any, error) { return nil, nil },
}

// Clean converts raw submitted data into typed values, one entry per field of
// the catalog. Values for unknown slugs are ignored.
func Clean(c *Catalog, raw map[string]any) (Values, FieldErrors) {
	out := make(Values, c.Len())
	errs := FieldErrors{}
	for _, f := range c.Fields() {
		fn, ok := cleaners[f.Type]
		if !ok {
			errs[f.Slug] = fmt.Sprintf("unsupported field type %q", f.Type)
			continue
		}
		v, err := fn(f, raw[f.Slug])
		if err != nil {
			errs[f.Slug] = err.Error()
			continue
		}
		out[f.Slug] = v
	}
	if len(errs) == 0 {
		return out, nil
	}
	return out, errs
}

// IsEmpty reports whether a cleaned value counts as "not provided".
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []string:
		return len(x) == 0
	case bool:
		return !x
	}
	return false
}

func single(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case []string:
		if len(v) == 0 {
			return "", nil
		}
		return strings.TrimSpace(v[len(v)-1]), nil
	case []any:
		if len(v) == 0 {
			return "", nil
		}
		return single(v[len(v)-1])
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", errors.Newf("unexpected value of type %T", raw)
}

func cleanText(_ *Field, raw any) (any, error) {
	return single(raw)
}

func cleanEmail(_ *Field, raw any) (any, error) {
	s, err := single(raw)
	if err != nil || s == "" {
		return s, err
	}
	if err := validate.Var(s, "email"); err != nil {
		return nil, errors.New("Enter a valid email address.")
	}
	return s, nil
}

func cleanURL(_ *Field, raw any) (any, error) {
	s, err := single(raw)
	if err != nil || s == "" {
		return s, err
	}
	if err := validate.Var(s, "url"); err != nil {
		return nil, errors.New("Enter a valid URL.")
	}
	return s, nil
}

func cleanNumber(_ *Field, raw any) (any, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	s, err := single(raw)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("Enter a number.")
	}
	return f, nil
}

func cleanCheckbox(_ *Field, raw any) (any, error) {
	if b, ok := raw.(bool); ok {
		return b, nil
	}
	s, err := single(raw)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(s) {
	case "", "false", "0", "off", "no":
		return false, nil
	}
	return true, nil
}

func choiceKey(f *Field, s string) (string, error) {
	for _, c := range f.Choices {
		if c.Key == s {
			return c.Key, nil
		}
	}
	for _, c := range f.Choices {
		if c.Label == s {
			return c.Key, nil
		}
	}
	return "", errors.Newf("Select a valid choice. %s is not one of the available choices.", s)
}

func cleanChoice(f *Field, raw any) (any, error) {
	s, err := single(raw)
	if err != nil || s == "" {
		return s, err
	}
	return choiceKey(f, s)
}

func cleanChoices(f *Field, raw any) (any, error) {
	var items []string
	switch v := raw.(type) {
	case nil:
	case []string:
		items = v
	case []any:
		for _, it := range v {
			s, err := single(it)
			if err != nil {
				return nil, err
			}
			items = append(items, s)
		}
	default:
		s, err := single(raw)
		if err != nil {
			return nil, err
		}
		if s != "" {
			items = strings.Split(s, ",")
		}
	}
	keys := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		k, err := choiceKey(f, it)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func cleanTemporal(raw any, parse func(string) (time.Time, error), msg string) (any, error) {
	if t, ok := raw.(time.Time); ok {
		return t, nil
	}
	s, err := single(raw)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	t, err := parse(s)
	if err != nil {
		return nil, errors.New(msg)
	}
	return t, nil
}

func cleanDate(_ *Field, raw any) (any, error) {
	return cleanTemporal(raw, ParseDate, "Enter a valid date.")
}

func cleanTime(_ *Field, raw any) (any, error) {
	return cleanTemporal(raw, ParseTime, "Enter a valid time.")
}

func cleanDateTime(_ *Field, raw any) (any, error) {
	return cleanTemporal(raw, ParseDateTime, "Enter a valid date/time.")
}
