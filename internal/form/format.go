package form

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatValue renders a cleaned value for humans (result tables, e-mails).
// The second return is false when the value should not be displayed: nil,
// empty text and an unselected choice.
func FormatValue(f *Field, v any, html bool) (string, bool) {
	if v == nil {
		return "", false
	}
	switch f.Type.Kind() {
	case KindMultiChoice:
		keys, _ := v.([]string)
		labels := make([]string, 0, len(keys))
		for _, k := range keys {
			if l, ok := f.ChoiceLabel(k); ok {
				labels = append(labels, l)
			}
		}
		if len(labels) == 0 {
			return "", false
		}
		return formatChoices(labels, html), true
	case KindSingleChoice:
		s, _ := v.(string)
		if s == "" {
			return "", false
		}
		if l, ok := f.ChoiceLabel(s); ok {
			return l, true
		}
		return s, true
	case KindTemporal:
		return formatTemporal(f.Type, v), true
	case KindNumber:
		if x, ok := v.(float64); ok {
			return strconv.FormatFloat(x, 'f', -1, 64), true
		}
	case KindCheckbox:
		if b, _ := v.(bool); b {
			return "✔", true
		}
		return "✘", true
	}
	s := fmt.Sprint(v)
	if s == "" {
		return "", false
	}
	if f.Type == TypeMultiLine {
		if html {
			return "<br/>" + s, true
		}
		return "\n" + s, true
	}
	return s, true
}

func formatChoices(labels []string, html bool) string {
	if len(labels) == 0 {
		return ""
	}
	if html {
		return "<ul><li>" + strings.Join(labels, "</li><li>") + "</li></ul>"
	}
	return strings.Join(labels, ", ")
}

func formatTemporal(t FieldType, v any) string {
	tm, ok := v.(time.Time)
	if !ok {
		s := fmt.Sprint(v)
		parsed, err := ParseTemporal(t, s)
		if err != nil {
			return s
		}
		tm = parsed
	}
	switch t {
	case TypeDate:
		return tm.Format(displayDate)
	case TypeTime:
		return tm.Format(displayTime)
	}
	return tm.Format(displayDateTime)
}
