package form

// FieldType is the declared type of a form field.
type FieldType string

const (
	TypeSingleLine  FieldType = "singleline"
	TypeMultiLine   FieldType = "multiline"
	TypeEmail       FieldType = "email"
	TypeNumber      FieldType = "number"
	TypeURL         FieldType = "url"
	TypeCheckbox    FieldType = "checkbox"
	TypeCheckboxes  FieldType = "checkboxes"
	TypeDropdown    FieldType = "dropdown"
	TypeMultiSelect FieldType = "multiselect"
	TypeRadio       FieldType = "radio"
	TypeDate        FieldType = "date"
	TypeTime        FieldType = "time"
	TypeDateTime    FieldType = "datetime"
	TypeHidden      FieldType = "hidden"
	TypeFile        FieldType = "file"
	TypeLabel       FieldType = "label"
)

// Kind groups field types that share coercion and comparison rules.
type Kind int

const (
	KindNone Kind = iota
	KindText
	KindNumber
	KindSingleChoice
	KindMultiChoice
	KindTemporal
	KindCheckbox
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindSingleChoice:
		return "single-choice"
	case KindMultiChoice:
		return "multi-choice"
	case KindTemporal:
		return "temporal"
	case KindCheckbox:
		return "checkbox"
	}
	return "none"
}

var kinds = map[FieldType]Kind{
	TypeSingleLine:  KindText,
	TypeMultiLine:   KindText,
	TypeEmail:       KindText,
	TypeURL:         KindText,
	TypeHidden:      KindText,
	TypeNumber:      KindNumber,
	TypeDropdown:    KindSingleChoice,
	TypeRadio:       KindSingleChoice,
	TypeCheckboxes:  KindMultiChoice,
	TypeMultiSelect: KindMultiChoice,
	TypeDate:        KindTemporal,
	TypeTime:        KindTemporal,
	TypeDateTime:    KindTemporal,
	TypeCheckbox:    KindCheckbox,
	TypeFile:        KindNone,
	TypeLabel:       KindNone,
}

// Kind returns the coercion kind of t. Unknown types map to KindNone.
func (t FieldType) Kind() Kind { return kinds[t] }

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	_, ok := kinds[t]
	return ok
}

// HasChoices reports whether the field carries a choice list.
func (t FieldType) HasChoices() bool {
	k := t.Kind()
	return k == KindSingleChoice || k == KindMultiChoice
}

// Choice is one entry of a choice-bearing field.
type Choice struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Default bool   `json:"default,omitempty"`
}

// Field describes one field of a form. It is built once per request from the
// authored field list and never mutated afterwards.
type Field struct {
	Slug     string
	BlockID  string
	Type     FieldType
	Label    string
	HelpText string
	Required bool
	Disabled bool
	Initial  string
	Choices  []Choice
	Options  map[string]any
	Rule     []RuleEntry
}

// ChoiceLabel returns the label for key, if key is one of the field choices.
func (f *Field) ChoiceLabel(key string) (string, bool) {
	for _, c := range f.Choices {
		if c.Key == key {
			return c.Label, true
		}
	}
	return "", false
}

// HasRule reports whether the field has an authored visibility rule.
func (f *Field) HasRule() bool { return len(f.Rule) > 0 }
