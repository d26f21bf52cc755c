package form

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// RawField is one field as serialized by the form-authoring collaborator.
type RawField struct {
	ID    string        `yaml:"id" json:"id" validate:"required"`
	Type  FieldType     `yaml:"type" json:"type" validate:"required"`
	Value RawFieldValue `yaml:"value" json:"value"`
}

// RawFieldValue holds the authored attributes of a field. Keys that are not
// known here are kept in Extra and exposed as field options.
type RawFieldValue struct {
	Slug       string         `yaml:"slug,omitempty" json:"slug,omitempty"`
	Label      string         `yaml:"label" json:"label"`
	HelpText   string         `yaml:"help_text,omitempty" json:"help_text,omitempty"`
	IsRequired bool           `yaml:"is_required,omitempty" json:"is_required,omitempty"`
	Initial    string         `yaml:"initial,omitempty" json:"initial,omitempty"`
	Disabled   bool           `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	Choices    string         `yaml:"choices,omitempty" json:"choices,omitempty"`
	Rule       []RuleEntry    `yaml:"rule,omitempty" json:"rule,omitempty"`
	Extra      map[string]any `yaml:",inline" json:"-"`
}

// RuleEntry wraps a rule block the way stream blocks are serialized.
type RuleEntry struct {
	Type  string    `yaml:"type,omitempty" json:"type,omitempty"`
	Value RuleBlock `yaml:"value" json:"value"`
}

// RuleBlock is the authored form of a rule node. A block whose Field is "and"
// or "or" groups Rules; any other Field is the block id of the controlling
// field and exactly one value_* slot carries the literal.
type RuleBlock struct {
	Field         string      `yaml:"field" json:"field"`
	Operator      string      `yaml:"operator,omitempty" json:"operator,omitempty"`
	ValueChar     string      `yaml:"value_char,omitempty" json:"value_char,omitempty"`
	ValueNumber   Decimal     `yaml:"value_number,omitempty" json:"value_number,omitempty"`
	ValueDropdown string      `yaml:"value_dropdown,omitempty" json:"value_dropdown,omitempty"`
	ValueDate     string      `yaml:"value_date,omitempty" json:"value_date,omitempty"`
	ValueTime     string      `yaml:"value_time,omitempty" json:"value_time,omitempty"`
	ValueDateTime string      `yaml:"value_datetime,omitempty" json:"value_datetime,omitempty"`
	Rules         []RuleEntry `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// Decimal is a decimal literal that may be authored as a number or a string.
type Decimal string

func (d *Decimal) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Newf("value_number: expected a scalar, got yaml kind %d", node.Kind)
	}
	if node.Tag == "!!null" {
		*d = ""
		return nil
	}
	*d = Decimal(strings.TrimSpace(node.Value))
	return nil
}

func (d *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return errors.Wrap(err, "value_number")
		}
		*d = Decimal(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.Wrap(err, "value_number")
	}
	*d = Decimal(n.String())
	return nil
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	if d == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

// Float parses the literal. An empty or non-numeric literal is an error.
func (d Decimal) Float() (float64, error) {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return 0, errors.New("empty number literal")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Newf("%q is not a number", s)
	}
	return f, nil
}

// ParseChoices splits the authored choice text into ordered choices keyed
// c1..cN. A leading "*" marks a default choice.
func ParseChoices(text string) []Choice {
	var out []Choice
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		c := Choice{Key: "c" + strconv.Itoa(len(out)+1)}
		if strings.HasPrefix(line, "*") {
			c.Default = true
			line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		}
		c.Label = line
		out = append(out, c)
	}
	return out
}

// FieldFromRaw builds the field descriptor for one authored field.
func FieldFromRaw(raw RawField) *Field {
	v := raw.Value
	slug := v.Slug
	if slug == "" {
		slug = Slugify(v.Label)
	}
	opts := make(map[string]any, len(v.Extra))
	for k, val := range v.Extra {
		opts[k] = val
	}
	var choices []Choice
	if raw.Type.HasChoices() {
		choices = ParseChoices(v.Choices)
	}
	return &Field{
		Slug:     slug,
		BlockID:  raw.ID,
		Type:     raw.Type,
		Label:    v.Label,
		HelpText: v.HelpText,
		Required: v.IsRequired,
		Disabled: v.Disabled,
		Initial:  v.Initial,
		Choices:  choices,
		Options:  opts,
		Rule:     v.Rule,
	}
}
