package engine

import (
	"context"

	"github.com/gyaneshwarpardhi/formplugins/internal/condition"
	"github.com/gyaneshwarpardhi/formplugins/internal/form"
	"github.com/gyaneshwarpardhi/formplugins/internal/plugin"
	"github.com/gyaneshwarpardhi/formplugins/internal/templating"
)

// RenderRequest asks for the form page of Slug as seen by Login. Anonymous
// visitors of a token-validated form pass the token from their link.
type RenderRequest struct {
	Slug  string
	Login string
	Token string
}

// RenderedField is one field of a rendered form page.
type RenderedField struct {
	Slug     string            `json:"slug"`
	Type     form.FieldType    `json:"type"`
	Label    string            `json:"label"`
	HelpText string            `json:"help_text,omitempty"`
	Required bool              `json:"required"`
	Disabled bool              `json:"disabled,omitempty"`
	Initial  string            `json:"initial,omitempty"`
	Choices  []form.Choice     `json:"choices,omitempty"`
	Options  map[string]any    `json:"options,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

// RenderedForm is the form page sent to the client.
type RenderedForm struct {
	Slug             string          `json:"slug"`
	Title            string          `json:"title"`
	URL              string          `json:"url"`
	Fields           []RenderedField `json:"fields"`
	TokenRequired    bool            `json:"token_required,omitempty"`
	AlreadySubmitted bool            `json:"already_submitted,omitempty"`
}

var widgets = map[form.FieldType]string{
	form.TypeSingleLine:  "TextInput",
	form.TypeMultiLine:   "Textarea",
	form.TypeEmail:       "EmailInput",
	form.TypeNumber:      "NumberInput",
	form.TypeURL:         "URLInput",
	form.TypeCheckbox:    "CheckboxInput",
	form.TypeCheckboxes:  "CheckboxSelectMultiple",
	form.TypeDropdown:    "Select",
	form.TypeMultiSelect: "SelectMultiple",
	form.TypeRadio:       "RadioSelect",
	form.TypeDate:        "DateInput",
	form.TypeTime:        "TimeInput",
	form.TypeDateTime:    "DateTimeInput",
	form.TypeHidden:      "HiddenInput",
	form.TypeFile:        "ClearableFileInput",
	form.TypeLabel:       "HiddenInput",
}

// Render builds the form page. Fields carry the attributes the client-side
// visibility script reads: id (block id), data-label, data-widget and
// data-rule. Initial values are formatted with the requester's vocabulary.
func (e *Engine) Render(ctx context.Context, req RenderRequest) (*RenderedForm, error) {
	e.sweep()
	p, err := e.page(req.Slug)
	if err != nil {
		return nil, err
	}

	out := &RenderedForm{
		Slug:   p.def.Slug,
		Title:  p.def.Title,
		URL:    p.def.URL(p.cfg.Engine.BaseURL),
		Fields: make([]RenderedField, 0, p.catalog.Len()),
	}
	if req.Login == "" && p.def.Uses(plugin.TokenValidation) && !e.tokens.Valid(req.Token) {
		out.TokenRequired = true
		return out, nil
	}
	if p.def.UniqueResponse && p.def.Uses(plugin.NamedForm) && e.store != nil {
		done, err := e.store.HasUser(ctx, p.def.Slug, req.Login)
		if err != nil {
			return nil, err
		}
		out.AlreadySubmitted = done
	}

	vocab := templating.NewVocabulary(templating.Source{
		User:   p.cfg.User(req.Login),
		Author: p.cfg.User(p.def.Owner),
		Form:   p.info(),
	}, false)
	conditional := p.def.Uses(plugin.ConditionalField)

	for _, f := range p.catalog.Fields() {
		if f.Type == form.TypeLabel && !p.def.Uses(plugin.Label) {
			continue
		}
		rf := RenderedField{
			Slug:     f.Slug,
			Type:     f.Type,
			Label:    f.Label,
			HelpText: f.HelpText,
			Required: f.Required,
			Disabled: f.Disabled,
			Initial:  f.Initial,
			Choices:  f.Choices,
			Options:  f.Options,
		}
		if p.def.Uses(plugin.Templating) && f.Initial != "" {
			rf.Initial = templating.Format(f.Initial, vocab)
		}
		if conditional && f.HasRule() {
			rf.Attrs = map[string]string{
				"id":          f.BlockID,
				"data-label":  f.Label,
				"data-widget": widgets[f.Type],
				"data-rule":   e.wireRule(f),
			}
		}
		out.Fields = append(out.Fields, rf)
	}
	return out, nil
}

func (e *Engine) wireRule(f *form.Field) string {
	rule, err := condition.ParseField(f)
	if err != nil {
		e.logger.Warn("rule not sent to client", "field", f.Slug, "err", err)
		return "{}"
	}
	js, err := condition.MarshalWire(rule)
	if err != nil {
		e.logger.Warn("rule not sent to client", "field", f.Slug, "err", err)
		return "{}"
	}
	return string(js)
}
