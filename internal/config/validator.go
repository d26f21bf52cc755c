package config

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/gyaneshwarpardhi/formplugins/internal/action"
	"github.com/gyaneshwarpardhi/formplugins/internal/action/email"
	"github.com/gyaneshwarpardhi/formplugins/internal/condition"
	"github.com/gyaneshwarpardhi/formplugins/internal/form"
	"github.com/gyaneshwarpardhi/formplugins/internal/mail"
	"github.com/gyaneshwarpardhi/formplugins/internal/plugin"
	"github.com/gyaneshwarpardhi/formplugins/internal/templating"
	"github.com/gyaneshwarpardhi/formplugins/internal/visibility"
)

var structValidator = validator.New()

// Validator checks a config against the registered plugins and actions.
type Validator struct {
	Plugins *plugin.Registry
	Actions *action.Registry
}

// Validate checks cfg against the given registries. See Validator.Validate.
func Validate(cfg *FormsConfig, plugins *plugin.Registry, actions *action.Registry) error {
	v := &Validator{Plugins: plugins, Actions: actions}
	return v.Validate(cfg)
}

// Validate checks the config for:
//   - Required fields and well-formed values (struct tags)
//   - Duplicate form slugs, field slugs and block ids, action ids
//   - Unknown plugins, owners and action types
//   - Rules that do not parse, reference unknown fields, use an operator the
//     field type does not support, or form a cycle
//   - Template syntax in initial values and e-mail addresses
//
// Every problem is reported, not just the first.
func (v *Validator) Validate(cfg *FormsConfig) error {
	var errs []string

	if err := structValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errors.Wrap(err, "config")
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Sprintf("%s: failed %q validation", fe.Namespace(), fe.Tag()))
		}
	}

	users := make(map[string]bool, len(cfg.Users))
	for i, u := range cfg.Users {
		if u.Login == "" {
			errs = append(errs, fmt.Sprintf("users[%d]: login is required", i))
			continue
		}
		if users[u.Login] {
			errs = append(errs, fmt.Sprintf("duplicate user %q", u.Login))
		}
		users[u.Login] = true
	}

	slugs := make(map[string]bool, len(cfg.Forms))
	for i := range cfg.Forms {
		f := &cfg.Forms[i]
		if f.Slug == "" {
			continue // reported by struct validation
		}
		if slugs[f.Slug] {
			errs = append(errs, fmt.Sprintf("duplicate form slug %q", f.Slug))
		}
		slugs[f.Slug] = true
		if f.Owner != "" && !users[f.Owner] {
			errs = append(errs, fmt.Sprintf("form %s: owner %q is not a declared user", f.Slug, f.Owner))
		}
		v.validateForm(f, &errs)
	}

	if len(errs) > 0 {
		return errors.Newf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (v *Validator) validateForm(f *FormDef, errs *[]string) {
	loc := "form " + f.Slug
	add := func(format string, args ...any) {
		*errs = append(*errs, loc+": "+fmt.Sprintf(format, args...))
	}

	for _, p := range f.Plugins {
		if v.Plugins != nil && !v.Plugins.Has(p) {
			add("unknown plugin %q", p)
		}
	}

	catalog, err := form.NewCatalog(f.Fields)
	if err != nil {
		add("%v", err)
		return
	}

	for _, fld := range catalog.Fields() {
		if fld.Initial != "" && f.Uses(plugin.Templating) {
			if _, err := templating.ContainsTemplate(fld.Initial); err != nil && !braceOnly(err) {
				add("field %s: initial value: %v", fld.Slug, err)
			}
		}
		if !fld.HasRule() {
			continue
		}
		if !f.Uses(plugin.ConditionalField) {
			add("field %s: has a rule but the %s plugin is disabled", fld.Slug, plugin.ConditionalField)
			continue
		}
		rule, err := condition.ParseField(fld)
		if err != nil {
			add("%v", err)
			continue
		}
		if err := condition.Validate(rule, catalog); err != nil {
			add("field %s: %s", fld.Slug, strings.ReplaceAll(err.Error(), "\n", "; "))
		}
	}
	for _, cycle := range visibility.Build(catalog).Cycles() {
		add("visibility rules form a cycle: %s", strings.Join(cycle, " → "))
	}

	ids := make(map[string]bool, len(f.Actions))
	for _, a := range f.Actions {
		if ids[a.ID] {
			add("duplicate action id %q", a.ID)
		}
		ids[a.ID] = true
		if a.Type == email.Type && !f.Uses(plugin.Emails) {
			add("action %s: the %s plugin is disabled", a.ID, plugin.Emails)
		}
		if v.Actions == nil {
			continue
		}
		if err := v.Actions.Check(a.Type, a.Params); err != nil {
			add("action %s: %s", a.ID, strings.ReplaceAll(err.Error(), "\n", "; "))
		}
	}

	if f.Uses(plugin.TokenValidation) {
		if f.Validation.FromEmail != "" {
			if err := mail.ValidateAddressList(f.Validation.FromEmail); err != nil {
				add("token_validation.from_email: %v", err)
			}
		}
		if !strings.Contains(f.Validation.Body, "{validation_url}") {
			add("token_validation.body must contain {validation_url}")
		}
	}
}

func braceOnly(err error) bool {
	var se *templating.SyntaxError
	return errors.As(err, &se) && se.Token == ""
}
