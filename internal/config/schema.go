package config

import (
	"slices"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/formplugins/internal/form"
)

// FormsConfig is the top-level YAML structure.
type FormsConfig struct {
	Version string      `yaml:"version" validate:"required"`
	Engine  EngineConf  `yaml:"engine"`
	Users   []form.User `yaml:"users" validate:"dive"`
	Forms   []FormDef   `yaml:"forms" validate:"dive"`
}

// EngineConf holds tunable settings.
type EngineConf struct {
	ActionWorkers   int    `yaml:"action_workers" validate:"gte=0"`
	QueueDepth      int    `yaml:"queue_depth" validate:"gte=0"`
	SubmitTimeoutMs int    `yaml:"submit_timeout_ms" validate:"gte=0"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes" validate:"gte=0"`
	BaseURL         string `yaml:"base_url" validate:"omitempty,url"`
	AdminURL        string `yaml:"admin_url" validate:"omitempty,url"`
	StorePath       string `yaml:"store_path"`
	// StrictRules makes rules referencing unknown fields fail the submission
	// instead of hiding the field.
	StrictRules bool `yaml:"strict_rules"`
}

// FormDef is one form page.
type FormDef struct {
	Slug           string          `yaml:"slug" validate:"required"`
	Title          string          `yaml:"title" validate:"required"`
	Owner          string          `yaml:"owner"`
	PublishedAt    time.Time       `yaml:"published_at"`
	UniqueResponse bool            `yaml:"unique_response"`
	Plugins        []string        `yaml:"plugins"` // empty = every built-in plugin
	Fields         []form.RawField `yaml:"fields" validate:"dive"`
	Actions        []ActionDef     `yaml:"actions" validate:"dive"`
	Validation     ValidationDef   `yaml:"token_validation"`
}

// ActionDef is a post-submission action.
type ActionDef struct {
	ID     string         `yaml:"id" validate:"required"`
	Type   string         `yaml:"type" validate:"required"`
	Params map[string]any `yaml:"params"`
}

// ValidationDef configures the e-mail sent to anonymous users to validate
// their address. Body must contain {validation_url}.
type ValidationDef struct {
	Title     string `yaml:"title"`
	Body      string `yaml:"body"`
	FromEmail string `yaml:"from_email"`
	ReplyTo   string `yaml:"reply_to"`
}

// Form returns the form with the given slug.
func (c *FormsConfig) Form(slug string) (*FormDef, bool) {
	for i := range c.Forms {
		if c.Forms[i].Slug == slug {
			return &c.Forms[i], true
		}
	}
	return nil, false
}

// User returns the declared user for login. Unknown logins get a bare user;
// the empty login is the anonymous user.
func (c *FormsConfig) User(login string) form.User {
	for _, u := range c.Users {
		if u.Login == login {
			return u
		}
	}
	return form.User{Login: login}
}

// Uses reports whether plugin name is enabled on the form.
func (f *FormDef) Uses(name string) bool {
	return len(f.Plugins) == 0 || slices.Contains(f.Plugins, name)
}

// URL returns the public URL of the form.
func (f *FormDef) URL(base string) string {
	return strings.TrimRight(base, "/") + "/forms/" + f.Slug + "/"
}

// ResultsURL returns the URL of the form's admin page.
func (f *FormDef) ResultsURL(admin string) string {
	if admin == "" {
		return ""
	}
	return strings.TrimRight(admin, "/") + "/forms/" + f.Slug + "/edit/"
}
