package plugin

import (
	"fmt"
	"slices"
	"sort"
)

// Capability is a hook a plugin contributes to.
type Capability string

const (
	FormBlock          Capability = "form_block"
	FormBuilder        Capability = "form_builder"
	FormPage           Capability = "form_page"
	SubmissionListView Capability = "submission_list_view"
)

// Names of the built-in plugins.
const (
	StreamField      = "streamfield"
	ConditionalField = "conditional_fields"
	Templating       = "templating"
	Emails           = "emails"
	Label            = "label"
	TokenValidation  = "token_validation"
	NamedForm        = "named_form"
	IndexedResults   = "indexed_results"
)

// Descriptor declares a plugin and the hooks it contributes to.
type Descriptor struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Capabilities []Capability `json:"capabilities"`
}

// Registry maps plugin names to descriptors. It is built once at startup and
// read-only afterwards.
type Registry struct {
	plugins map[string]Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Descriptor)}
}

// Register adds a plugin. Panics on duplicate names (programming error).
func (r *Registry) Register(d Descriptor) {
	if _, exists := r.plugins[d.Name]; exists {
		panic(fmt.Sprintf("plugin %q already registered", d.Name))
	}
	r.plugins[d.Name] = d
}

// Get returns the descriptor for name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	d, ok := r.plugins[name]
	return d, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.plugins[name]
	return ok
}

// Supports reports whether plugin name contributes to capability c.
func (r *Registry) Supports(name string, c Capability) bool {
	d, ok := r.plugins[name]
	return ok && slices.Contains(d.Capabilities, c)
}

// Names returns all registered plugin names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.plugins))
	for n := range r.plugins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WithCapability returns the descriptors contributing to c, sorted by name.
func (r *Registry) WithCapability(c Capability) []Descriptor {
	var out []Descriptor
	for _, n := range r.Names() {
		if d := r.plugins[n]; slices.Contains(d.Capabilities, c) {
			out = append(out, d)
		}
	}
	return out
}

// Builtin returns a registry holding every plugin shipped with the engine.
func Builtin() *Registry {
	r := NewRegistry()
	for _, d := range []Descriptor{
		{StreamField, "fields authored as a stream of typed blocks", []Capability{FormBlock, FormBuilder, FormPage}},
		{ConditionalField, "show or hide fields from rules on other fields", []Capability{FormBlock, FormBuilder, FormPage}},
		{Templating, "expand {namespace.key} tokens in initial values and e-mails", []Capability{FormBlock, FormPage}},
		{Emails, "send templated e-mails when a form is submitted", []Capability{FormPage}},
		{Label, "presentation-only label fields, never stored", []Capability{FormBlock, FormBuilder, FormPage}},
		{TokenValidation, "require anonymous users to validate an e-mail address first", []Capability{FormPage, SubmissionListView}},
		{NamedForm, "record the submitting user and allow unique responses", []Capability{FormPage, SubmissionListView}},
		{IndexedResults, "number the submissions of each form", []Capability{FormPage, SubmissionListView}},
	} {
		r.Register(d)
	}
	return r
}
