package templating

import (
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-set/v2"

	"github.com/gyaneshwarpardhi/formplugins/internal/form"
)

// Namespaces of the template vocabulary.
const (
	NSUser       = "user"
	NSAuthor     = "author"
	NSForm       = "form"
	NSResult     = "result"
	NSFieldLabel = "field_label"
	NSFieldValue = "field_value"
)

const (
	dateLayout = "02/01/2006"
	timeLayout = "15:04"
)

// Vocabulary maps namespace → key → substituted text.
type Vocabulary map[string]map[string]string

// Lookup returns the value of {ns.key}.
func (v Vocabulary) Lookup(ns, key string) (string, bool) {
	val, ok := v[ns][key]
	return val, ok
}

// Tokens returns every token of v as "ns.key", sorted.
func (v Vocabulary) Tokens() []string {
	var out []string
	for ns, keys := range v {
		for k := range keys {
			out = append(out, ns+"."+k)
		}
	}
	sort.Strings(out)
	return out
}

// FormInfo is the form metadata exposed under the form namespace.
type FormInfo struct {
	Title       string
	URL         string
	ResultsURL  string
	PublishedAt time.Time
}

// Source gathers what a vocabulary is built from. Submission is nil when
// rendering a blank form; Enabled restricts per-field tokens to the enabled
// set of that submission (nil means every field with a value).
type Source struct {
	User       form.User
	Author     form.User
	Form       FormInfo
	Catalog    *form.Catalog
	Submission *form.Submission
	Enabled    *set.Set[string]
}

// NewVocabulary builds the vocabulary for src. Field values are rendered as
// HTML when html is set.
func NewVocabulary(src Source, html bool) Vocabulary {
	v := Vocabulary{
		NSUser:   userData(src.User),
		NSAuthor: userData(src.Author),
		NSForm:   formData(src.Form),
	}
	if src.Submission == nil {
		return v
	}

	labels := map[string]string{}
	values := map[string]string{}
	var lines []string
	if src.Catalog != nil {
		for _, f := range src.Catalog.Fields() {
			if src.Enabled != nil && !src.Enabled.Contains(f.Slug) {
				continue
			}
			fmtValue, ok := form.FormatValue(f, src.Submission.Data[f.Slug], html)
			if !ok {
				continue
			}
			labels[f.Slug] = f.Label
			values[f.Slug] = fmtValue
			lines = append(lines, f.Label+": "+fmtValue)
		}
	}
	v[NSFieldLabel] = labels
	v[NSFieldValue] = values
	v[NSResult] = map[string]string{
		"data":         strings.Join(lines, "\n"),
		"publish_date": src.Submission.SubmittedAt.Format(dateLayout),
		"publish_time": src.Submission.SubmittedAt.Format(timeLayout),
	}
	return v
}

func userData(u form.User) map[string]string {
	if u.Anonymous() {
		return map[string]string{"login": "", "first_name": "", "last_name": "", "full_name": "", "email": ""}
	}
	return map[string]string{
		"login":      u.Login,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"full_name":  u.FullName(),
		"email":      u.Email,
	}
}

func formData(f FormInfo) map[string]string {
	m := map[string]string{
		"title":        f.Title,
		"url":          f.URL,
		"url_results":  f.ResultsURL,
		"publish_date": "",
		"publish_time": "",
	}
	if !f.PublishedAt.IsZero() {
		m["publish_date"] = f.PublishedAt.Format(dateLayout)
		m["publish_time"] = f.PublishedAt.Format(timeLayout)
	}
	return m
}
