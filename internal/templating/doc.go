package templating

import (
	"fmt"
	"strings"
)

// TokenDoc documents one template token.
type TokenDoc struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Help      string `json:"help"`
	Example   string `json:"example"`
}

// Token returns the token as written in templates.
func (d TokenDoc) Token() string {
	return string(sepLeft) + d.Namespace + "." + d.Key + string(sepRight)
}

// dynamicNamespaces are keyed by field slug rather than by a fixed list.
var dynamicNamespaces = []string{NSFieldLabel, NSFieldValue}

var docs = []TokenDoc{
	{NSUser, "login", "the form user login", "alovelace"},
	{NSUser, "email", "the form user email", "alovelace@example.com"},
	{NSUser, "first_name", "the form user first name", "Ada"},
	{NSUser, "last_name", "the form user last name", "Lovelace"},
	{NSUser, "full_name", "the form user first name and last name", "Ada Lovelace"},

	{NSAuthor, "login", "the form author login", "shawking"},
	{NSAuthor, "email", "the form author email", "shawking@example.com"},
	{NSAuthor, "first_name", "the form author first name", "Stephen"},
	{NSAuthor, "last_name", "the form author last name", "Hawking"},
	{NSAuthor, "full_name", "the form author first name and last name", "Stephen Hawking"},

	{NSForm, "title", "the form title", "My form"},
	{NSForm, "url", "the form url", "https://example.com/form/my-form"},
	{NSForm, "publish_date", "the date on which the form was published", "15/10/2024"},
	{NSForm, "publish_time", "the time on which the form was published", "13:37"},
	{NSForm, "url_results", "the url of the form edition page", "https://example.com/admin/pages/42/edit/"},

	{NSResult, "data", "the form data as a list", "My first question: 42"},
	{NSResult, "publish_date", "the date on which the form was completed", "16/10/2024"},
	{NSResult, "publish_time", "the time on which the form was completed", "12:06"},

	{NSFieldLabel, "my_first_question", "the label of the related field", "My first question"},
	{NSFieldValue, "my_first_question", "the value of the related field", "42"},
}

// Doc returns the documentation of every token, grouped by namespace.
func Doc() []TokenDoc {
	out := make([]TokenDoc, len(docs))
	copy(out, docs)
	return out
}

// Help renders Doc as the authoring help message.
func Help() string {
	var b strings.Builder
	ns := ""
	for _, d := range docs {
		if d.Namespace != ns {
			ns = d.Namespace
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "• %s: %s (ex: “%s”)\n", d.Token(), d.Help, d.Example)
	}
	return b.String()
}

func isDynamic(ns string) bool {
	for _, d := range dynamicNamespaces {
		if d == ns {
			return true
		}
	}
	return false
}
