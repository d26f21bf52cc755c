package templating

import (
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/formplugins/internal/form"
)

func TestFormat(t *testing.T) {
	v := Vocabulary{
		NSUser: {"login": "alovelace", "email": "ada@example.com"},
		NSForm: {"title": "{user.login}"},
	}
	cases := []struct {
		name, in, want string
	}{
		{"single token", "{user.login}", "alovelace"},
		{"repeated token", "{user.login} and {user.login}", "alovelace and alovelace"},
		{"unknown token", "{unknown.token}", "{unknown.token}"},
		{"unknown key", "hi {user.nickname}", "hi {user.nickname}"},
		{"no namespace", "{login}", "{login}"},
		{"replaced text not rescanned", "{form.title}", "{user.login}"},
		{"stray open brace", "a { b {user.login}", "a { b alovelace"},
		{"stray close brace", "a } {user.email}", "a } ada@example.com"},
		{"nested brace", "{{user.login}}", "{alovelace}"},
		{"unterminated", "{user.login", "{user.login"},
		{"plain", "no tokens here", "no tokens here"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Format(tc.in, v))
		})
	}
}

func TestFormatHTML(t *testing.T) {
	v := Vocabulary{NSUser: {"email": "ada@example.com"}}
	got := FormatHTML("Contact {user.email}\nSee https://example.com/form/x?a=1", v)
	assert.Equal(t,
		`Contact <a href="mailto:ada@example.com">ada@example.com</a><br/>`+"\n"+
			`See <a href="https://example.com/form/x?a=1">https://example.com/form/x?a=1</a>`,
		got)
}

func TestCreateLinks_AddressInsideURL(t *testing.T) {
	got := CreateLinks("https://user@example.com/path")
	assert.Equal(t, `<a href="https://user@example.com/path">https://user@example.com/path</a>`, got)
}

func TestContainsTemplate(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		want    bool
		wantErr bool
	}{
		{"fixed token", "{user.email}", true, false},
		{"fixed token in text", "Hello {author.full_name}!", true, false},
		{"dynamic slug", "{field_value.my_first_question}", true, false},
		{"dynamic label", "{field_label.age}", true, false},
		{"dynamic not slugified", "{field_value.My First Question}", false, true},
		{"fixed token before bad dynamic", "{user.login} {field_value.My First Question}", false, true},
		{"second dynamic not slugified", "{field_value.ok} {field_value.Bad Name}", false, true},
		{"label then bad value", "{field_label.ok} {field_value.My First Question}", false, true},
		{"several dynamic slugs", "{field_label.ok}: {field_value.ok} by {user.login}", true, false},
		{"plain address", "ada@example.com", false, false},
		{"unmatched open", "ada{example.com", false, true},
		{"unknown token", "{user.nickname}", false, true},
		{"empty", "", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ContainsTemplate(tc.text)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrTemplateSyntax))
				var se *SyntaxError
				assert.True(t, errors.As(err, &se))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewVocabulary(t *testing.T) {
	c, err := form.NewCatalog([]form.RawField{
		{ID: "b1", Type: form.TypeSingleLine, Value: form.RawFieldValue{Label: "My first question"}},
		{ID: "b2", Type: form.TypeDropdown, Value: form.RawFieldValue{Label: "Country", Choices: "France\nSpain"}},
		{ID: "b3", Type: form.TypeSingleLine, Value: form.RawFieldValue{Label: "Hidden one"}},
		{ID: "b4", Type: form.TypeNumber, Value: form.RawFieldValue{Label: "Empty number"}},
	})
	require.NoError(t, err)

	published := time.Date(2024, 10, 15, 13, 37, 0, 0, time.UTC)
	src := Source{
		User:   form.User{Login: "alovelace", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		Author: form.User{Login: "shawking", FirstName: "Stephen", LastName: "Hawking"},
		Form:   FormInfo{Title: "My form", URL: "https://example.com/form/my-form", PublishedAt: published},
	}

	blank := NewVocabulary(src, false)
	assert.Equal(t, "Ada Lovelace", blank[NSUser]["full_name"])
	assert.Equal(t, "Stephen Hawking", blank[NSAuthor]["full_name"])
	assert.Equal(t, "15/10/2024", blank[NSForm]["publish_date"])
	assert.Equal(t, "13:37", blank[NSForm]["publish_time"])
	assert.NotContains(t, blank, NSResult)
	assert.Equal(t, "{result.data}", Format("{result.data}", blank))

	src.Submission = &form.Submission{
		FormSlug:    "my-form",
		SubmittedAt: time.Date(2024, 10, 16, 12, 6, 0, 0, time.UTC),
		Data: map[string]any{
			"my_first_question": "42",
			"country":           "c1",
			"hidden_one":        "secret",
			"empty_number":      nil,
		},
	}
	src.Catalog = c
	src.Enabled = set.From([]string{"my_first_question", "country", "empty_number"})

	v := NewVocabulary(src, false)
	assert.Equal(t, "42", v[NSFieldValue]["my_first_question"])
	assert.Equal(t, "My first question", v[NSFieldLabel]["my_first_question"])
	assert.Equal(t, "France", v[NSFieldValue]["country"])
	assert.NotContains(t, v[NSFieldValue], "hidden_one")
	assert.NotContains(t, v[NSFieldValue], "empty_number")
	assert.Equal(t, "My first question: 42\nCountry: France", v[NSResult]["data"])
	assert.Equal(t, "16/10/2024", v[NSResult]["publish_date"])
	assert.Equal(t, "12:06", v[NSResult]["publish_time"])

	assert.Equal(t, "alovelace answered 42 on 16/10/2024",
		Format("{user.login} answered {field_value.my_first_question} on {result.publish_date}", v))
}

func TestNewVocabulary_Anonymous(t *testing.T) {
	v := NewVocabulary(Source{User: form.User{FirstName: "ignored"}}, false)
	for _, key := range []string{"login", "first_name", "last_name", "full_name", "email"} {
		val, ok := v.Lookup(NSUser, key)
		assert.True(t, ok, key)
		assert.Empty(t, val, key)
	}
	assert.Equal(t, "", v[NSForm]["publish_date"])
}

func TestHelp(t *testing.T) {
	help := Help()
	assert.Contains(t, help, "• {user.login}: the form user login (ex: “alovelace”)\n")
	assert.Contains(t, help, "• {field_value.my_first_question}: ")
	assert.True(t, strings.HasPrefix(help, "\n• "))
	assert.Equal(t, 5, strings.Count(help, "\n\n• "), "one block per namespace")
	for _, d := range Doc() {
		ok, err := ContainsTemplate(d.Token())
		require.NoError(t, err, d.Token())
		assert.True(t, ok, d.Token())
	}
}
