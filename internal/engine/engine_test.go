package engine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/formplugins/internal/action"
	"github.com/gyaneshwarpardhi/formplugins/internal/action/email"
	"github.com/gyaneshwarpardhi/formplugins/internal/config"
	"github.com/gyaneshwarpardhi/formplugins/internal/mail"
	"github.com/gyaneshwarpardhi/formplugins/internal/plugin"
	"github.com/gyaneshwarpardhi/formplugins/internal/store"
)

const formsYAML = `
version: "1"
engine:
  base_url: https://forms.example.com
  action_workers: 2
users:
  - login: shawking
    first_name: Stephen
    last_name: Hawking
    email: shawking@example.com
  - login: alovelace
    first_name: Ada
    last_name: Lovelace
    email: ada@example.com
forms:
  - slug: contact
    title: Contact us
    owner: shawking
    unique_response: true
    plugins: [streamfield, conditional_fields, templating, emails, named_form, indexed_results]
    fields:
      - id: b-country
        type: dropdown
        value:
          label: Country
          choices: "fr\nus"
          is_required: true
      - id: b-region
        type: singleline
        value:
          label: Region
          is_required: true
          initial: "{user.first_name}'s region"
          rule:
            - type: rule
              value:
                field: b-country
                operator: eq
                value_dropdown: fr
      - id: b-note
        type: multiline
        value:
          label: Note
    actions:
      - id: notify
        type: send_email
        params:
          recipient_list: "{author.email}"
          subject: "New answer to {form.title}"
          message: "{user.full_name} answered:\n{result.data}"
  - slug: public
    title: Public survey
    owner: shawking
    plugins: [streamfield, token_validation, templating, emails]
    token_validation:
      title: "Validate your address for {form.title}"
      from_email: noreply@example.com
    fields:
      - id: b-opinion
        type: singleline
        value:
          label: Opinion
`

type recorder struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (r *recorder) Send(_ context.Context, m mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	return nil
}

func (r *recorder) messages() []mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mail.Message(nil), r.sent...)
}

type fixture struct {
	eng   *Engine
	sent  *recorder
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "forms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(formsYAML), 0o644))

	rec := &recorder{}
	actions := action.NewRegistry()
	actions.Register(email.New(rec))
	plugins := plugin.Builtin()

	cfg, err := config.Load(path, func(c *config.FormsConfig) error {
		return config.Validate(c, plugins, actions)
	})
	require.NoError(t, err)

	db, err := store.Open(filepath.Join(dir, "submissions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fx := &fixture{sent: rec, clock: time.Date(2024, 10, 16, 12, 6, 0, 0, time.UTC)}
	fx.eng = New(context.Background(), cfg, Deps{
		Store:   db,
		Sender:  rec,
		Actions: actions,
		Plugins: plugins,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     func() time.Time { return fx.clock },
	})
	t.Cleanup(fx.eng.Shutdown)
	return fx
}

func TestRender(t *testing.T) {
	fx := newFixture(t)
	page, err := fx.eng.Render(context.Background(), RenderRequest{Slug: "contact", Login: "alovelace"})
	require.NoError(t, err)

	assert.Equal(t, "Contact us", page.Title)
	assert.Equal(t, "https://forms.example.com/forms/contact/", page.URL)
	assert.False(t, page.TokenRequired)
	require.Len(t, page.Fields, 3)

	region := page.Fields[1]
	assert.Equal(t, "region", region.Slug)
	assert.Equal(t, "Ada's region", region.Initial)
	assert.Equal(t, "b-region", region.Attrs["id"])
	assert.Equal(t, "Region", region.Attrs["data-label"])
	assert.Equal(t, "TextInput", region.Attrs["data-widget"])

	var rule map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(region.Attrs["data-rule"]), &rule))
	assert.Equal(t, "b-country", rule["entry"]["target"])
	assert.Equal(t, "eq", rule["entry"]["opr"])
	assert.Equal(t, "fr", rule["entry"]["val"])

	assert.Nil(t, page.Fields[0].Attrs, "fields without a rule carry no data attributes")

	_, err = fx.eng.Render(context.Background(), RenderRequest{Slug: "nope"})
	assert.True(t, errors.Is(err, ErrFormNotFound))
}

func TestSubmit_HiddenFieldsAreClearedAndNotRequired(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	res, err := fx.eng.Submit(ctx, SubmitRequest{
		Slug:  "contact",
		Login: "alovelace",
		Data:  map[string]any{"country": "us", "region": "Texas"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"country", "note"}, res.Enabled)
	assert.Equal(t, []string{"region"}, res.Hidden)
	assert.Equal(t, map[string]string{"Country": "us", "Note": "-"}, res.Summary)
	assert.Equal(t, uint64(1), res.Index)
	assert.Equal(t, 1, res.ActionsQueued)

	fx.eng.Shutdown()
	sent := fx.sent.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"shawking@example.com"}, sent[0].To)
	assert.Equal(t, "New answer to Contact us", sent[0].Subject)
	assert.Equal(t, "Ada Lovelace answered:\nCountry: us", sent[0].Body)
}

func TestSubmit_RequiredWhenEnabled(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.eng.Submit(context.Background(), SubmitRequest{
		Slug:  "contact",
		Login: "alovelace",
		Data:  map[string]any{"country": "fr"},
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "This field is required.", verr.Fields["region"])

	_, err = fx.eng.Submit(context.Background(), SubmitRequest{
		Slug:  "contact",
		Login: "alovelace",
		Data:  map[string]any{"country": "de"},
	})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields["country"], "Select a valid choice")
}

func TestSubmit_UniqueResponse(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	req := SubmitRequest{Slug: "contact", Login: "alovelace", Data: map[string]any{"country": "fr", "region": "Paris"}}

	_, err := fx.eng.Submit(ctx, req)
	require.NoError(t, err)
	_, err = fx.eng.Submit(ctx, req)
	assert.True(t, errors.Is(err, store.ErrAlreadySubmitted))

	page, err := fx.eng.Render(ctx, RenderRequest{Slug: "contact", Login: "alovelace"})
	require.NoError(t, err)
	assert.True(t, page.AlreadySubmitted)

	res, err := fx.eng.Submit(ctx, SubmitRequest{Slug: "contact", Login: "shawking", Data: req.Data})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Index)
}

var tokenParam = regexp.MustCompile(`token=(\S+)`)

func TestTokenValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	page, err := fx.eng.Render(ctx, RenderRequest{Slug: "public"})
	require.NoError(t, err)
	assert.True(t, page.TokenRequired)
	assert.Empty(t, page.Fields)

	_, err = fx.eng.Submit(ctx, SubmitRequest{Slug: "public", Data: map[string]any{"opinion": "meh"}})
	assert.True(t, errors.Is(err, ErrTokenRequired))

	assert.Error(t, fx.eng.IssueToken(ctx, "public", "not an address"))
	assert.True(t, errors.Is(fx.eng.IssueToken(ctx, "contact", "ada@example.com"), ErrPluginOff))
	require.NoError(t, fx.eng.IssueToken(ctx, "public", "guest@example.com"))

	sent := fx.sent.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Validate your address for Public survey", sent[0].Subject)
	assert.Equal(t, []string{"guest@example.com"}, sent[0].To)
	assert.Equal(t, "noreply@example.com", sent[0].From)
	m := tokenParam.FindStringSubmatch(sent[0].Body)
	require.Len(t, m, 2)
	tok, err := url.QueryUnescape(m[1])
	require.NoError(t, err)
	assert.True(t, fx.eng.CheckToken(tok))

	page, err = fx.eng.Render(ctx, RenderRequest{Slug: "public", Token: tok})
	require.NoError(t, err)
	assert.False(t, page.TokenRequired)
	require.Len(t, page.Fields, 1)
	assert.Nil(t, page.Fields[0].Attrs, "conditional_fields is not enabled")

	res, err := fx.eng.Submit(ctx, SubmitRequest{Slug: "public", Token: tok, Data: map[string]any{"opinion": "great"}})
	require.NoError(t, err)
	assert.Zero(t, res.Index, "indexed_results is not enabled")
	assert.False(t, fx.eng.CheckToken(tok), "tokens are single use")
}

func TestTokenExpires(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.eng.IssueToken(ctx, "public", "guest@example.com"))
	m := tokenParam.FindStringSubmatch(fx.sent.messages()[0].Body)
	tok, err := url.QueryUnescape(m[1])
	require.NoError(t, err)

	fx.clock = fx.clock.Add(59 * time.Minute)
	assert.True(t, fx.eng.CheckToken(tok))
	fx.clock = fx.clock.Add(2 * time.Minute)
	assert.False(t, fx.eng.CheckToken(tok))
}

func TestSwapConfig(t *testing.T) {
	fx := newFixture(t)
	cfg := *fx.eng.Config()
	cfg.Forms = cfg.Forms[:1]
	fx.eng.SwapConfig(&cfg)

	_, err := fx.eng.Render(context.Background(), RenderRequest{Slug: "public"})
	assert.True(t, errors.Is(err, ErrFormNotFound))
	assert.Zero(t, fx.eng.QueueUtilization())
}
