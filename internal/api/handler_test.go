package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/formplugins/internal/action"
	"github.com/gyaneshwarpardhi/formplugins/internal/action/email"
	"github.com/gyaneshwarpardhi/formplugins/internal/config"
	"github.com/gyaneshwarpardhi/formplugins/internal/engine"
	"github.com/gyaneshwarpardhi/formplugins/internal/mail"
	"github.com/gyaneshwarpardhi/formplugins/internal/plugin"
	"github.com/gyaneshwarpardhi/formplugins/internal/store"
)

const formsYAML = `
version: "1"
users:
  - login: alovelace
    first_name: Ada
    email: ada@example.com
forms:
  - slug: survey
    title: Survey
    owner: alovelace
    unique_response: true
    plugins: [streamfield, conditional_fields, named_form, indexed_results]
    fields:
      - id: b-pet
        type: radio
        value:
          label: Pet
          choices: "cat\ndog"
          is_required: true
      - id: b-name
        type: singleline
        value:
          label: Cat name
          is_required: true
          rule:
            - type: rule
              value:
                field: b-pet
                operator: eq
                value_dropdown: cat
  - slug: open
    title: Open survey
    plugins: [streamfield, token_validation]
    fields:
      - id: b-x
        type: singleline
        value:
          label: Anything
`

func newServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "forms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(formsYAML), 0o644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	actions := action.NewRegistry()
	actions.Register(email.New(mail.NewLogSender(logger)))
	plugins := plugin.Builtin()

	loader, err := config.NewLoader(path, logger, func(c *config.FormsConfig) error {
		return config.Validate(c, plugins, actions)
	})
	require.NoError(t, err)
	db, err := store.Open(filepath.Join(dir, "submissions.db"))
	require.NoError(t, err)

	eng := engine.New(context.Background(), loader.Config(), engine.Deps{
		Store:   db,
		Sender:  mail.NewLogSender(logger),
		Actions: actions,
		Plugins: plugins,
		Logger:  logger,
	})
	srv := httptest.NewServer(New(eng, loader))
	t.Cleanup(func() {
		srv.Close()
		eng.Shutdown()
		_ = db.Close()
	})
	return srv, path
}

func do(t *testing.T, srv *httptest.Server, method, path, user string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(js)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var out map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestForms(t *testing.T) {
	srv, _ := newServer(t)

	status, body := do(t, srv, http.MethodGet, "/v1/forms", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["forms"], 2)

	status, body = do(t, srv, http.MethodGet, "/v1/forms/survey", "alovelace", nil)
	require.Equal(t, http.StatusOK, status)
	fields := body["fields"].([]any)
	require.Len(t, fields, 2)
	attrs := fields[1].(map[string]any)["attrs"].(map[string]any)
	assert.Equal(t, "b-name", attrs["id"])
	assert.JSONEq(t, `{"entry":{"target":"b-pet","val":"cat","opr":"eq"}}`, attrs["data-rule"].(string))

	status, _ = do(t, srv, http.MethodGet, "/v1/forms/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSubmit(t *testing.T) {
	srv, _ := newServer(t)

	status, body := do(t, srv, http.MethodPost, "/v1/forms/survey/submissions", "alovelace",
		map[string]any{"data": map[string]any{"pet": "cat"}})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "This field is required.", body["fields"].(map[string]any)["cat_name"])

	status, body = do(t, srv, http.MethodPost, "/v1/forms/survey/submissions", "alovelace",
		map[string]any{"data": map[string]any{"pet": "dog", "cat_name": "Felix"}})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, []any{"cat_name"}, body["hidden"])
	assert.EqualValues(t, 1, body["index"])

	status, body = do(t, srv, http.MethodGet, "/v1/forms/survey/submissions/1", "", nil)
	require.Equal(t, http.StatusOK, status)
	data := body["form_data"].(map[string]any)
	assert.Equal(t, "c2", data["pet"])
	assert.Nil(t, data["cat_name"])

	status, _ = do(t, srv, http.MethodPost, "/v1/forms/survey/submissions", "alovelace",
		map[string]any{"data": map[string]any{"pet": "dog"}})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = do(t, srv, http.MethodGet, "/v1/forms/survey/submissions/9", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = do(t, srv, http.MethodGet, "/v1/forms/survey/submissions/x", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTokens(t *testing.T) {
	srv, _ := newServer(t)

	status, _ := do(t, srv, http.MethodPost, "/v1/forms/open/submissions", "",
		map[string]any{"data": map[string]any{"x": "y"}})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, srv, http.MethodPost, "/v1/forms/open/tokens", "", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = do(t, srv, http.MethodPost, "/v1/forms/open/tokens", "", map[string]string{"email": "guest@example.com"})
	assert.Equal(t, http.StatusAccepted, status)

	status, body := do(t, srv, http.MethodGet, "/v1/forms/open/tokens/Zm9v-unknown", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["valid"])
}

func TestTemplates(t *testing.T) {
	srv, _ := newServer(t)

	status, body := do(t, srv, http.MethodPost, "/v1/templates/validate", "", map[string]string{"text": "Hi {user.full_name}"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["contains_template"])

	status, _ = do(t, srv, http.MethodPost, "/v1/templates/validate", "", map[string]string{"text": "{user.nickname}"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, body = do(t, srv, http.MethodGet, "/v1/templates/help", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["help"], "{user.login}")
}

func TestPluginsAndProbes(t *testing.T) {
	srv, _ := newServer(t)

	status, body := do(t, srv, http.MethodGet, "/v1/plugins", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["plugins"], len(plugin.Builtin().Names()))

	status, _ = do(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, body = do(t, srv, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
}

func TestReload(t *testing.T) {
	srv, path := newServer(t)

	require.NoError(t, os.WriteFile(path, []byte(formsYAML+`
  - slug: extra
    title: Extra
`), 0o644))
	status, body := do(t, srv, http.MethodPost, "/v1/forms/reload", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["forms_count"])

	status, _ = do(t, srv, http.MethodGet, "/v1/forms/extra", "", nil)
	assert.Equal(t, http.StatusOK, status)

	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\nforms:\n  - slug: bad\n"), 0o644))
	status, _ = do(t, srv, http.MethodPost, "/v1/forms/reload", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}
