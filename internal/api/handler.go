package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/formplugins/internal/config"
	"github.com/gyaneshwarpardhi/formplugins/internal/engine"
	"github.com/gyaneshwarpardhi/formplugins/internal/metrics"
	"github.com/gyaneshwarpardhi/formplugins/internal/templating"
)

// UserHeader carries the login of the requester. Authentication happens
// upstream; an absent header means an anonymous visitor.
const UserHeader = "X-Remote-User"

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader *config.Loader) http.Handler {
	h := &Handler{eng: eng, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /v1/forms", h.listForms)
	h.mux.HandleFunc("GET /v1/forms/{slug}", h.renderForm)
	h.mux.HandleFunc("POST /v1/forms/{slug}/submissions", h.submit)
	h.mux.HandleFunc("GET /v1/forms/{slug}/submissions/{index}", h.getSubmission)
	h.mux.HandleFunc("POST /v1/forms/{slug}/tokens", h.issueToken)
	h.mux.HandleFunc("GET /v1/forms/{slug}/tokens/{token}", h.checkToken)
	h.mux.HandleFunc("POST /v1/forms/reload", h.reload)
	h.mux.HandleFunc("POST /v1/templates/validate", h.validateTemplate)
	h.mux.HandleFunc("GET /v1/templates/help", h.templateHelp)
	h.mux.HandleFunc("GET /v1/plugins", h.listPlugins)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

type formSummary struct {
	Slug    string   `json:"slug"`
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Plugins []string `json:"plugins"`
}

// GET /v1/forms
func (h *Handler) listForms(w http.ResponseWriter, r *http.Request) {
	cfg := h.eng.Config()
	out := make([]formSummary, 0, len(cfg.Forms))
	for i := range cfg.Forms {
		f := &cfg.Forms[i]
		plugins := f.Plugins
		if len(plugins) == 0 {
			plugins = h.eng.Plugins().Names()
		}
		out = append(out, formSummary{Slug: f.Slug, Title: f.Title, URL: f.URL(cfg.Engine.BaseURL), Plugins: plugins})
	}
	writeJSON(w, http.StatusOK, map[string]any{"version": cfg.Version, "forms": out})
}

// GET /v1/forms/{slug}?token=...
func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request) {
	page, err := h.eng.Render(r.Context(), engine.RenderRequest{
		Slug:  r.PathValue("slug"),
		Login: r.Header.Get(UserHeader),
		Token: r.URL.Query().Get("token"),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type submitBody struct {
	Token string         `json:"token"`
	Data  map[string]any `json:"data"`
}

// POST /v1/forms/{slug}/submissions
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	res, err := h.eng.Submit(r.Context(), engine.SubmitRequest{
		Slug:  r.PathValue("slug"),
		Login: r.Header.Get(UserHeader),
		Token: body.Token,
		Data:  body.Data,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GET /v1/forms/{slug}/submissions/{index}
func (h *Handler) getSubmission(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be a positive integer")
		return
	}
	sub, err := h.eng.Submission(r.Context(), r.PathValue("slug"), index)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// POST /v1/forms/{slug}/tokens
func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if err := h.eng.IssueToken(r.Context(), r.PathValue("slug"), body.Email); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "a validation link was sent to " + body.Email,
	})
}

// GET /v1/forms/{slug}/tokens/{token}
func (h *Handler) checkToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"valid": h.eng.CheckToken(r.PathValue("token"))})
}

// POST /v1/forms/reload re-reads the config from disk.
func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		writeError(w, http.StatusNotImplemented, "config reload is not available")
		return
	}
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.eng.SwapConfig(cfg)
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded":    true,
		"forms_count": len(cfg.Forms),
	})
}

// POST /v1/templates/validate
func (h *Handler) validateTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	ok, err := templating.ContainsTemplate(body.Text)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"contains_template": ok})
}

// GET /v1/templates/help
func (h *Handler) templateHelp(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"help":   templating.Help(),
		"tokens": templating.Doc(),
	})
}

// GET /v1/plugins
func (h *Handler) listPlugins(w http.ResponseWriter, r *http.Request) {
	reg := h.eng.Plugins()
	out := make([]any, 0, len(reg.Names()))
	for _, name := range reg.Names() {
		d, _ := reg.Get(name)
		out = append(out, d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"plugins": out})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the action queue is more than 80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"queue_utilization": util,
	})
}
