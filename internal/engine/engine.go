package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/formplugins/internal/action"
	"github.com/gyaneshwarpardhi/formplugins/internal/condition"
	"github.com/gyaneshwarpardhi/formplugins/internal/config"
	"github.com/gyaneshwarpardhi/formplugins/internal/form"
	"github.com/gyaneshwarpardhi/formplugins/internal/mail"
	"github.com/gyaneshwarpardhi/formplugins/internal/metrics"
	"github.com/gyaneshwarpardhi/formplugins/internal/plugin"
	"github.com/gyaneshwarpardhi/formplugins/internal/store"
	"github.com/gyaneshwarpardhi/formplugins/internal/templating"
	"github.com/gyaneshwarpardhi/formplugins/internal/token"
	"github.com/gyaneshwarpardhi/formplugins/internal/visibility"
)

// Deps are the collaborators of an Engine.
type Deps struct {
	Store   *store.Store
	Sender  mail.Sender
	Actions *action.Registry
	Plugins *plugin.Registry
	Logger  *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine serves form pages: it renders forms and processes submissions.
type Engine struct {
	cfg        atomic.Pointer[config.FormsConfig]
	store      *store.Store
	tokens     *token.Store
	sender     mail.Sender
	actions    *action.Registry
	plugins    *plugin.Registry
	logger     *slog.Logger
	now        func() time.Time
	conf       config.EngineConf
	actionPool *workerPool[*actionWork]
}

type actionWork struct {
	slug   string
	def    config.ActionDef
	actx   *action.Context
	exec   action.Executor
	logger *slog.Logger
}

// New creates an Engine serving cfg and starts the action workers. Engine
// settings are read once; SwapConfig only replaces the forms.
func New(ctx context.Context, cfg *config.FormsConfig, deps Deps) *Engine {
	e := &Engine{
		store:   deps.Store,
		sender:  deps.Sender,
		actions: deps.Actions,
		plugins: deps.Plugins,
		logger:  deps.Logger,
		now:     deps.Now,
		conf:    cfg.Engine,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.sender == nil {
		e.sender = mail.NewLogSender(e.logger)
	}
	if e.actions == nil {
		e.actions = action.NewRegistry()
	}
	if e.plugins == nil {
		e.plugins = plugin.Builtin()
	}
	e.tokens = token.NewStore(time.Duration(cfg.Engine.TokenTTLMinutes) * time.Minute).WithClock(e.now)
	e.cfg.Store(cfg)

	e.actionPool = newWorkerPool(ctx, max(cfg.Engine.ActionWorkers, 1), cfg.Engine.QueueDepth, e.executeAction)
	return e
}

// Config returns the forms currently served.
func (e *Engine) Config() *config.FormsConfig { return e.cfg.Load() }

// SwapConfig atomically replaces the served forms (used on hot-reload).
func (e *Engine) SwapConfig(cfg *config.FormsConfig) {
	e.cfg.Store(cfg)
}

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// QueueUtilization returns action queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.actionPool.QueueCap() == 0 {
		return 0
	}
	return float64(e.actionPool.QueueLen()) / float64(e.actionPool.QueueCap())
}

// Shutdown waits for queued actions to finish.
func (e *Engine) Shutdown() {
	e.actionPool.Drain()
}

// page is one form resolved against the current config.
type page struct {
	cfg     *config.FormsConfig
	def     *config.FormDef
	catalog *form.Catalog
}

func (e *Engine) page(slug string) (*page, error) {
	cfg := e.cfg.Load()
	def, ok := cfg.Form(slug)
	if !ok {
		return nil, ErrFormNotFound
	}
	catalog, err := form.NewCatalog(def.Fields)
	if err != nil {
		return nil, err
	}
	return &page{cfg: cfg, def: def, catalog: catalog}, nil
}

func (p *page) info() templating.FormInfo {
	return templating.FormInfo{
		Title:       p.def.Title,
		URL:         p.def.URL(p.cfg.Engine.BaseURL),
		ResultsURL:  p.def.ResultsURL(p.cfg.Engine.AdminURL),
		PublishedAt: p.def.PublishedAt,
	}
}

func (e *Engine) resolver() *visibility.Resolver {
	ev := condition.NewEvaluator(e.logger)
	ev.Now = e.now
	ev.Strict = e.conf.StrictRules
	return visibility.NewResolver(ev, e.logger, visibility.ExcludeLabels)
}

// sweep drops expired validation tokens. It runs at the start of every
// request.
func (e *Engine) sweep() {
	if n := e.tokens.Sweep(e.now()); n > 0 {
		metrics.TokensSwept.Add(float64(n))
		e.logger.Debug("validation tokens swept", "count", n)
	}
}

func (e *Engine) executeAction(ctx context.Context, w *actionWork) error {
	res, err := w.exec.Execute(ctx, w.def.ID, w.def.Params, w.actx)
	status := "success"
	if err != nil || res == nil || !res.Success {
		status = "error"
	}
	metrics.ActionsExecuted.WithLabelValues(w.def.Type, status).Inc()
	if err != nil {
		w.logger.Error("action failed", "form", w.slug, "action", w.def.ID, "type", w.def.Type, "err", err)
		return err
	}
	if res != nil {
		w.logger.Info("action executed", "form", w.slug, "action", w.def.ID, "type", w.def.Type, "message", res.Message)
	}
	return nil
}

// Submission loads a stored submission by its per-form index.
func (e *Engine) Submission(ctx context.Context, slug string, index uint64) (*form.Submission, error) {
	if _, ok := e.cfg.Load().Form(slug); !ok {
		return nil, ErrFormNotFound
	}
	if e.store == nil {
		return nil, store.ErrNotFound
	}
	return e.store.Get(ctx, slug, index)
}
