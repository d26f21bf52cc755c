package engine

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-set/v2"

	"github.com/gyaneshwarpardhi/formplugins/internal/action"
	"github.com/gyaneshwarpardhi/formplugins/internal/form"
	"github.com/gyaneshwarpardhi/formplugins/internal/metrics"
	"github.com/gyaneshwarpardhi/formplugins/internal/plugin"
	"github.com/gyaneshwarpardhi/formplugins/internal/store"
	"github.com/gyaneshwarpardhi/formplugins/internal/templating"
)

// SubmitRequest is one POST of a form page.
type SubmitRequest struct {
	Slug  string
	Login string
	Token string
	Data  map[string]any
}

// SubmitResult describes a stored submission.
type SubmitResult struct {
	SubmissionID  string            `json:"submission_id"`
	Index         uint64            `json:"index,omitempty"`
	Enabled       []string          `json:"enabled"`
	Hidden        []string          `json:"hidden"`
	Summary       map[string]string `json:"summary"`
	ActionsQueued int               `json:"actions_queued"`
	DurationMs    int64             `json:"duration_ms"`
}

// Submit validates and stores a submission, then queues the form actions.
//
// Only enabled fields are required and kept: values of hidden fields are
// stored as nil. Refused submissions return a *ValidationError,
// ErrTokenRequired or store.ErrAlreadySubmitted.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	start := e.now()
	if e.conf.SubmitTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.conf.SubmitTimeoutMs)*time.Millisecond)
		defer cancel()
	}
	e.sweep()

	p, err := e.page(req.Slug)
	if err != nil {
		return nil, err
	}
	slug := p.def.Slug
	reject := func(reason string, err error) (*SubmitResult, error) {
		metrics.SubmissionsRejected.WithLabelValues(slug, reason).Inc()
		return nil, err
	}

	unique := p.def.UniqueResponse && p.def.Uses(plugin.NamedForm)
	if unique && e.store != nil {
		done, err := e.store.HasUser(ctx, slug, req.Login)
		if err != nil {
			return nil, err
		}
		if done {
			return reject("already_submitted", store.ErrAlreadySubmitted)
		}
	}

	user := p.cfg.User(req.Login)
	address := user.Email
	if user.Anonymous() && p.def.Uses(plugin.TokenValidation) {
		address, err = e.tokens.Consume(req.Token)
		if err != nil {
			return reject("token", errors.Mark(errors.Wrap(err, slug), ErrTokenRequired))
		}
	}

	values, ferrs := form.Clean(p.catalog, req.Data)
	if ferrs != nil {
		return reject("invalid", &ValidationError{Fields: ferrs})
	}

	enabled, err := e.resolver().Resolve(p.catalog, values)
	if err != nil {
		return reject("rule", errors.Wrapf(err, "resolve %s", slug))
	}
	if !p.def.Uses(plugin.ConditionalField) {
		for _, f := range p.catalog.Fields() {
			if f.Type != form.TypeLabel {
				enabled.Insert(f.Slug)
			}
		}
	}

	missing := form.FieldErrors{}
	res := &SubmitResult{Summary: make(map[string]string, enabled.Size())}
	for _, f := range p.catalog.Fields() {
		if !enabled.Contains(f.Slug) {
			values[f.Slug] = nil
			if f.Type != form.TypeLabel {
				res.Hidden = append(res.Hidden, f.Slug)
			}
			continue
		}
		res.Enabled = append(res.Enabled, f.Slug)
		if f.Required && form.IsEmpty(values[f.Slug]) {
			missing[f.Slug] = "This field is required."
			continue
		}
		s, ok := form.FormatValue(f, values[f.Slug], false)
		if !ok || s == "" {
			s = "-"
		}
		res.Summary[f.Label] = s
	}
	if len(missing) > 0 {
		return reject("invalid", &ValidationError{Fields: missing})
	}

	sub := &form.Submission{
		ID:          uuid.NewString(),
		FormSlug:    slug,
		User:        req.Login,
		Email:       address,
		SubmittedAt: e.now(),
		Data:        values,
	}
	if e.store != nil {
		if _, err := e.store.Save(ctx, sub, unique); err != nil {
			if errors.Is(err, store.ErrAlreadySubmitted) {
				return reject("already_submitted", err)
			}
			return nil, err
		}
	}
	res.SubmissionID = sub.ID
	if p.def.Uses(plugin.IndexedResults) {
		res.Index = sub.Index
	}

	if p.def.Uses(plugin.Emails) {
		res.ActionsQueued = e.queueActions(p, user, sub, enabled)
	}

	res.DurationMs = e.now().Sub(start).Milliseconds()
	metrics.SubmissionsAccepted.WithLabelValues(slug).Inc()
	metrics.FieldsHidden.WithLabelValues(slug).Add(float64(len(res.Hidden)))
	metrics.SubmitDuration.Observe(float64(res.DurationMs))
	metrics.QueueUtilization.Set(e.QueueUtilization())
	e.logger.Info("submission stored", "form", slug, "id", sub.ID, "index", sub.Index,
		"enabled", len(res.Enabled), "hidden", len(res.Hidden))
	return res, nil
}

func (e *Engine) queueActions(p *page, user form.User, sub *form.Submission, enabled *set.Set[string]) int {
	if len(p.def.Actions) == 0 {
		return 0
	}
	src := templating.Source{
		User:       user,
		Author:     p.cfg.User(p.def.Owner),
		Form:       p.info(),
		Catalog:    p.catalog,
		Submission: sub,
		Enabled:    enabled,
	}
	actx := &action.Context{
		Submission: sub,
		Text:       templating.NewVocabulary(src, false),
		HTML:       templating.NewVocabulary(src, true),
	}
	if user.Anonymous() {
		actx.Text[templating.NSUser]["email"] = sub.Email
		actx.HTML[templating.NSUser]["email"] = sub.Email
	}

	queued := 0
	for _, def := range p.def.Actions {
		exec, err := e.actions.Get(def.Type)
		if err != nil {
			metrics.ActionsExecuted.WithLabelValues(def.Type, "error").Inc()
			e.logger.Error("action skipped", "form", p.def.Slug, "action", def.ID, "err", err)
			continue
		}
		w := &actionWork{slug: p.def.Slug, def: def, actx: actx, exec: exec, logger: e.logger}
		if !e.actionPool.Submit(w) {
			metrics.ActionsDropped.Inc()
			e.logger.Warn("action dropped, queue full", "form", p.def.Slug, "action", def.ID)
			continue
		}
		queued++
	}
	return queued
}
