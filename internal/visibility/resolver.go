package visibility

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-set/v2"

	"github.com/gyaneshwarpardhi/formplugins/internal/condition"
	"github.com/gyaneshwarpardhi/formplugins/internal/form"
)

// ErrCycle marks fields whose controller chain loops back on itself.
var ErrCycle = errors.New("visibility rules form a cycle")

// Filter reports whether a field must be left out of the enabled set
// before any rule is evaluated.
type Filter func(f *form.Field) bool

// ExcludeLabels drops presentation-only label fields.
func ExcludeLabels(f *form.Field) bool { return f.Type == form.TypeLabel }

// Resolver computes the enabled set of a submission.
type Resolver struct {
	Evaluator *condition.Evaluator
	Filters   []Filter
	Logger    *slog.Logger
}

// NewResolver returns a resolver evaluating rules with e.
func NewResolver(e *condition.Evaluator, logger *slog.Logger, filters ...Filter) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{Evaluator: e, Filters: filters, Logger: logger}
}

// Resolve returns the slugs of the fields enabled for values.
//
// A field without a rule is enabled. A field with a rule is enabled when the
// rule holds and, for a top-level leaf, the controlling field is itself
// enabled, transitively. Unreadable rules and controller cycles disable the
// field. The only error returned is a strict evaluator's ErrUnknownField.
func (r *Resolver) Resolve(c *form.Catalog, values form.Values) (*set.Set[string], error) {
	return r.ResolveGraph(Build(c), values)
}

// ResolveGraph is Resolve over an already built graph.
func (r *Resolver) ResolveGraph(g *Graph, values form.Values) (*set.Set[string], error) {
	res := &resolution{
		r:      r,
		g:      g,
		values: values,
		state:  make(map[string]visit, len(g.Nodes())),
	}
	enabled := set.New[string](len(g.Nodes()))
	for _, n := range g.Nodes() {
		ok, err := res.enabled(n.Field.Slug)
		if err != nil {
			return nil, err
		}
		if ok {
			enabled.Insert(n.Field.Slug)
		}
	}
	return enabled, nil
}

func (r *Resolver) excluded(f *form.Field) bool {
	for _, filter := range r.Filters {
		if filter(f) {
			return true
		}
	}
	return false
}

type visit int

const (
	unvisited visit = iota
	visiting
	enabledField
	disabledField
)

// resolution is the memo of one Resolve call.
type resolution struct {
	r      *Resolver
	g      *Graph
	values form.Values
	state  map[string]visit
}

func (s *resolution) enabled(slug string) (bool, error) {
	switch s.state[slug] {
	case enabledField:
		return true, nil
	case disabledField:
		return false, nil
	case visiting:
		s.r.Logger.Warn("field hidden", "field", slug, "err", errors.Wrapf(ErrCycle, "at %s", slug))
		return false, nil
	}

	n := s.g.Node(slug)
	if n == nil || s.r.excluded(n.Field) {
		s.state[slug] = disabledField
		return false, nil
	}

	s.state[slug] = visiting
	ok, err := s.decide(n)
	if err != nil {
		return false, err
	}
	if ok {
		s.state[slug] = enabledField
	} else {
		s.state[slug] = disabledField
	}
	return ok, nil
}

func (s *resolution) decide(n *Node) (bool, error) {
	if n.Err != nil {
		s.r.Logger.Warn("field hidden, unreadable rule", "field", n.Field.Slug, "err", n.Err)
		return false, nil
	}
	if n.Rule == nil {
		return true, nil
	}
	ok, err := s.r.Evaluator.Evaluate(n.Rule, s.values, s.g.Catalog())
	if err != nil {
		return false, errors.Wrapf(err, "field %s", n.Field.Slug)
	}
	if !ok || n.Controller == "" {
		return ok, nil
	}
	return s.enabled(n.Controller)
}
