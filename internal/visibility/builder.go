package visibility

import (
	"github.com/gyaneshwarpardhi/formplugins/internal/condition"
	"github.com/gyaneshwarpardhi/formplugins/internal/form"
)

// Build parses the rule of every field of c and links each field to its
// controlling field. Parse failures are recorded on the node rather than
// returned so that one broken rule only hides its own field.
func Build(c *form.Catalog) *Graph {
	g := newGraph(c)
	for _, f := range c.Fields() {
		n := &Node{Field: f}
		rule, err := condition.ParseField(f)
		switch {
		case err != nil:
			n.Err = err
		case rule != nil:
			n.Rule = rule
			if target, ok := condition.Controller(rule); ok {
				if ctrl, found := c.ByBlockID(target); found {
					n.Controller = ctrl.Slug
				}
			}
		}
		g.addNode(n)
	}
	return g
}
