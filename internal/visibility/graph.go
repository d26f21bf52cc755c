package visibility

import (
	"github.com/gyaneshwarpardhi/formplugins/internal/condition"
	"github.com/gyaneshwarpardhi/formplugins/internal/form"
)

// Node is one field with its parsed visibility rule.
type Node struct {
	Field *form.Field
	// Rule is nil when the field is always enabled.
	Rule condition.Node
	// Controller is the slug of the field read by a top-level leaf rule.
	// It is empty for group rules and for leaves whose target is unknown.
	Controller string
	// Err holds the parse failure of an unreadable rule; such fields are
	// never enabled.
	Err error
}

// Graph holds fields and the dependent→controller edges of their rules.
// Every field has at most one controller. It is built per request from a
// catalog and never mutated afterwards.
type Graph struct {
	catalog *form.Catalog
	nodes   map[string]*Node // slug → node
	order   []*Node          // authored order
}

func newGraph(c *form.Catalog) *Graph {
	return &Graph{
		catalog: c,
		nodes:   make(map[string]*Node, c.Len()),
	}
}

func (g *Graph) addNode(n *Node) {
	g.nodes[n.Field.Slug] = n
	g.order = append(g.order, n)
}

// Catalog returns the catalog the graph was built from.
func (g *Graph) Catalog() *form.Catalog { return g.catalog }

// Node returns the node for slug (nil if not found).
func (g *Graph) Node(slug string) *Node { return g.nodes[slug] }

// Nodes returns every node in authored order.
func (g *Graph) Nodes() []*Node { return g.order }

// Cycles returns every controller chain that loops back on itself, each
// listed once starting from its first field in authored order.
func (g *Graph) Cycles() [][]string {
	var out [][]string
	reported := make(map[string]bool)
	for _, start := range g.order {
		if reported[start.Field.Slug] {
			continue
		}
		pos := make(map[string]int)
		var chain []string
		for n := start; n != nil; n = g.nodes[n.Controller] {
			slug := n.Field.Slug
			if i, seen := pos[slug]; seen {
				cycle := chain[i:]
				for _, s := range cycle {
					reported[s] = true
				}
				out = append(out, cycle)
				break
			}
			if reported[slug] || n.Controller == "" {
				break
			}
			pos[slug] = len(chain)
			chain = append(chain, slug)
		}
	}
	return out
}
