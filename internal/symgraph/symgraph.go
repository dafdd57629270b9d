// Package symgraph builds a linkage graph from the relocation tables of a
// container's kernels and functions.
package symgraph

import (
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"github.com/samcharles93/cisa/pkg/cisa"
)

// GlobalPrefix marks global variable nodes so they cannot collide with
// kernel or function names.
const GlobalPrefix = "@"

// Reloc is a relocation whose resolved index does not name an entry in the
// header tables.
type Reloc struct {
	From     string
	Symbolic uint16
	Resolved int16
	Variable bool
}

// Graph is a linkage graph plus the relocations that could not be placed
// in it.
type Graph struct {
	*lattice.Graph
	Unresolved []Reloc
}

// Build adds one node per kernel, function and global variable, and one
// edge per relocation. Function relocations point at the function table,
// variable relocations at the global variable table.
func Build(h cisa.Header) *Graph {
	g := &Graph{Graph: &lattice.Graph{}}

	funcs := h.Functions()
	globals := h.GlobalVariables()
	for _, k := range h.Kernels() {
		g.Nodes = append(g.Nodes, k.Name())
	}
	for _, f := range funcs {
		g.Nodes = append(g.Nodes, f.Name())
	}
	for _, v := range globals {
		g.Nodes = append(g.Nodes, GlobalPrefix+v.Name())
	}

	link := func(from string, relocs []cisa.RelocationInfo, variable bool) {
		for _, r := range relocs {
			i := int(r.ResolvedIndex())
			var callee string
			switch {
			case variable && i >= 0 && i < len(globals):
				callee = GlobalPrefix + globals[i].Name()
			case !variable && i >= 0 && i < len(funcs):
				callee = funcs[i].Name()
			default:
				g.Unresolved = append(g.Unresolved, Reloc{
					From:     from,
					Symbolic: r.SymbolicIndex(),
					Resolved: r.ResolvedIndex(),
					Variable: variable,
				})
				continue
			}
			g.Edges = append(g.Edges, lattice.Edge{Caller: from, Callee: callee})
		}
	}
	for _, k := range h.Kernels() {
		link(k.Name(), k.FunctionRelocs(), false)
		link(k.Name(), k.VariableRelocs(), true)
	}
	for _, f := range funcs {
		link(f.Name(), f.FunctionRelocs(), false)
		link(f.Name(), f.VariableRelocs(), true)
	}

	g.Dedup()
	return g
}

// DOT renders the graph in Graphviz format.
func (g *Graph) DOT(title string) string {
	return render.DOT(g.Graph, title)
}
