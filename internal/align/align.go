// Package align derives, for every random variable (a Lap() site
// rewritten by internal/transform into a sample_array read), the set of
// branch conditions and dynamically-tracked variables its final value
// can depend on — the E/V sets of spec.md §4.3 — and emits the nested
// ternary "alignment template" (and, with shadow tracking enabled, the
// matching selector template) that internal/driver splices into the
// generated C as a macro. Grounded on
// original_source/checkdp/transform/random_distance.py.
package align

import (
	"fmt"
	"strings"

	"github.com/katalvlaran/lvlath/graph/algorithms"
	"github.com/katalvlaran/lvlath/graph/core"

	"checkdp/internal/ast"
	"checkdp/internal/cas"
	"checkdp/internal/typeenv"
)

// AlignmentIndexType tags each cell of the alignment_array/selector
// arguments the driver has to fill in: a synthesized coefficient
// (Variable), a free constant (Constant), or a 0/1 branch pick
// (Selector) used only by a selector template.
type AlignmentIndexType int

const (
	Variable AlignmentIndexType = iota
	Constant
	Selector
)

// Template is one random variable's collected E/V sets: the branch
// conditions it is reachable under (in nesting/visit order, each distinct
// condition text kept once) and the dynamically-tracked
// variables alive at its declaration that a later assertion depends on.
type Template struct {
	Conditions []string
	Variables  []string
}

var reservedPrefixes = []string{"aligned_", "shadow_", "sample_", "selector_", "v_epsilon"}

func isReserved(name string) bool {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Generator walks an instrumented function and builds one Template per
// random variable. It is a conservative approximation of the original's
// exact liveness-queue algorithm: dependencies are tracked by variable
// name through a simple assignment map, and a variable it has not yet
// seen declared is treated as not-yet-live (so it cannot contribute to
// an earlier random variable's template) — the same effect the original
// achieves by snapshotting the dependency map's key set at declaration
// time.
type Generator struct {
	types        *typeenv.TypeSystem
	enableShadow bool

	depends   map[string][]depRef
	liveAt    map[string]map[string]bool
	templates map[string]*Template
	order     []string
	visited   map[*ast.Assert]bool
}

// depRef is one identifier occurrence reached while building the
// dependency map: the variable name plus whether it was referenced
// through a subscript (*ast.ArrayRef) or bare (*ast.IdentExpr). An array
// variable reached only through bare occurrences never contributes to a
// template's V-set (random_distance.py:123-128's "ignore plain reference
// to array variable ... without subscript").
type depRef struct {
	Name       string
	IsArrayRef bool
}

func NewGenerator(types *typeenv.TypeSystem, enableShadow bool) *Generator {
	return &Generator{
		types:        types,
		enableShadow: enableShadow,
		depends:      make(map[string][]depRef),
		liveAt:       make(map[string]map[string]bool),
		templates:    make(map[string]*Template),
		visited:      make(map[*ast.Assert]bool),
	}
}

// Generate returns the collected templates, in random-variable
// declaration order (Order), and mutates nothing in fn.
func (g *Generator) Generate(fn *ast.FuncDef) ([]string, map[string]*Template) {
	g.walkBlock(fn.Body)
	return g.order, g.templates
}

func (g *Generator) walkBlock(b *ast.Block) {
	if b == nil {
		return
	}
	for _, stmt := range b.Stmts {
		g.walkStmt(stmt)
	}
}

func (g *Generator) walkStmt(stmt ast.Stmt) {
	switch n := stmt.(type) {
	case *ast.Decl:
		if ref, ok := n.Init.(*ast.ArrayRef); ok && ref.Name == "sample_array" {
			g.registerRandomVar(n.Name)
			return
		}
		if n.Init != nil {
			g.depends[n.Name] = referencedRefs(n.Init)
		}

	case *ast.Assign:
		name, ok := targetName(n.Target)
		if ok {
			g.depends[name] = referencedRefs(n.Value)
		}

	case *ast.Output:
		g.addDependencies(n.Value, nil)

	case *ast.Assert:
		if !g.visited[n] {
			g.addDependencies(n.Cond, nil)
		}

	case *ast.If:
		if hasReservedIdent(n.Cond) {
			// Skip the shadow-mirror if transformIf emits alongside.
			return
		}
		if assertion, ok := firstAssert(n.Then); ok && !g.visited[assertion] {
			g.visited[assertion] = true
			if elseAssert, ok := firstAssert(n.Else); ok {
				g.visited[elseAssert] = true
			}
			g.addDependencies(assertion.Cond, n.Cond)
		}
		g.walkBlock(n.Then)
		g.walkBlock(n.Else)

	case *ast.While:
		g.walkBlock(n.Body)
		for _, name := range identNames(n.Cond) {
			delete(g.depends, name)
		}

	case *ast.Block:
		g.walkBlock(n)
	}
}

func firstAssert(b *ast.Block) (*ast.Assert, bool) {
	if b == nil || len(b.Stmts) == 0 {
		return nil, false
	}
	a, ok := b.Stmts[0].(*ast.Assert)
	return a, ok
}

func targetName(e ast.Expr) (string, bool) {
	switch n := e.(type) {
	case *ast.IdentExpr:
		return n.Name, true
	case *ast.ArrayRef:
		return n.Name, true
	default:
		return "", false
	}
}

func (g *Generator) registerRandomVar(name string) {
	g.templates[name] = &Template{}
	g.depends[name] = nil
	live := make(map[string]bool, len(g.depends))
	for k := range g.depends {
		live[k] = true
	}
	g.liveAt[name] = live
	g.order = append(g.order, name)
}

// addDependencies is the E/V-set collection step: for every random
// variable transitively referenced by expr, record ifCond (when the
// dependency chain is alive at that variable's declaration) and record
// every alive, dynamically-tracked variable the chain passes through. A
// dynamically-tracked array is excluded from the V-set unless some
// occurrence in the chain actually subscripted it (random_distance.py
// :123-128 — a bare reference to the whole array carries no index to
// generate a template against).
func (g *Generator) addDependencies(expr ast.Expr, ifCond ast.Expr) {
	deps, arrayRefSeen := g.transitiveDepends(expr)
	for randomVar, tmpl := range g.templates {
		if !containsName(deps, randomVar) {
			continue
		}
		live := g.liveAt[randomVar]
		if ifCond != nil && allLive(deps, live) {
			tmpl.Conditions = appendUnique(tmpl.Conditions, ifCond.String())
		}
		for _, dep := range deps {
			if dep == randomVar || !live[dep] {
				continue
			}
			info, ok := g.types.GetTypes(dep)
			if !ok || !info.Aligned.IsStar() {
				continue
			}
			if info.IsArray && !arrayRefSeen[dep] {
				continue
			}
			tmpl.Variables = appendUnique(tmpl.Variables, dep)
		}
	}
}

func allLive(deps []string, live map[string]bool) bool {
	for _, d := range deps {
		if !live[d] {
			return false
		}
	}
	return true
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func appendUnique(list []string, item string) []string {
	if containsName(list, item) {
		return list
	}
	return append(list, item)
}

// transitiveDepends follows g.depends from expr's own identifier
// references until it reaches a fixed point, mirroring _all_depends'
// breadth-first closure. The closure itself is computed by running
// graph/algorithms.BFS over a one-shot graph/core.Graph built from the
// dependency map reachable from expr, rather than a hand-rolled
// worklist, since the dependency chain a random variable's template
// needs is exactly BFS's reachable set from its root identifiers.
// Alongside the reachable names it returns arrayRefSeen, recording which
// of those names were ever reached through a subscripted occurrence
// (*ast.ArrayRef) rather than only a bare one (*ast.IdentExpr) — the
// structural fact addDependencies needs to replicate random_distance.py
// :123-128's bare-array exclusion.
func (g *Generator) transitiveDepends(expr ast.Expr) ([]string, map[string]bool) {
	roots := identRefs(expr)
	dg := core.NewGraph(true, false)
	arrayRefSeen := make(map[string]bool)

	var addWithDeps func(name string)
	added := make(map[string]bool)
	addWithDeps = func(name string) {
		if added[name] || isReserved(name) {
			return
		}
		added[name] = true
		dg.AddVertex(&core.Vertex{ID: name})
		for _, dep := range g.depends[name] {
			if dep.IsArrayRef && !isReserved(dep.Name) {
				arrayRefSeen[dep.Name] = true
			}
			addWithDeps(dep.Name)
			if !isReserved(dep.Name) {
				dg.AddEdge(name, dep.Name, 0)
			}
		}
	}
	root := "\x00root"
	dg.AddVertex(&core.Vertex{ID: root})
	for _, r := range roots {
		if isReserved(r.Name) {
			continue
		}
		if r.IsArrayRef {
			arrayRefSeen[r.Name] = true
		}
		addWithDeps(r.Name)
		dg.AddEdge(root, r.Name, 0)
	}

	res, err := algorithms.BFS(dg, root, nil)
	if err != nil {
		return nil, arrayRefSeen
	}
	order := make([]string, 0, len(res.Order))
	for _, v := range res.Order {
		if v.ID == root {
			continue
		}
		order = append(order, v.ID)
	}
	return order, arrayRefSeen
}

// identRefs walks e and collects every identifier/array-element
// reference, tagging each with whether it was subscripted. An ArrayRef's
// own index expression is walked too (e.g. "q[i]" also references "i"
// as a bare identifier).
func identRefs(e ast.Expr) []depRef {
	var refs []depRef
	var walk func(ast.Expr)
	walk = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.IdentExpr:
			refs = append(refs, depRef{Name: n.Name})
		case *ast.ArrayRef:
			refs = append(refs, depRef{Name: n.Name, IsArrayRef: true})
			walk(n.Index)
		case *ast.BinaryExpr:
			walk(n.Left)
			walk(n.Right)
		case *ast.UnaryExpr:
			walk(n.Operand)
		case *ast.TernaryExpr:
			walk(n.Cond)
			walk(n.Then)
			walk(n.Else)
		case *ast.ParenExpr:
			walk(n.Inner)
		case *ast.CallExpr:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return refs
}

func identNames(e ast.Expr) []string {
	refs := identRefs(e)
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	return names
}

func referencedRefs(e ast.Expr) []depRef {
	var out []depRef
	for _, r := range identRefs(e) {
		if !isReserved(r.Name) {
			out = append(out, r)
		}
	}
	return out
}

func hasReservedIdent(e ast.Expr) bool {
	for _, n := range identNames(e) {
		if isReserved(n) {
			return true
		}
	}
	return false
}

// GenerateRandomDistance recursively nests a ternary over conditions,
// bottoming out at an alignment_array read optionally weighted by
// coefficients for each variable — spec.md §4.3's synthesis template
// shape. Grounded on random_distance.py's _generate_random_distance.
func GenerateRandomDistance(conditions, variables []string, types *[]AlignmentIndexType, isSelector bool) string {
	if len(conditions) == 0 {
		start := len(*types)
		parts := []string{fmt.Sprintf("alignment_array[%d]", start)}
		if isSelector {
			*types = append(*types, Selector)
		} else {
			*types = append(*types, Constant)
		}
		for i, v := range variables {
			parts = append(parts, fmt.Sprintf("alignment_array[%d] * %s", start+1+i, v))
			*types = append(*types, Variable)
		}
		return "(" + strings.Join(parts, " + ") + ")"
	}
	left := GenerateRandomDistance(conditions[1:], variables, types, isSelector)
	right := GenerateRandomDistance(conditions[1:], variables, types, isSelector)
	return fmt.Sprintf("(%s ? %s : %s)", conditions[0], left, right)
}

// Macro is one "#define" line the driver prepends to the instrumented
// source: the RANDOM_DISTANCE_<name> template, and — with shadow
// tracking enabled — the matching SELECTOR_<name> template.
type Macro struct {
	Name string
	Text string
}

// GenerateMacros turns the collected templates into the macro text the
// driver needs, plus the combined alignment_array shape every template
// advances through (so the driver knows how many ints CEGIS must
// synthesize). Grounded on random_distance.py's generate_macros.
func GenerateMacros(fn *ast.FuncDef, types *typeenv.TypeSystem, enableShadow bool) ([]Macro, []AlignmentIndexType) {
	g := NewGenerator(types, enableShadow)
	order, templates := g.Generate(fn)

	var macros []Macro
	var arrayTypes []AlignmentIndexType
	distanceGen := cas.DistanceGenerator{Types: types}

	for _, name := range order {
		tmpl := templates[name]
		if enableShadow {
			var selectorTemplate string
			if len(tmpl.Conditions) == 0 {
				selectorTemplate = "SELECT_ALIGNED"
			} else {
				selectorTemplate = GenerateRandomDistance(tmpl.Conditions, nil, &arrayTypes, true)
			}
			macros = append(macros, Macro{Name: "SELECTOR_" + name, Text: selectorTemplate})
		}

		distanceVars := make([]string, 0, len(tmpl.Variables))
		for _, v := range tmpl.Variables {
			aligned, _ := distanceGen.Visit(&ast.IdentExpr{Name: v})
			distanceVars = append(distanceVars, aligned.String())
		}
		template := GenerateRandomDistance(tmpl.Conditions, distanceVars, &arrayTypes, false)
		macros = append(macros, Macro{Name: "RANDOM_DISTANCE_" + name, Text: template})
	}

	return macros, arrayTypes
}
