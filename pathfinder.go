package elfscope

import "sort"

// CallPath is one concrete sequence of call edges from a source function to
// a target function.
type CallPath struct {
	Edges []CallEdge
}

// Functions returns the path's node sequence, source first.
func (p CallPath) Functions() []*Function {
	if len(p.Edges) == 0 {
		return nil
	}
	out := make([]*Function, 0, len(p.Edges)+1)
	out = append(out, p.Edges[0].Caller)
	for _, e := range p.Edges {
		out = append(out, e.Callee)
	}
	return out
}

// PathFinder enumerates call paths over a [CallGraph].
type PathFinder struct {
	graph *CallGraph
}

// NewPathFinder returns a [PathFinder] over graph.
func NewPathFinder(graph *CallGraph) *PathFinder {
	return &PathFinder{graph: graph}
}

// FindPaths enumerates every call path from source to target no longer than
// maxDepth edges. When includeCycles is false, a path may not revisit a
// function it has already passed through; when true, a function may be
// revisited at most once, preventing true infinite unrolling while still
// surfacing a single trip around a recursive cycle. Unless allowUnresolved
// is set, a path that would traverse [UnresolvedFunction] is suppressed
// entirely, per spec.md section 4.4's edge cases. Paths are returned
// shortest-first, then in call-site address order at each divergence point.
func (pf *PathFinder) FindPaths(source, target *Function, maxDepth int, includeCycles, allowUnresolved bool) []CallPath {
	if source == nil || target == nil || maxDepth <= 0 {
		return nil
	}

	if nodeKey(source) == nodeKey(target) {
		return []CallPath{{}}
	}

	var results []CallPath
	visitCount := make(map[string]int)
	var trail []CallEdge

	var visit func(cur *Function, depth int)
	visit = func(cur *Function, depth int) {
		if depth >= maxDepth {
			return
		}
		for _, e := range pf.graph.Callees(cur) {
			if !allowUnresolved && e.Callee.Name == UnresolvedFunction {
				continue
			}

			calleeKey := nodeKey(e.Callee)

			limit := 1
			if includeCycles {
				limit = 2
			}
			if visitCount[calleeKey] >= limit {
				continue
			}

			trail = append(trail, e)
			visitCount[calleeKey]++

			if calleeKey == nodeKey(target) {
				pathCopy := append([]CallEdge(nil), trail...)
				results = append(results, CallPath{Edges: pathCopy})
			} else {
				visit(e.Callee, depth+1)
			}

			visitCount[calleeKey]--
			trail = trail[:len(trail)-1]
		}
	}

	visitCount[nodeKey(source)] = 1
	visit(source, 0)

	sort.SliceStable(results, func(i, j int) bool {
		return len(results[i].Edges) < len(results[j].Edges)
	})
	return results
}

// FindAllPaths enumerates call paths reaching target without a fixed
// source, per spec.md section 4.4: every function with no internal caller
// is a "root"; the bounded DFS runs from each root in turn and every path
// that reaches target is retained. Results are merged across roots and
// sorted by (length ascending, then lexicographic by node-name tuple), per
// the same section's ordering rule.
func (pf *PathFinder) FindAllPaths(target *Function, maxDepth int, includeCycles, allowUnresolved bool) []CallPath {
	if target == nil || maxDepth <= 0 {
		return nil
	}

	var results []CallPath
	for _, root := range pf.roots() {
		results = append(results, pf.FindPaths(root, target, maxDepth, includeCycles, allowUnresolved)...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if len(results[i].Edges) != len(results[j].Edges) {
			return len(results[i].Edges) < len(results[j].Edges)
		}
		return lessNodeNameTuple(pathNames(results[i], target), pathNames(results[j], target))
	})
	return results
}

// roots returns every internal function with no incoming call edge, in
// address order — the set spec.md section 4.4 enumerates from when no
// source is given.
func (pf *PathFinder) roots() []*Function {
	var out []*Function
	for _, fn := range pf.graph.Functions {
		if fn.Kind != SymbolInternal {
			continue
		}
		if len(pf.graph.in[nodeKey(fn)]) == 0 {
			out = append(out, fn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func pathNames(p CallPath, target *Function) []string {
	fns := p.Functions()
	if len(fns) == 0 {
		return []string{target.DisplayName()}
	}
	names := make([]string, len(fns))
	for i, fn := range fns {
		names[i] = fn.DisplayName()
	}
	return names
}

func lessNodeNameTuple(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// ShortestPath returns the shortest call path from source to target, and
// whether one exists within maxDepth edges.
func (pf *PathFinder) ShortestPath(source, target *Function, maxDepth int) (CallPath, bool) {
	paths := pf.FindPaths(source, target, maxDepth, true, false)
	if len(paths) == 0 {
		return CallPath{}, false
	}
	return paths[0], true
}
