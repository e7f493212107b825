package elfscope

import (
	"fmt"
	"log/slog"
	"sort"
)

// Confidence qualifies how much a [StackFrame] estimate can be trusted.
type Confidence string

const (
	ConfidenceExact     Confidence = "exact"
	ConfidenceHeuristic Confidence = "heuristic"
	ConfidenceUnknown   Confidence = "unknown"
)

// StackFrame is the Stack Analyzer's estimate of a single function's local
// stack usage.
type StackFrame struct {
	Function      *Function
	LocalBytes    uint64
	DynamicAlloca bool
	Confidence    Confidence
}

// StackReport is the per-function answer to a stack query.
type StackReport struct {
	Function             string   `json:"function"`
	LocalStackFrame      uint64   `json:"local_stack_frame"`
	StackConsumedByCalls uint64   `json:"stack_consumed_by_calls"`
	MaxTotalStack        uint64   `json:"max_total_stack"`
	MaxStackCallPath     []string `json:"max_stack_call_path"`
	IsRecursive          bool     `json:"is_recursive"`
	DynamicAlloca        bool     `json:"dynamic_alloca"`
	Confidence           string   `json:"confidence"`
}

// StackBucket is one bucket of the stack-size distribution histogram.
type StackBucket string

const (
	BucketSmall  StackBucket = "small"
	BucketMedium StackBucket = "medium"
	BucketLarge  StackBucket = "large"
	BucketHuge   StackBucket = "huge"
)

func bucketFor(bytes uint64) StackBucket {
	switch {
	case bytes < 64:
		return BucketSmall
	case bytes < 256:
		return BucketMedium
	case bytes < 1024:
		return BucketLarge
	default:
		return BucketHuge
	}
}

// HeavyFunction is one entry in a [StackSummary]'s top_k list.
type HeavyFunction struct {
	Function      string   `json:"function"`
	MaxTotalStack uint64   `json:"max_total_stack"`
	CallPath      []string `json:"max_stack_call_path"`
	StackRatio    float64  `json:"stack_ratio"`
}

// StackSummary aggregates stack consumption across every internal function.
type StackSummary struct {
	Architecture              Arch                `json:"architecture"`
	TotalFunctionsAnalyzed    int                 `json:"total_functions_analyzed"`
	FunctionWithMaxTotalStack string              `json:"function_with_max_total_stack"`
	MaxTotalStackConsumption  uint64              `json:"max_total_stack_consumption"`
	Distribution              map[StackBucket]int `json:"stack_distribution"`
	HeavyFunctions            []HeavyFunction     `json:"heavy_functions"`
}

// StackAnalyzer computes local-frame and cumulative worst-case stack
// consumption over a [CallGraph], per spec section 4.5: a prologue-window
// scan plus whole-body re-scan for the local frame, and a memoized
// post-order traversal of the SCC-condensed call graph for the cumulative
// figure, with recursive SCCs resolved by bounded unrolling.
type StackAnalyzer struct {
	graph  *CallGraph
	dis    *Disassembler
	arch   Arch
	config Config
	logger *slog.Logger

	frames map[string]*StackFrame
	totals map[string]uint64
	paths  map[string][]string
}

// NewStackAnalyzer returns a [StackAnalyzer] over graph, using dis to
// decode function bodies for prologue recovery. arch is reported in the
// summary; config supplies the external call budget, recursion depth and
// tail-call policy.
func NewStackAnalyzer(graph *CallGraph, dis *Disassembler, arch Arch, config Config, logger *slog.Logger) *StackAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StackAnalyzer{
		graph:  graph,
		dis:    dis,
		arch:   arch,
		config: config,
		logger: logger,
		frames: make(map[string]*StackFrame),
		totals: make(map[string]uint64),
		paths:  make(map[string][]string),
	}
}

// LocalFrame returns the recovered [StackFrame] for fn, computing and
// memoizing it on first call.
func (sa *StackAnalyzer) LocalFrame(fn *Function) StackFrame {
	key := nodeKey(fn)
	if f, ok := sa.frames[key]; ok {
		return *f
	}

	var f StackFrame
	if fn.Kind != SymbolInternal {
		// Imports and synthetic nodes (@unresolved, @external:*) have no
		// body to scan; the caller pays a configurable flat budget.
		f = StackFrame{Function: fn, LocalBytes: sa.config.ExternalStackBudget, Confidence: ConfidenceUnknown}
	} else {
		f = sa.scanLocalFrame(fn)
	}

	sa.frames[key] = &f
	return f
}

// scanLocalFrame implements the prologue-window scan plus whole-body
// re-scan described in spec section 4.5.
func (sa *StackAnalyzer) scanLocalFrame(fn *Function) StackFrame {
	instrs, gaps := sa.dis.Decode(fn)

	var prologueDepth, runningDepth, maxDepth int64
	inWindow := true
	dynamic := false

	for _, inst := range instrs {
		if inWindow {
			switch inst.Class {
			case ClassStackAdjust:
				if inst.DynamicStack {
					dynamic = true
					inWindow = false
					continue
				}
				runningDepth += inst.StackDelta
				if runningDepth > prologueDepth {
					prologueDepth = runningDepth
				}
			case ClassFrameSetup:
				// Zero-cost, window-extending: keep scanning the prologue.
			default:
				inWindow = false
			}
			continue
		}

		// Whole-body re-scan: catch additional constant sub-sp adjustments
		// anywhere in the body (e.g. a second alloca-sized reservation),
		// tracking the deepest point reached independent of the prologue.
		if inst.Class == ClassStackAdjust {
			if inst.DynamicStack {
				dynamic = true
				continue
			}
			runningDepth += inst.StackDelta
			if runningDepth > maxDepth {
				maxDepth = runningDepth
			}
		}
	}

	local := prologueDepth
	if maxDepth > local {
		local = maxDepth
	}
	if local < 0 {
		local = 0
	}

	confidence := ConfidenceExact
	if dynamic {
		confidence = ConfidenceUnknown
		local = 0
	} else if len(gaps) > 0 {
		confidence = ConfidenceHeuristic
	}

	return StackFrame{
		Function:      fn,
		LocalBytes:    uint64(local),
		DynamicAlloca: dynamic,
		Confidence:    confidence,
	}
}

// computeTotal memoizes max_total_stack(fn) and the call path that attains
// it, per the rules in spec section 4.5. visiting guards against a
// condensation cycle that would otherwise be impossible but is checked
// defensively since SCC computation and graph construction are separate
// passes.
func (sa *StackAnalyzer) computeTotal(fn *Function, visiting map[string]bool) (uint64, []string) {
	key := nodeKey(fn)
	if total, ok := sa.totals[key]; ok {
		return total, sa.paths[key]
	}
	if visiting[key] {
		return sa.LocalFrame(fn).LocalBytes, []string{fn.DisplayName()}
	}
	visiting[key] = true
	defer delete(visiting, key)

	local := sa.LocalFrame(fn).LocalBytes

	if sa.graph.IsRecursive(fn) {
		total, path := sa.computeRecursiveTotal(fn, visiting)
		sa.totals[key] = total
		sa.paths[key] = path
		return total, path
	}

	best := local
	var bestPath []string

	for _, e := range sa.graph.Callees(fn) {
		if nodeKey(e.Callee) == key {
			continue // self-loop already covered by IsRecursive above
		}
		calleeTotal, calleePath := sa.computeTotal(e.Callee, visiting)

		reuseFrame := e.Kind == CallTail && sa.config.TailCallPolicy == TailCallReusesCallerFrame

		var candidate uint64
		if reuseFrame {
			candidate = calleeTotal
		} else {
			candidate = local + calleeTotal
		}

		if candidate > best {
			best = candidate
			if reuseFrame && len(calleePath) > 0 {
				bestPath = append([]string{fn.DisplayName()}, calleePath[1:]...)
			} else {
				bestPath = append([]string{fn.DisplayName()}, calleePath...)
			}
		}
	}

	if bestPath == nil {
		bestPath = []string{fn.DisplayName()}
	}

	sa.totals[key] = best
	sa.paths[key] = bestPath
	return best, bestPath
}

// computeRecursiveTotal applies the bounded-unrolling heuristic: R copies
// of the SCC's worst local frame, plus the best total reachable by leaving
// the SCC entirely.
func (sa *StackAnalyzer) computeRecursiveTotal(fn *Function, visiting map[string]bool) (uint64, []string) {
	id := sa.graph.sccOf[nodeKey(fn)]
	members := sa.graph.sccMembers[id]
	memberSet := make(map[string]bool, len(members))
	for _, m := range members {
		memberSet[m] = true
	}

	var maxMemberLocal uint64
	for _, m := range members {
		mf := sa.graph.Functions[m]
		l := sa.LocalFrame(mf).LocalBytes
		if l > maxMemberLocal {
			maxMemberLocal = l
		}
	}

	var extScore uint64
	var extPath []string
	for _, m := range members {
		mf := sa.graph.Functions[m]
		for _, e := range sa.graph.Callees(mf) {
			if memberSet[nodeKey(e.Callee)] {
				continue
			}
			total, path := sa.computeTotal(e.Callee, visiting)
			if total > extScore {
				extScore = total
				extPath = path
			}
		}
	}

	r := uint64(sa.config.RecursionDepth)
	if r == 0 {
		r = 1
	}

	// A mutual cycle's R-multiplier approximates every bounce at the
	// heaviest member's frame; that alone drops the entry function's own
	// frame when it isn't the heaviest member, so floor the additive term
	// at local(fn) for true mutual recursion. A single-member SCC (direct
	// self-recursion) needs no such floor: the head is already the sole,
	// heaviest member and R copies of its frame is the whole answer.
	if len(members) > 1 {
		if local := sa.LocalFrame(fn).LocalBytes; local > extScore {
			extScore = local
		}
	}
	total := r*maxMemberLocal + extScore

	path := []string{fmt.Sprintf("%s (recursion × %d)", fn.DisplayName(), r)}
	if extPath != nil {
		path = append(path, extPath...)
	}

	return total, path
}

// FunctionStack returns the [StackReport] for the named function.
func (sa *StackAnalyzer) FunctionStack(name string) (StackReport, error) {
	fn := sa.graph.FunctionByName(name)
	if fn == nil {
		return StackReport{}, &UnknownFunctionError{Name: name}
	}

	frame := sa.LocalFrame(fn)
	total, path := sa.computeTotal(fn, make(map[string]bool))

	consumed := uint64(0)
	if total > frame.LocalBytes {
		consumed = total - frame.LocalBytes
	}

	return StackReport{
		Function:             fn.DisplayName(),
		LocalStackFrame:      frame.LocalBytes,
		StackConsumedByCalls: consumed,
		MaxTotalStack:        total,
		MaxStackCallPath:     path,
		IsRecursive:          sa.graph.IsRecursive(fn),
		DynamicAlloca:        frame.DynamicAlloca,
		Confidence:           string(frame.Confidence),
	}, nil
}

// Summary computes the aggregate [StackSummary] across every internal
// function, reporting the topK heaviest by max_total_stack (all of them if
// topK <= 0).
func (sa *StackAnalyzer) Summary(topK int) StackSummary {
	dist := map[StackBucket]int{BucketSmall: 0, BucketMedium: 0, BucketLarge: 0, BucketHuge: 0}

	type entry struct {
		fn    *Function
		total uint64
		path  []string
	}
	var all []entry

	for _, fn := range sa.graph.Functions {
		if fn.Kind != SymbolInternal {
			continue
		}
		total, path := sa.computeTotal(fn, make(map[string]bool))
		dist[bucketFor(total)]++
		all = append(all, entry{fn: fn, total: total, path: path})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].total != all[j].total {
			return all[i].total > all[j].total
		}
		return all[i].fn.Address < all[j].fn.Address
	})

	var maxTotal uint64
	var maxFn string
	if len(all) > 0 {
		maxTotal = all[0].total
		maxFn = all[0].fn.DisplayName()
	}

	if topK <= 0 || topK > len(all) {
		topK = len(all)
	}

	heavy := make([]HeavyFunction, 0, topK)
	for _, e := range all[:topK] {
		ratio := 0.0
		if maxTotal > 0 {
			ratio = float64(e.total) / float64(maxTotal)
		}
		heavy = append(heavy, HeavyFunction{
			Function:      e.fn.DisplayName(),
			MaxTotalStack: e.total,
			CallPath:      e.path,
			StackRatio:    ratio,
		})
	}

	return StackSummary{
		Architecture:              sa.arch,
		TotalFunctionsAnalyzed:    len(all),
		FunctionWithMaxTotalStack: maxFn,
		MaxTotalStackConsumption:  maxTotal,
		Distribution:              dist,
		HeavyFunctions:            heavy,
	}
}
