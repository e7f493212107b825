package elfscope

import "testing"

func mustDis(t *testing.T) *Disassembler {
	t.Helper()
	dis, err := NewDisassembler(ArchX86_64, nil)
	if err != nil {
		t.Fatalf("NewDisassembler: %v", err)
	}
	return dis
}

func TestStackAnalyzer_LocalFrame_SimplePrologue(t *testing.T) {
	// push rbp; sub rsp, 0x18
	code := []byte{0x55, 0x48, 0x83, 0xec, 0x18}
	fn := &Function{Name: "leaf", Address: 0x1000, Size: uint64(len(code)), Kind: SymbolInternal, raw: code}

	cg, _ := newTestGraph()
	cg.register(fn)
	cg.computeSCC()

	cfg := DefaultConfig()
	sa := NewStackAnalyzer(cg, mustDis(t), ArchX86_64, cfg, nil)

	frame := sa.LocalFrame(fn)
	if frame.LocalBytes != 8+0x18 {
		t.Errorf("local bytes = %d, want %d", frame.LocalBytes, 8+0x18)
	}
	if frame.Confidence != ConfidenceExact {
		t.Errorf("confidence = %s, want exact", frame.Confidence)
	}
	if frame.DynamicAlloca {
		t.Error("dynamic alloca should be false")
	}
}

func TestStackAnalyzer_LocalFrame_ExternalBudget(t *testing.T) {
	fn := &Function{Name: "puts", Kind: SymbolImported}

	cg, _ := newTestGraph()
	cg.register(fn)
	cg.computeSCC()

	cfg := DefaultConfig()
	sa := NewStackAnalyzer(cg, mustDis(t), ArchX86_64, cfg, nil)

	frame := sa.LocalFrame(fn)
	if frame.LocalBytes != cfg.ExternalStackBudget {
		t.Errorf("local bytes = %d, want external budget %d", frame.LocalBytes, cfg.ExternalStackBudget)
	}
	if frame.Confidence != ConfidenceUnknown {
		t.Errorf("confidence = %s, want unknown", frame.Confidence)
	}
}

func TestStackAnalyzer_ComputeTotal_SimpleChain(t *testing.T) {
	// a: push rbp (8 bytes local)
	codeA := []byte{0x55}
	// b: sub rsp, 0x18 (0x18 bytes local)
	codeB := []byte{0x48, 0x83, 0xec, 0x18}

	a := &Function{Name: "a", Address: 0x1000, Size: uint64(len(codeA)), Kind: SymbolInternal, raw: codeA}
	b := &Function{Name: "b", Address: 0x2000, Size: uint64(len(codeB)), Kind: SymbolInternal, raw: codeB}

	cg, _ := newTestGraph()
	cg.register(a)
	cg.register(b)
	cg.link(a, b, 0x1001, CallDirect)
	cg.computeSCC()

	sa := NewStackAnalyzer(cg, mustDis(t), ArchX86_64, DefaultConfig(), nil)

	report, err := sa.FunctionStack("a")
	if err != nil {
		t.Fatalf("FunctionStack: %v", err)
	}
	wantTotal := uint64(8 + 0x18)
	if report.MaxTotalStack != wantTotal {
		t.Errorf("max total stack = %d, want %d", report.MaxTotalStack, wantTotal)
	}
	if len(report.MaxStackCallPath) != 2 || report.MaxStackCallPath[0] != "a" || report.MaxStackCallPath[1] != "b" {
		t.Errorf("unexpected call path: %+v", report.MaxStackCallPath)
	}
	if report.IsRecursive {
		t.Error("a should not be flagged recursive")
	}
}

func TestStackAnalyzer_TailCallReusesCallerFrame(t *testing.T) {
	codeA := []byte{0x55}                   // push rbp: 8 bytes local
	codeB := []byte{0x48, 0x83, 0xec, 0x18} // sub rsp, 0x18: 24 bytes local

	a := &Function{Name: "a", Address: 0x1000, Size: uint64(len(codeA)), Kind: SymbolInternal, raw: codeA}
	b := &Function{Name: "b", Address: 0x2000, Size: uint64(len(codeB)), Kind: SymbolInternal, raw: codeB}

	cg, _ := newTestGraph()
	cg.register(a)
	cg.register(b)
	cg.link(a, b, 0x1001, CallTail)
	cg.computeSCC()

	cfg := DefaultConfig()
	cfg.TailCallPolicy = TailCallReusesCallerFrame
	sa := NewStackAnalyzer(cg, mustDis(t), ArchX86_64, cfg, nil)

	report, err := sa.FunctionStack("a")
	if err != nil {
		t.Fatalf("FunctionStack: %v", err)
	}
	// Reuse policy: total(a) = max(local(a), total(b)) = max(8, 24) = 24,
	// not 8 + 24 as an ordinary call would produce.
	if report.MaxTotalStack != 24 {
		t.Errorf("max total stack = %d, want 24 (tail-call frame reuse)", report.MaxTotalStack)
	}
}

func TestStackAnalyzer_TailCallAddsCallerFrameWhenConfigured(t *testing.T) {
	codeA := []byte{0x55}
	codeB := []byte{0x48, 0x83, 0xec, 0x18}

	a := &Function{Name: "a", Address: 0x1000, Size: uint64(len(codeA)), Kind: SymbolInternal, raw: codeA}
	b := &Function{Name: "b", Address: 0x2000, Size: uint64(len(codeB)), Kind: SymbolInternal, raw: codeB}

	cg, _ := newTestGraph()
	cg.register(a)
	cg.register(b)
	cg.link(a, b, 0x1001, CallTail)
	cg.computeSCC()

	cfg := DefaultConfig()
	cfg.TailCallPolicy = TailCallAddsCallerFrame
	sa := NewStackAnalyzer(cg, mustDis(t), ArchX86_64, cfg, nil)

	report, err := sa.FunctionStack("a")
	if err != nil {
		t.Fatalf("FunctionStack: %v", err)
	}
	if report.MaxTotalStack != 8+24 {
		t.Errorf("max total stack = %d, want %d (frame not reused)", report.MaxTotalStack, 8+24)
	}
}

func TestStackAnalyzer_RecursiveFunction(t *testing.T) {
	// push rbp; sub rsp, 0x10: 24 bytes local
	code := []byte{0x55, 0x48, 0x83, 0xec, 0x10}
	rec := &Function{Name: "rec", Address: 0x1000, Size: uint64(len(code)), Kind: SymbolInternal, raw: code}

	cg, _ := newTestGraph()
	cg.register(rec)
	cg.link(rec, rec, 0x1001, CallDirect)
	cg.computeSCC()

	cfg := DefaultConfig()
	cfg.RecursionDepth = 10
	sa := NewStackAnalyzer(cg, mustDis(t), ArchX86_64, cfg, nil)

	report, err := sa.FunctionStack("rec")
	if err != nil {
		t.Fatalf("FunctionStack: %v", err)
	}
	if !report.IsRecursive {
		t.Error("rec should be flagged recursive")
	}
	want := uint64(10 * 24)
	if report.MaxTotalStack != want {
		t.Errorf("max total stack = %d, want %d (R * local)", report.MaxTotalStack, want)
	}
}

func TestStackAnalyzer_MutualRecursion(t *testing.T) {
	// a: sub rsp, 0x10 (16 bytes local)
	codeA := []byte{0x48, 0x83, 0xec, 0x10}
	// b: sub rsp, 0x18 (24 bytes local)
	codeB := []byte{0x48, 0x83, 0xec, 0x18}

	a := &Function{Name: "a", Address: 0x1000, Size: uint64(len(codeA)), Kind: SymbolInternal, raw: codeA}
	b := &Function{Name: "b", Address: 0x2000, Size: uint64(len(codeB)), Kind: SymbolInternal, raw: codeB}

	cg, _ := newTestGraph()
	cg.register(a)
	cg.register(b)
	cg.link(a, b, 0x1001, CallDirect)
	cg.link(b, a, 0x2001, CallDirect)
	cg.computeSCC()

	cfg := DefaultConfig()
	cfg.RecursionDepth = 10
	sa := NewStackAnalyzer(cg, mustDis(t), ArchX86_64, cfg, nil)

	report, err := sa.FunctionStack("a")
	if err != nil {
		t.Fatalf("FunctionStack: %v", err)
	}
	if !report.IsRecursive {
		t.Error("a should be flagged recursive")
	}
	// R * max(local(a), local(b)) + local(a) = 10*24 + 16 = 256.
	want := uint64(10*24 + 16)
	if report.MaxTotalStack != want {
		t.Errorf("max total stack = %d, want %d", report.MaxTotalStack, want)
	}
}

func TestStackAnalyzer_Summary_MaxStackTieBreakIsDeterministic(t *testing.T) {
	// Both functions reserve the same 0x18 bytes, so their totals tie; the
	// winner must be picked by address order, not map iteration order.
	code := []byte{0x48, 0x83, 0xec, 0x18}
	hi := &Function{Name: "hi", Address: 0x9000, Size: uint64(len(code)), Kind: SymbolInternal, raw: code}
	lo := &Function{Name: "lo", Address: 0x1000, Size: uint64(len(code)), Kind: SymbolInternal, raw: code}

	cg, _ := newTestGraph()
	cg.register(hi)
	cg.register(lo)
	cg.computeSCC()

	sa := NewStackAnalyzer(cg, mustDis(t), ArchX86_64, DefaultConfig(), nil)
	summary := sa.Summary(0)

	if summary.FunctionWithMaxTotalStack != "lo" {
		t.Errorf("function with max total stack = %q, want %q (lowest address on a tie)", summary.FunctionWithMaxTotalStack, "lo")
	}
}

func TestStackAnalyzer_Summary_BucketsAndTop(t *testing.T) {
	small := &Function{Name: "small", Address: 0x1000, Size: 1, Kind: SymbolInternal, raw: []byte{0x55}}
	// sub rsp, 0x200
	hugeCode := []byte{0x48, 0x81, 0xec, 0x00, 0x02, 0x00, 0x00}
	huge := &Function{Name: "huge", Address: 0x2000, Size: uint64(len(hugeCode)), Kind: SymbolInternal, raw: hugeCode}

	cg, _ := newTestGraph()
	cg.register(small)
	cg.register(huge)
	cg.computeSCC()

	sa := NewStackAnalyzer(cg, mustDis(t), ArchX86_64, DefaultConfig(), nil)
	summary := sa.Summary(1)

	if summary.TotalFunctionsAnalyzed != 2 {
		t.Errorf("total functions analyzed = %d, want 2", summary.TotalFunctionsAnalyzed)
	}
	if len(summary.HeavyFunctions) != 1 {
		t.Errorf("expected top-1 heavy function, got %d", len(summary.HeavyFunctions))
	}
}
