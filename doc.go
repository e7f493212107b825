// Package elfscope recovers the inter-procedural call graph of an ELF
// executable or shared object through static disassembly, and derives two
// views on top of it:
//
//   - all call paths between two named functions ([PathFinder]), and
//   - per-function worst-case stack consumption along reachable call
//     chains ([StackAnalyzer]).
//
// # Pipeline
//
// The package is a four-stage, leaf-first pipeline:
//
//  1. [Load] opens an ELF file, validates it, and yields an [ElfInfo]
//     describing its architecture, sections, functions and imports.
//  2. [NewDisassembler] wraps a multi-arch decoder selected by the
//     architecture in [ElfInfo]; [Disassembler.Decode] lazily decodes and
//     caches a function's instruction stream.
//  3. [BuildCallGraph] walks every function's decoded instructions and
//     produces a [CallGraph]: a directed multigraph of [CallEdge] whose
//     nodes are [Function] values.
//  4. [NewPathFinder] and [NewStackAnalyzer] answer queries over the frozen
//     graph without mutating it.
//
// Every public entry point returns a complete result; there is no
// background worker and no cancellation beyond what the caller's own
// context plumbing provides. Disassembly may be parallelized per function
// since each function's bytes and instruction cache are independent, but
// [BuildCallGraph] always assembles edges in function-address order so
// repeated runs on the same input produce byte-identical output.
//
// Dynamic call tracing, data-flow-based indirect call resolution and sound
// recursion bounds are explicitly out of scope; indirect and
// register/memory-computed call targets become edges to a synthetic
// "@unresolved" node instead, and recursive stack cost is a configurable
// bounded-unrolling heuristic, not a proof.
package elfscope

// UnresolvedFunction is the synthetic sink every indirect or otherwise
// statically-unresolvable call edge targets.
const UnresolvedFunction = "@unresolved"
