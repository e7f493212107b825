package elfscope

import "fmt"

// NotAnElfError is returned by [Load] when the file's magic or class/data
// header bytes are invalid.
type NotAnElfError struct {
	Path   string
	Reason string
}

func (e *NotAnElfError) Error() string {
	return fmt.Sprintf("%s: not an ELF file: %s", e.Path, e.Reason)
}

// UnsupportedArchError is returned by [Load] when the ELF machine field has
// no corresponding disassembler backend.
type UnsupportedArchError struct {
	Path    string
	Machine uint16
}

func (e *UnsupportedArchError) Error() string {
	return fmt.Sprintf("%s: unsupported architecture (e_machine=0x%x)", e.Path, e.Machine)
}

// TruncatedFileError is returned by [Load] when a section or segment
// header references an offset or size outside the file.
type TruncatedFileError struct {
	Path   string
	Reason string
}

func (e *TruncatedFileError) Error() string {
	return fmt.Sprintf("%s: truncated file: %s", e.Path, e.Reason)
}

// UnknownFunctionError is returned by query components ([PathFinder],
// [StackAnalyzer], [CallGraph]) when a caller names a function that is not
// a node in the graph.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function: %q", e.Name)
}

// AnalysisAbortedError signals a catastrophic, non-recoverable failure
// during graph construction (broken invariant, resource exhaustion). It is
// never returned for decode-level or heuristic-level uncertainty, which is
// instead encoded in the result (confidence fields, dynamic_alloca,
// @unresolved nodes).
type AnalysisAbortedError struct {
	Reason string
}

func (e *AnalysisAbortedError) Error() string {
	return fmt.Sprintf("analysis aborted: %s", e.Reason)
}
