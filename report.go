package elfscope

import "sort"

// ToolVersion is embedded in the call-relationship report's metadata and
// the RPC envelope's metadata field.
const ToolVersion = "0.1.0"

// ReportMetadata is the metadata block of a [CallRelationshipReport].
type ReportMetadata struct {
	ToolName            string `json:"tool_name"`
	Version             string `json:"version"`
	ExportTime          string `json:"export_time"`
	ElfFile             string `json:"elf_file"`
	Architecture        Arch   `json:"architecture"`
	TailCallStackPolicy string `json:"tail_call_stack_policy"`
}

func newMetadata(info *ElfInfo, config Config, exportTime string) ReportMetadata {
	return ReportMetadata{
		ToolName:            "elfscope",
		Version:             ToolVersion,
		ExportTime:          exportTime,
		ElfFile:             info.Path,
		Architecture:        info.Arch,
		TailCallStackPolicy: string(config.TailCallPolicy),
	}
}

// FunctionEntry is one entry in a [CallRelationshipReport]'s functions map.
type FunctionEntry struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Size     uint64 `json:"size"`
	Type     string `json:"type"`
	External bool   `json:"external"`
}

// CallRelationship is one edge in a [CallRelationshipReport].
type CallRelationship struct {
	FromFunction string `json:"from_function"`
	ToFunction   string `json:"to_function"`
	FromAddress  string `json:"from_address"`
	ToAddress    string `json:"to_address"`
	Instruction  string `json:"instruction"`
	Type         string `json:"type"`
}

// CallRelationshipStatistics summarizes a [CallRelationshipReport].
type CallRelationshipStatistics struct {
	TotalFunctions      int     `json:"total_functions"`
	TotalCalls          int     `json:"total_calls"`
	ExternalFunctions   int     `json:"external_functions"`
	RecursiveFunctions  int     `json:"recursive_functions"`
	CycleCount          int     `json:"cycle_count"`
	AverageCallsPerFunc float64 `json:"average_calls_per_function"`
}

// CallRelationshipReport is the full-binary call graph export.
type CallRelationshipReport struct {
	Metadata          ReportMetadata             `json:"metadata"`
	Functions         map[string]FunctionEntry   `json:"functions"`
	CallRelationships []CallRelationship         `json:"call_relationships"`
	Statistics        CallRelationshipStatistics `json:"statistics"`
}

// BuildCallRelationshipReport renders graph as the full call-relationship
// export described in the RPC/CLI contract's "analyze" verb.
func BuildCallRelationshipReport(info *ElfInfo, graph *CallGraph, config Config, exportTime string) CallRelationshipReport {
	functions := make(map[string]FunctionEntry, len(graph.Functions))
	recursive := 0
	external := 0

	for _, fn := range graph.Functions {
		typ := fn.Kind.String()
		functions[fn.Name] = FunctionEntry{
			Name:     fn.DisplayName(),
			Address:  "0x" + uintToHex(fn.Address),
			Size:     fn.Size,
			Type:     typ,
			External: fn.Kind != SymbolInternal,
		}
		if fn.Kind != SymbolInternal {
			external++
		}
		if fn.Kind == SymbolInternal && graph.IsRecursive(fn) {
			recursive++
		}
	}

	relationships := make([]CallRelationship, 0, len(graph.Edges))
	for _, e := range graph.Edges {
		relationships = append(relationships, CallRelationship{
			FromFunction: e.Caller.DisplayName(),
			ToFunction:   e.Callee.DisplayName(),
			FromAddress:  "0x" + uintToHex(e.Site),
			ToAddress:    "0x" + uintToHex(e.Callee.Address),
			Instruction:  e.Kind.String(),
			Type:         e.Kind.String(),
		})
	}
	sort.Slice(relationships, func(i, j int) bool { return relationships[i].FromAddress < relationships[j].FromAddress })

	avg := 0.0
	if len(info.Functions) > 0 {
		avg = float64(len(graph.Edges)) / float64(len(info.Functions))
	}

	return CallRelationshipReport{
		Metadata:          newMetadata(info, config, exportTime),
		Functions:         functions,
		CallRelationships: relationships,
		Statistics: CallRelationshipStatistics{
			TotalFunctions:      len(info.Functions),
			TotalCalls:          len(graph.Edges),
			ExternalFunctions:   external,
			RecursiveFunctions:  recursive,
			CycleCount:          len(graph.Cycles()),
			AverageCallsPerFunc: avg,
		},
	}
}

// PathQuery records the parameters a path query ran with.
type PathQuery struct {
	TargetFunction string `json:"target_function"`
	SourceFunction string `json:"source_function,omitempty"`
	MaxDepth       int    `json:"max_depth"`
}

// PathStep is one hop of a rendered [PathEntry].
type PathStep struct {
	Step  int      `json:"step"`
	From  string   `json:"from"`
	To    string   `json:"to"`
	Calls []string `json:"calls"`
}

// PathEntry is one concrete path in a [PathReport].
type PathEntry struct {
	Path   []string   `json:"path"`
	Length int        `json:"length"`
	Steps  []PathStep `json:"steps"`
}

// PathStatistics summarizes the set of paths found.
type PathStatistics struct {
	TotalPaths   int     `json:"total_paths"`
	MaxDepth     int     `json:"max_depth"`
	MinDepth     int     `json:"min_depth"`
	AverageDepth float64 `json:"average_depth"`
}

// PathAnalysis is the body of a [PathReport].
type PathAnalysis struct {
	TargetFunction string         `json:"target_function"`
	SourceFunction string         `json:"source_function,omitempty"`
	Paths          []PathEntry    `json:"paths"`
	Statistics     PathStatistics `json:"statistics"`
}

// PathReport is the response to the CLI/RPC "paths" verb.
type PathReport struct {
	Metadata     struct {
		Query PathQuery `json:"query"`
	} `json:"metadata"`
	PathAnalysis PathAnalysis `json:"path_analysis"`
}

// BuildPathReport renders the result of a [PathFinder.FindPaths] call.
func BuildPathReport(source, target *Function, maxDepth int, paths []CallPath) PathReport {
	var report PathReport
	report.Metadata.Query = PathQuery{TargetFunction: target.DisplayName(), MaxDepth: maxDepth}
	if source != nil {
		report.Metadata.Query.SourceFunction = source.DisplayName()
	}

	entries := make([]PathEntry, 0, len(paths))
	minDepth := -1
	maxFound := 0
	sumDepth := 0

	for _, p := range paths {
		names := make([]string, 0, len(p.Edges)+1)
		var steps []PathStep
		fns := p.Functions()
		for i, fn := range fns {
			names = append(names, fn.DisplayName())
			if i > 0 {
				steps = append(steps, PathStep{
					Step:  i,
					From:  fns[i-1].DisplayName(),
					To:    fn.DisplayName(),
					Calls: []string{p.Edges[i-1].Kind.String()},
				})
			}
		}
		length := len(p.Edges)
		entries = append(entries, PathEntry{Path: names, Length: length, Steps: steps})

		if minDepth < 0 || length < minDepth {
			minDepth = length
		}
		if length > maxFound {
			maxFound = length
		}
		sumDepth += length
	}

	if minDepth < 0 {
		minDepth = 0
	}
	avg := 0.0
	if len(entries) > 0 {
		avg = float64(sumDepth) / float64(len(entries))
	}

	report.PathAnalysis = PathAnalysis{
		TargetFunction: target.DisplayName(),
		Paths:          entries,
		Statistics: PathStatistics{
			TotalPaths:   len(entries),
			MaxDepth:     maxFound,
			MinDepth:     minDepth,
			AverageDepth: avg,
		},
	}
	if source != nil {
		report.PathAnalysis.SourceFunction = source.DisplayName()
	}

	return report
}

// RPCEnvelope wraps every RPC response per the MCP collaborator contract.
type RPCEnvelope struct {
	Success   bool        `json:"success"`
	Data      any         `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	Metadata  RPCMetadata `json:"metadata"`
}

// RPCMetadata is the metadata block on every [RPCEnvelope].
type RPCMetadata struct {
	Tool          string `json:"tool"`
	Version       string `json:"version"`
	ExecutionTime string `json:"execution_time"`
	Timestamp     string `json:"timestamp"`
}
