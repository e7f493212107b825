// Package rpcshim implements the newline-delimited JSON request/response
// loop the MCP collaborator drives, one call per CLI verb: each request
// names a command and carries its parameters; each response is one of the
// report shapes in package elfscope wrapped in a success/error envelope.
package rpcshim

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/elfscope/elfscope"
)

// Request is one line of the newline-delimited JSON protocol.
type Request struct {
	Command string          `json:"command"`
	Path    string          `json:"path"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type pathsParams struct {
	Target          string `json:"target"`
	Source          string `json:"source,omitempty"`
	MaxDepth        int    `json:"max_depth,omitempty"`
	IncludeCycles   bool   `json:"include_cycles,omitempty"`
	AllowUnresolved bool   `json:"allow_unresolved,omitempty"`
}

type functionParams struct {
	Name string `json:"name"`
}

type stackSummaryParams struct {
	Top int `json:"top,omitempty"`
}

// Server runs the serve loop over r/w, logging diagnostics to logger.
type Server struct {
	logger *slog.Logger
}

// NewServer returns a [Server]. logger may be nil.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{logger: logger}
}

// Serve reads newline-delimited JSON [Request] values from r until EOF,
// writing one [elfscope.RPCEnvelope] response per line to w.
func (s *Server) Serve(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			encoder.Encode(errorEnvelope(req.Command, "invalid_request", err))
			continue
		}

		encoder.Encode(s.dispatch(req))
	}
}

func (s *Server) dispatch(req Request) elfscope.RPCEnvelope {
	start := timestamp()

	p, err := s.buildPipeline(req.Path)
	if err != nil {
		return errorEnvelopeAt(req.Command, errorType(err), err, start)
	}

	var data any
	switch req.Command {
	case "info":
		data = infoData(p)

	case "analyze":
		data = elfscope.BuildCallRelationshipReport(p.info, p.graph, p.config, timestamp())

	case "paths":
		var params pathsParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return errorEnvelopeAt(req.Command, "invalid_params", err, start)
			}
		}
		target := p.graph.FunctionByName(params.Target)
		if target == nil {
			err := &elfscope.UnknownFunctionError{Name: params.Target}
			return errorEnvelopeAt(req.Command, errorType(err), err, start)
		}
		maxDepth := params.MaxDepth
		if maxDepth <= 0 {
			maxDepth = p.config.MaxPathDepth
		}
		finder := elfscope.NewPathFinder(p.graph)
		var source *elfscope.Function
		var paths []elfscope.CallPath
		if params.Source != "" {
			source = p.graph.FunctionByName(params.Source)
			if source == nil {
				err := &elfscope.UnknownFunctionError{Name: params.Source}
				return errorEnvelopeAt(req.Command, errorType(err), err, start)
			}
			paths = finder.FindPaths(source, target, maxDepth, params.IncludeCycles, params.AllowUnresolved)
		} else {
			paths = finder.FindAllPaths(target, maxDepth, params.IncludeCycles, params.AllowUnresolved)
		}
		data = elfscope.BuildPathReport(source, target, maxDepth, paths)

	case "function":
		var params functionParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorEnvelopeAt(req.Command, "invalid_params", err, start)
		}
		fn := p.graph.FunctionByName(params.Name)
		if fn == nil {
			err := &elfscope.UnknownFunctionError{Name: params.Name}
			return errorEnvelopeAt(req.Command, errorType(err), err, start)
		}
		data = fn.DisplayName()

	case "summary":
		report := elfscope.BuildCallRelationshipReport(p.info, p.graph, p.config, timestamp())
		report.CallRelationships = nil
		data = report

	case "stack":
		var params functionParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorEnvelopeAt(req.Command, "invalid_params", err, start)
		}
		analyzer := elfscope.NewStackAnalyzer(p.graph, p.dis, p.info.Arch, p.config, s.logger)
		report, err := analyzer.FunctionStack(params.Name)
		if err != nil {
			return errorEnvelopeAt(req.Command, errorType(err), err, start)
		}
		data = report

	case "stack-summary":
		var params stackSummaryParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return errorEnvelopeAt(req.Command, "invalid_params", err, start)
			}
		}
		analyzer := elfscope.NewStackAnalyzer(p.graph, p.dis, p.info.Arch, p.config, s.logger)
		data = analyzer.Summary(params.Top)

	default:
		err := fmt.Errorf("unknown command: %s", req.Command)
		return errorEnvelopeAt(req.Command, "unknown_command", err, start)
	}

	return elfscope.RPCEnvelope{
		Success: true,
		Data:    data,
		Metadata: elfscope.RPCMetadata{
			Tool:          "elfscope",
			Version:       elfscope.ToolVersion,
			ExecutionTime: time.Since(mustParse(start)).String(),
			Timestamp:     timestamp(),
		},
	}
}

type pipelineResult struct {
	info   *elfscope.ElfInfo
	dis    *elfscope.Disassembler
	graph  *elfscope.CallGraph
	config elfscope.Config
}

func (s *Server) buildPipeline(path string) (*pipelineResult, error) {
	cfg := elfscope.DefaultConfig()
	info, err := elfscope.LoadWithConfig(path, cfg, s.logger)
	if err != nil {
		return nil, err
	}
	dis, err := elfscope.NewDisassembler(info.Arch, s.logger)
	if err != nil {
		return nil, err
	}
	graph := elfscope.BuildCallGraph(info, dis, s.logger)
	return &pipelineResult{info: info, dis: dis, graph: graph, config: cfg}, nil
}

func infoData(p *pipelineResult) any {
	return struct {
		Architecture string `json:"architecture"`
		Functions    int    `json:"functions"`
		Imports      int    `json:"imports"`
	}{
		Architecture: string(p.info.Arch),
		Functions:    len(p.info.Functions),
		Imports:      len(p.info.Imports),
	}
}

func errorType(err error) string {
	switch err.(type) {
	case *elfscope.UnknownFunctionError:
		return "unknown_function"
	case *elfscope.NotAnElfError:
		return "not_an_elf"
	case *elfscope.TruncatedFileError:
		return "truncated_file"
	case *elfscope.UnsupportedArchError:
		return "unsupported_arch"
	default:
		return "internal_error"
	}
}

func errorEnvelope(tool, errType string, err error) elfscope.RPCEnvelope {
	return errorEnvelopeAt(tool, errType, err, timestamp())
}

func errorEnvelopeAt(tool, errType string, err error, start string) elfscope.RPCEnvelope {
	return elfscope.RPCEnvelope{
		Success:   false,
		Error:     err.Error(),
		ErrorType: errType,
		Metadata: elfscope.RPCMetadata{
			Tool:          "elfscope",
			Version:       elfscope.ToolVersion,
			ExecutionTime: time.Since(mustParse(start)).String(),
			Timestamp:     timestamp(),
		},
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// mustParse re-parses a timestamp minted by [timestamp] a moment earlier,
// purely to derive an elapsed duration; it never fails on its own output.
func mustParse(ts string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}
