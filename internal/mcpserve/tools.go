package mcpserve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xforge-build/xforge/internal/block"
	"github.com/xforge-build/xforge/internal/emit"
	"github.com/xforge-build/xforge/internal/query"
	"github.com/xforge-build/xforge/internal/ratelimit"
	"github.com/xforge-build/xforge/internal/script"
)

// QueryInput is the xforge_query tool's input: a script to load and
// evaluate, relative to the server's configured root.
type QueryInput struct {
	ScriptPath string `json:"script_path" jsonschema:"path to the script file, relative to the project root"`
}

// QueryOutput is the xforge_query tool's output: the effective field
// values after evaluating the script's target scope.
type QueryOutput struct {
	Values map[string]any `json:"values"`
}

// ExplainInput is the xforge_explain tool's input.
type ExplainInput struct {
	ScriptPath string `json:"script_path" jsonschema:"path to the script file, relative to the project root"`
}

// ExplainOutput summarizes how many of the script's source blocks survived
// evaluation at the target scope, and the resulting additive block list.
// It is a coarser summary than the full per-decision trail .xforge/trace.jsonl
// records at debug/trace log levels (internal/xlog.EvalTraceLogger).
type ExplainOutput struct {
	SourceBlockCount    int            `json:"source_block_count"`
	SurvivingOperations []string       `json:"surviving_operations"`
	Values              map[string]any `json:"values"`
}

// ParseInput is the xforge_parse tool's input.
type ParseInput struct {
	ScriptPath string `json:"script_path" jsonschema:"path to the script file, relative to the project root"`
}

// ParseOutput is the xforge_parse tool's output: the script's compiled
// block list, before evaluation against any scope.
type ParseOutput struct {
	BlockCount int              `json:"block_count"`
	Blocks     []map[string]any `json:"blocks"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "xforge_query",
		Description: "Evaluate a script's configuration blocks and return the effective field values at the script's target scope",
	}, s.handleQuery)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "xforge_explain",
		Description: "Evaluate a script and summarize which blocks survived, alongside the resulting effective field values",
	}, s.handleExplain)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "xforge_parse",
		Description: "Load a script and return its compiled block list, without evaluating it against any scope",
	}, s.handleParse)
}

func (s *Server) handleQuery(ctx context.Context, req *sdk.CallToolRequest, args QueryInput) (*sdk.CallToolResult, QueryOutput, error) {
	if err := ratelimit.CheckLimit(s.limiters, "xforge_query"); err != nil {
		return nil, QueryOutput{}, err
	}

	doc, result, err := s.evaluate(args.ScriptPath)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	acc := emit.NewAccumulator(doc.InitialValues)
	acc.Apply(result)

	return nil, QueryOutput{Values: valuesToJSON(acc)}, nil
}

func (s *Server) handleExplain(ctx context.Context, req *sdk.CallToolRequest, args ExplainInput) (*sdk.CallToolResult, ExplainOutput, error) {
	if err := ratelimit.CheckLimit(s.limiters, "xforge_explain"); err != nil {
		return nil, ExplainOutput{}, err
	}

	doc, result, err := s.evaluate(args.ScriptPath)
	if err != nil {
		return nil, ExplainOutput{}, err
	}

	acc := emit.NewAccumulator(doc.InitialValues)
	acc.Apply(result)

	ops := make([]string, len(result))
	for i, b := range result {
		ops[i] = b.Op.String()
	}

	return nil, ExplainOutput{
		SourceBlockCount:    len(doc.Blocks),
		SurvivingOperations: ops,
		Values:              valuesToJSON(acc),
	}, nil
}

func (s *Server) handleParse(ctx context.Context, req *sdk.CallToolRequest, args ParseInput) (*sdk.CallToolResult, ParseOutput, error) {
	if err := ratelimit.CheckLimit(s.limiters, "xforge_parse"); err != nil {
		return nil, ParseOutput{}, err
	}

	doc, err := s.load(args.ScriptPath)
	if err != nil {
		return nil, ParseOutput{}, err
	}

	blocks := make([]map[string]any, len(doc.Blocks))
	for i, b := range doc.Blocks {
		data := make(map[string]any, len(b.Data))
		for f, v := range b.Data {
			data[f.Name()] = v
		}
		blocks[i] = map[string]any{
			"op":   b.Op.String(),
			"data": data,
		}
	}

	return nil, ParseOutput{BlockCount: len(doc.Blocks), Blocks: blocks}, nil
}

// load reads and compiles a script relative to the server's root.
func (s *Server) load(scriptPath string) (*script.Document, error) {
	abs := scriptPath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.root, scriptPath)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}

	return script.Load(data, s.root)
}

// evaluate loads and runs a script's query relative to the server's root.
func (s *Server) evaluate(scriptPath string) (*script.Document, []*block.Block, error) {
	doc, err := s.load(scriptPath)
	if err != nil {
		return nil, nil, err
	}

	q := &query.Query{
		SourceBlocks:  doc.Blocks,
		TargetScopes:  doc.TargetScopes,
		GlobalScopes:  doc.GlobalScopes,
		InitialValues: doc.InitialValues,
		GlobalRoot:    doc.GlobalRoot,
	}

	result, _ := query.Evaluate(q, doc.Tested)
	return doc, result, nil
}

func valuesToJSON(acc *emit.Accumulator) map[string]any {
	out := make(map[string]any)
	for _, snap := range acc.Sorted() {
		out[snap.Field.Name()] = snap.Value
	}
	return out
}
