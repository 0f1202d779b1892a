package main

import (
	"os"
	"path/filepath"

	"github.com/xforge-build/xforge/internal/block"
	"github.com/xforge-build/xforge/internal/query"
	"github.com/xforge-build/xforge/internal/script"
	"github.com/xforge-build/xforge/internal/xlog"
)

// loadScript reads and compiles a script relative to root.
func loadScript(root, scriptPath string) (*script.Document, error) {
	abs := scriptPath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, scriptPath)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	return script.Load(data, root)
}

// evaluateScript loads a script and runs the fixed-point evaluator,
// optionally recording a decision trace via tracer (nil-safe). The
// returned []*query.BlockResult carries the real target_op/global_op
// test_block reached for each surviving block, in the same order as the
// returned block list, for callers that need more than the final op
// (cmd_explain.go's decision report).
func evaluateScript(root, scriptPath string, tracer *xlog.EvalTraceLogger) (*script.Document, []*block.Block, []*query.BlockResult, error) {
	doc, err := loadScript(root, scriptPath)
	if err != nil {
		return nil, nil, nil, err
	}

	q := &query.Query{
		SourceBlocks:  doc.Blocks,
		TargetScopes:  doc.TargetScopes,
		GlobalScopes:  doc.GlobalScopes,
		InitialValues: doc.InitialValues,
		GlobalRoot:    doc.GlobalRoot,
	}

	result, decisions := query.Evaluate(q, doc.Tested)
	for i, d := range decisions {
		tracer.LogDecision(i, d.TargetOp.String(), d.TargetOp.String(), d.GlobalOp.String(), d.Synthetic)
	}

	return doc, result, decisions, nil
}
