package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xforge-build/xforge/internal/emit"
	"github.com/xforge-build/xforge/internal/xconfig"
	"github.com/xforge-build/xforge/internal/xlog"
)

func newExplainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain [script-path]",
		Short: "Evaluate a script and show which blocks survived alongside a decision trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := xconfig.Load()
			if err != nil {
				return err
			}

			tracer := xlog.NewEvalTraceLogger(filepath.Join(root, ".xforge"), cfg.Logging.Level)
			defer tracer.Close()

			doc, result, decisions, err := evaluateScript(root, args[0], tracer)
			if err != nil {
				return err
			}

			acc := emit.NewAccumulator(doc.InitialValues)
			acc.Apply(result)

			if jsonOut {
				decisionsOut := make([]map[string]any, len(decisions))
				for i, d := range decisions {
					decisionsOut[i] = map[string]any{
						"target_op": d.TargetOp.String(),
						"global_op": d.GlobalOp.String(),
						"synthetic": d.Synthetic,
					}
				}
				out := map[string]any{
					"source_block_count": len(doc.Blocks),
					"surviving_count":    len(result),
					"decisions":          decisionsOut,
					"values":             sortedValues(acc),
				}
				return json.NewEncoder(os.Stdout).Encode(out)
			}

			fmt.Printf("%d of %d source blocks survived at the target scope:\n", len(result), len(doc.Blocks))
			for i, b := range result {
				d := decisions[i]
				tag := ""
				if d.Synthetic {
					tag = " (synthetic compensation block)"
				}
				fmt.Printf("  %d. %s  [target=%s global=%s]%s\n", i, b.Op, d.TargetOp, d.GlobalOp, tag)
				for f, v := range b.Data {
					fmt.Printf("       %s = %v\n", f.Name(), v)
				}
			}
			fmt.Println()
			fmt.Println("Effective values:")
			for name, v := range sortedValues(acc) {
				fmt.Printf("  %s = %v\n", name, v)
			}
			if tracer != nil {
				fmt.Printf("\nFull decision trace written to %s\n", filepath.Join(root, ".xforge", "trace.jsonl"))
			}
			return nil
		},
	}
	return cmd
}

func sortedValues(acc *emit.Accumulator) map[string]any {
	out := make(map[string]any)
	for _, snap := range acc.Sorted() {
		out[snap.Field.Name()] = snap.Value
	}
	return out
}
