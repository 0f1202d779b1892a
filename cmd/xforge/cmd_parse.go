package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [script-path]",
		Short: "Load a script and print its compiled block list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			doc, err := loadScript(root, args[0])
			if err != nil {
				return err
			}

			if jsonOut {
				out := make([]map[string]any, len(doc.Blocks))
				for i, b := range doc.Blocks {
					data := make(map[string]any, len(b.Data))
					for f, v := range b.Data {
						data[f.Name()] = v
					}
					out[i] = map[string]any{
						"op":   b.Op.String(),
						"data": data,
					}
				}
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"block_count": len(doc.Blocks),
					"blocks":      out,
				})
			}

			fmt.Printf("%d block(s):\n", len(doc.Blocks))
			for i, b := range doc.Blocks {
				fmt.Printf("  %d. %s\n", i, b.Op)
				for f, v := range b.Data {
					fmt.Printf("     %s = %v\n", f.Name(), v)
				}
			}
			return nil
		},
	}
	return cmd
}
