package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xforge-build/xforge/internal/emit"
	"github.com/xforge-build/xforge/internal/pathutil"
	"github.com/xforge-build/xforge/internal/store"
	"github.com/xforge-build/xforge/internal/xconfig"
	"github.com/xforge-build/xforge/internal/xlog"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [script-path]",
		Short: "Evaluate a script at its target scope and print effective field values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := xconfig.Load()
			if err != nil {
				return err
			}
			cfg.RootDir = root

			tracer := xlog.NewEvalTraceLogger(filepath.Join(root, ".xforge"), cfg.Logging.Level)
			defer tracer.Close()

			ctx := context.Background()
			var cache *store.Store
			if !cfg.Store.Disabled {
				allowed, err := pathutil.DefaultAllowedCacheDirsWithProjectRoot(root)
				if err != nil {
					return fmt.Errorf("resolving allowed cache dirs: %w", err)
				}
				if err := pathutil.ValidatePath(cfg.CachePath(), allowed); err != nil {
					return fmt.Errorf("validating cache path: %w", err)
				}
				cache, err = store.Open(cfg.CachePath())
				if err != nil {
					return fmt.Errorf("opening cache: %w", err)
				}
				defer cache.Close()
			}

			abs := args[0]
			if !filepath.IsAbs(abs) {
				abs = filepath.Join(root, abs)
			}
			data, err := os.ReadFile(abs)
			if err != nil {
				return err
			}
			scriptHash := store.ContentHash(data)

			var result []byte
			if cache != nil {
				if cached, found, err := cache.GetQueryResult(ctx, scriptHash); err == nil && found {
					result = []byte(cached)
				}
			}

			if result == nil {
				doc, blocks, _, err := evaluateScript(root, args[0], tracer)
				if err != nil {
					return err
				}
				acc := emit.NewAccumulator(doc.InitialValues)
				acc.Apply(blocks)

				out := make(map[string]any)
				for _, snap := range acc.Sorted() {
					out[snap.Field.Name()] = snap.Value
				}
				encoded, err := json.Marshal(out)
				if err != nil {
					return err
				}
				result = encoded

				if cache != nil {
					_ = cache.PutQueryResult(ctx, scriptHash, scriptHash, string(encoded))
				}
			}

			if jsonOut {
				fmt.Println(string(result))
				return nil
			}

			var values map[string]any
			if err := json.Unmarshal(result, &values); err != nil {
				return err
			}
			for name, v := range values {
				fmt.Printf("%s = %v\n", name, v)
			}
			return nil
		},
	}
	return cmd
}
