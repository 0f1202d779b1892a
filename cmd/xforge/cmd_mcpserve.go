package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/xforge-build/xforge/internal/mcpserve"
	"github.com/xforge-build/xforge/internal/pathutil"
	"github.com/xforge-build/xforge/internal/store"
	"github.com/xforge-build/xforge/internal/xconfig"
)

func newMCPServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-serve",
		Short: "Run the MCP server exposing xforge_query, xforge_explain and xforge_parse",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			cfg, err := xconfig.Load()
			if err != nil {
				return err
			}
			cfg.RootDir = root

			var cache *store.Store
			if !cfg.Store.Disabled {
				allowed, err := pathutil.DefaultAllowedCacheDirsWithProjectRoot(root)
				if err != nil {
					return err
				}
				if err := pathutil.ValidatePath(cfg.CachePath(), allowed); err != nil {
					return err
				}
				cache, err = store.Open(cfg.CachePath())
				if err != nil {
					return err
				}
			}

			srv, err := mcpserve.NewServer(&mcpserve.Config{
				Name:                 "xforge",
				Version:              version,
				Root:                 root,
				Cache:                cache,
				QueryRatePerMinute:   cfg.MCP.QueryRatePerMinute,
				ExplainRatePerMinute: cfg.MCP.ExplainRatePerMinute,
			})
			if err != nil {
				return err
			}
			defer srv.Close()

			return srv.Run(context.Background())
		},
	}
}
