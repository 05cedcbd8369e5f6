package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfs/openfs/internal/index"
)

func newSearchCmd() *cobra.Command {
	var mode string
	var limit int
	var mountPath string

	c := &cobra.Command{
		Use:   "search QUERY",
		Short: "Run a dense, sparse, or hybrid query against a mount's collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, v, err := openVFS(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Shutdown()

			mc, ok := mountByPrefix(doc, mountPath)
			if !ok {
				return fmt.Errorf("no mount covers %q", mountPath)
			}
			searcher, err := searcherFor(doc, mc)
			if err != nil {
				return err
			}

			var searchMode index.SearchMode
			switch mode {
			case "dense":
				searchMode = index.ModeDense
			case "sparse":
				searchMode = index.ModeSparse
			default:
				searchMode = index.ModeHybrid
			}

			results, err := searcher.Search(cmd.Context(), args[0], index.SearchOptions{
				Mode:  searchMode,
				Limit: limit,
			})
			if err != nil {
				return err
			}
			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. [%.4f] %s\n", i+1, r.Score, r.ID)
			}
			return nil
		},
	}
	c.Flags().StringVar(&mode, "mode", "hybrid", "search mode: dense, sparse, or hybrid")
	c.Flags().IntVar(&limit, "limit", 10, "maximum results to return")
	c.Flags().StringVar(&mountPath, "mount", "/", "mount path whose collection to search")
	return c
}
