package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	var recursive bool

	c := &cobra.Command{
		Use:   "index PATH",
		Short: "Chunk, embed, and upsert the files under a namespace path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			doc, v, err := openVFS(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Shutdown()

			mc, ok := mountByPrefix(doc, path)
			if !ok {
				return fmt.Errorf("no mount covers %q", path)
			}
			b, rel, ok := backendForMount(v, mc.Path, path)
			if !ok {
				return fmt.Errorf("mount %q not found among built mounts", mc.Path)
			}

			pipeline, err := pipelineFor(doc, mc)
			if err != nil {
				return err
			}
			res, err := pipeline.IndexDirectory(cmd.Context(), b, rel, recursive)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed: %d  skipped: %d  errors: %d\n", res.Indexed, res.Skipped, len(res.Errors))
			for p, e := range res.Errors {
				log.WithError(e).WithField("path", p).Warn("index error")
			}
			return nil
		},
	}
	c.Flags().BoolVar(&recursive, "recursive", true, "index subdirectories too")
	return c
}
