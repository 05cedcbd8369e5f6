package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls PATH",
		Short: "List the entries under a namespace path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, v, err := openVFS(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Shutdown()

			entries, err := v.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()
			for _, e := range entries {
				kind := "file"
				size := fmt.Sprintf("%d", e.Size)
				if e.IsDir {
					kind = "dir"
					size = "-"
				} else if !e.HasSize {
					size = "?"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", kind, size, e.Name)
			}
			return nil
		},
	}
}
