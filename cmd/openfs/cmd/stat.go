package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat PATH",
		Short: "Print a path's entry metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, v, err := openVFS(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Shutdown()

			e, err := v.Stat(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "path:     %s\n", e.Path)
			fmt.Fprintf(out, "name:     %s\n", e.Name)
			fmt.Fprintf(out, "is_dir:   %t\n", e.IsDir)
			if e.HasSize {
				fmt.Fprintf(out, "size:     %d\n", e.Size)
			} else {
				fmt.Fprintf(out, "size:     unknown\n")
			}
			return nil
		},
	}
}
