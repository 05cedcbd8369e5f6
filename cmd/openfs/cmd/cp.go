package cmd

import (
	"github.com/spf13/cobra"
)

func newCpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp SRC DST",
		Short: "Copy a file between two namespace paths",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, v, err := openVFS(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Shutdown()

			data, err := v.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return v.Write(cmd.Context(), args[1], data)
		},
	}
}
