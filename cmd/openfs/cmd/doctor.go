package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var timeout time.Duration

	c := &cobra.Command{
		Use:   "doctor",
		Short: "Probe every mount and report backend reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, v, err := openVFS(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Shutdown()

			stats := v.Doctor(cmd.Context(), timeout)
			out := cmd.OutOrStdout()
			unhealthy := 0
			for _, s := range stats {
				status := "ok"
				if !s.Reachable {
					status = "UNREACHABLE"
					unhealthy++
				}
				fmt.Fprintf(out, "%-20s %-12s %-12s %8s  %s\n", s.MountPath, s.BackendName, status, s.Latency.Round(time.Millisecond), s.Error)
			}
			if unhealthy > 0 {
				return fmt.Errorf("%d of %d mounts unreachable", unhealthy, len(stats))
			}
			return nil
		},
	}
	c.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "per-mount probe timeout")
	return c
}
