// Package cmd provides the CLI commands for the openfs binary.
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debugMode  bool
	log        = logrus.New()
)

// NewRootCmd creates the root command for the openfs CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "openfs",
		Short:         "Unified virtual filesystem with caching, sync, and semantic indexing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debugMode {
				log.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "openfs.yaml", "path to the mount configuration document")
	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	root.AddCommand(newLsCmd())
	root.AddCommand(newCatCmd())
	root.AddCommand(newCpCmd())
	root.AddCommand(newRmCmd())
	root.AddCommand(newStatCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newReconcileCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newWatchCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		return err
	}
	return nil
}
