// Command gcgprice is a small demo CLI driving the column-generation core
// against a toy one-dimensional cutting-stock instance: it has no LP
// solver of its own, so its pricing loop runs against a subgradient-
// updated stand-in for the restricted master's duals rather than a real
// re-optimized LP (see updateDuals).
package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "gcgprice",
	Short: "column-generation driver for a toy cutting-stock instance",
	PersistentPreRun: func(*cobra.Command, []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
