package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "meminfer",
	Short: "Memory inference core driver",
	Long:  "Lift, transform and re-emit RTL memory cells from a netlist snapshot.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if getFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
	rootCmd.PersistentFlags().Bool("packed", false, "prefer the packed $mem encoding when emitting")

	log.SetFormatter(&log.TextFormatter{})
}
