package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mygrid",
	Short: "mygrid - home battery and PV schedule optimizer",
	Long: `mygrid plans home battery charge, hold and use blocks against Nord Pool
day-ahead prices, weather forecasts and PV production estimates.

Run it one-shot from cron with 'mygrid run' or as a long-running daemon
with 'mygrid serve'.`,
	Version: Version,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}
