package main

import (
	"fmt"

	"github.com/gostonefire/mygrid-scheduler/internal/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.FormatStartupMessage())
		fmt.Printf("Commit: %s\nGo: %s\n", version.GitCommit, version.GoVersion)
	},
}
