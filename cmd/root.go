package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "opsflow-gin",
	Short: "Operations workflow API server",
	Long: `Opsflow Gin is a REST API server for site operations management.
It drives PPE requests, internal requests, logbook requests, tasks and
timesheets through a shared approval state machine, with comments,
read tracking and asynchronous notifications.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// GetRootCmd 返回根命令 (用于测试)
func GetRootCmd() *cobra.Command {
	return rootCmd
}
