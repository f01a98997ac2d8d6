package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "voxflow",
	Short: "voxflow is a call-flow execution engine for telephony automation",
	Long:  `voxflow drives IVR sessions over FastAGI, interpreting declarative YAML flow graphs and issuing control and media commands back to the call leg.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the voxflow configuration file")
	rootCmd.PersistentFlags().String("flows", "", "Directory containing the flow definitions (overrides config)")
}
