package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxflow/voxflow"
	"github.com/voxflow/voxflow/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow...]",
	Short: "Check flow graphs for consistency",
	Long:  `Walks each named flow from its start node and reports dead edges and unreachable nodes.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, flows []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("flows"); dir != "" {
		cfg.FlowsDir = dir
	}

	eng, err := voxflow.New(cfg.FlowsDir)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}

	ctx := context.Background()
	failed := 0
	for _, name := range flows {
		issues, err := eng.Validate(ctx, name)
		if err != nil {
			return fmt.Errorf("flow %q: %w", name, err)
		}
		if len(issues) == 0 {
			fmt.Printf("%s: ok\n", name)
			continue
		}
		failed++
		for _, issue := range issues {
			fmt.Printf("%s: %s\n", name, issue)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d flow(s) reported issues", failed)
	}
	return nil
}
