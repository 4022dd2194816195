package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the question bank and personalities into an empty store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			path = cfg.Quiz.SeedFile
		}
		store, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore(store, logger)

		if err := applySeed(cmd.Context(), store, path, logger); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().String("file", "", "Seed YAML file (default: quiz.seed_file, then the built-in bank)")
}
