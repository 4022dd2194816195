package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soaringjerry/kavili/internal/services"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		store, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore(store, logger)

		u, err := services.NewAuthService(store, nil, cfg.Auth.TokenTTL).Register(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		logger.Info("admin created", zap.String("id", u.ID), zap.String("email", u.Email))
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().String("email", "", "Admin email")
	adminCreateCmd.Flags().String("password", "", "Admin password")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")

	adminCmd.AddCommand(adminCreateCmd)
}
