package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soaringjerry/kavili/internal/quiz"
	"github.com/soaringjerry/kavili/internal/services"
	"github.com/soaringjerry/kavili/internal/tui"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the quiz in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		// The terminal belongs to the quiz; keep only warnings.
		logger = logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		store, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore(store, logger)
		if cfg.Storage.Driver == "memory" {
			if err := applySeed(ctx, store, cfg.Quiz.SeedFile, logger); err != nil {
				return err
			}
		}

		bank, err := services.NewBankService(store, services.NewSettingsService(store)).LoadQuestions(ctx)
		if err != nil {
			return err
		}
		entries := services.NewEntryService(store)
		ctrl := quiz.NewController(quiz.ControllerConfig{
			Bank:            bank,
			Users:           entries,
			Results:         entries,
			TieBreaker:      cfg.Quiz.TieBreaker(),
			TransitionDelay: cfg.Quiz.TransitionDelay,
			QuizType:        cfg.Quiz.Type,
			Logger:          logger,
		})
		return tui.Run(ctx, ctrl, tui.Options{Personalities: services.NewPersonalityService(store)})
	},
}
