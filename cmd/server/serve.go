package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soaringjerry/kavili/internal/api"
	"github.com/soaringjerry/kavili/internal/middleware"
	"github.com/soaringjerry/kavili/internal/seed"
	"github.com/soaringjerry/kavili/internal/services"
	"github.com/soaringjerry/kavili/internal/worker"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
	staticMaxAge    = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore(store, logger)

		// A memory store starts empty every time, so give it the seed bank.
		if cfg.Storage.Driver == "memory" {
			if err := applySeed(ctx, store, cfg.Quiz.SeedFile, logger); err != nil {
				return err
			}
		}

		results := worker.NewAsyncResultSaver(services.NewEntryService(store), cfg.Quiz.SaveWorkers, 0, logger)
		defer results.Close()

		auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret)
		if auth.UsingDevSecret() {
			logger.Warn("auth.jwt_secret not set, using the development secret")
		}

		rt := api.NewRouter(store, api.Config{
			Authenticator:   auth,
			TokenTTL:        cfg.Auth.TokenTTL,
			TieBreaker:      cfg.Quiz.TieBreaker(),
			TransitionDelay: cfg.Quiz.TransitionDelay,
			QuizType:        cfg.Quiz.Type,
			SessionTTL:      cfg.Quiz.SessionTTL,
			Results:         results,
			ShareBaseURL:    cfg.HTTP.PublicURL,
			Version:         version,
			Logger:          logger,
		})
		go rt.Registry().Run(ctx, sweepInterval)

		mux := http.NewServeMux()
		rt.Register(mux)
		if dir := cfg.HTTP.StaticDir; dir != "" {
			mux.Handle("/", http.FileServer(http.Dir(dir)))
			logger.Info("serving static files", zap.String("dir", dir))
		}

		handler := middleware.RequestLogger(logger)(
			middleware.Recover(logger)(
				middleware.CORS(cfg.HTTP.Origins())(
					middleware.SecureHeaders(middleware.CacheControl(staticMaxAge)(mux)))))

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			logger.Info("kavili listening", zap.String("addr", cfg.HTTP.Addr), zap.String("version", version))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func applySeed(ctx context.Context, store api.Store, path string, logger *zap.Logger) error {
	f, err := seed.Load(path)
	if err != nil {
		return err
	}
	s := &seed.Seeder{
		Questions:     services.NewQuestionService(store),
		Personalities: services.NewPersonalityService(store),
		Logger:        logger,
	}
	_, err = s.Apply(ctx, f)
	return err
}
