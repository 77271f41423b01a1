package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"meal-admin/api"
	"meal-admin/auth"
	"meal-admin/bot"
	"meal-admin/db"
	"meal-admin/realtime"
	"meal-admin/relay"
	"meal-admin/storage"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const hubBuffer = 64

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API, change listener and notifiers",
}

func init() {
	serveCmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return withDB(ctx, serve)
	}
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().Bool("migrate", false, "apply migrations before serving")
	_ = viper.BindPFlag("http.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	if migrate, _ := serveCmd.Flags().GetBool("migrate"); migrate {
		if err := db.ApplyMigrations(ctx); err != nil {
			return err
		}
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (AUTH_JWT_SECRET) is required")
	}

	hub := realtime.NewHub(hubBuffer)
	go func() {
		if err := hub.Listen(ctx, db.Pool, cfg.Realtime.Channel, cfg.Realtime.ReconnectDelay); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("change listener stopped")
		}
	}()

	notifier, err := bot.NewNotifier(cfg.Telegram)
	switch {
	case errors.Is(err, bot.ErrDisabled):
		log.Info().Msg("admin notifications disabled")
	case err != nil:
		return err
	default:
		events, cancel := hub.Subscribe(bot.Filters()...)
		defer cancel()
		go notifier.Run(ctx, events)
	}

	if cfg.Kafka.Enabled {
		r, err := relay.New(cfg.Kafka)
		if err != nil {
			return err
		}
		defer r.Close()
		events, cancel := hub.Subscribe(relay.Filters()...)
		defer cancel()
		go r.Run(ctx, events)
	}

	var images api.ImageUploader
	if cfg.Storage.Endpoint != "" || cfg.Storage.AccessKey != "" {
		store, err := storage.NewImageStore(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		images = store
	}

	srv := api.NewServer(api.DBStore{}, auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Leeway), hub, images, log.Logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http server listening")
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	log.Info().Msg("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
