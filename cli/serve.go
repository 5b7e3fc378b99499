package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"nexto/config"
	"nexto/handlers"
	"nexto/mailer"
	"nexto/metrics"
	"nexto/store"
	"nexto/utils"
)

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the task API",
		Long: `Run the task API.

Tasks live in the hosted Postgres store when REMOTE_DB_URL and
REMOTE_DB_PASSWORD are set, and in the local sqlite file otherwise. Requests
that fail against the remote store are served from the local one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	log := config.NewLogger(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	primary, err := utils.OpenLocalStore(cfg.PrimaryDBPath, log)
	if err != nil {
		return fmt.Errorf("open primary store: %w", err)
	}
	defer func() {
		if err := primary.Close(); err != nil {
			log.Error("close primary store", "error", err)
		}
	}()

	if cfg.SeedWelcome {
		seeded, err := primary.SeedWelcome(ctx)
		switch {
		case err != nil:
			log.Warn("seed welcome task", "error", err)
		case seeded:
			log.Info("seeded welcome task")
		}
	}

	remote, err := store.NewRemote(ctx, cfg.Remote, log)
	if err != nil {
		return fmt.Errorf("open remote store: %w", err)
	}
	defer remote.Close()

	if remote.Configured() {
		if err := remote.EnsureSchema(ctx); err != nil {
			log.Warn("remote store not ready, requests will fall back to primary", "error", err)
		}
	} else {
		log.Info("remote store not configured, using primary store", "path", cfg.PrimaryDBPath)
	}

	m := metrics.New()
	tasks := store.NewFallback(primary, remote, log, m)
	router := handlers.NewRouter(handlers.Deps{
		Store:     tasks,
		Mailer:    mailer.NewLogMailer(log),
		Metrics:   m,
		Log:       log,
		ClientURL: cfg.ClientURL,
		PublicURL: cfg.PublicURL,
	})

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr, "store", tasks.Active())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			log.Info("shutting down")
			return srv.Shutdown(ctx)
		},
	})

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case code := <-wait:
		if code != 0 {
			return fmt.Errorf("shutdown finished with exit code %d", code)
		}
		log.Info("stopped")
		return nil
	}
}
