package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/romenn/site-worker/internal/app"
	"github.com/romenn/site-worker/internal/config"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cliApp := &cli.App{
		Name:  "site-worker",
		Usage: "serve the site and the form relay over plain http",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the http server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env-file",
						Usage: "dotenv file loaded before reading the environment",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:  "addr",
						Usage: "listen address, overrides APP_HTTP_ADDR",
					},
					&cli.StringFlag{
						Name:  "assets",
						Usage: "assets directory, overrides APP_ASSETS_DIR",
					},
				},
				Action: serve,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal("server exited", "error", err)
	}
}

func serve(c *cli.Context) error {
	if envpath := c.String("env-file"); envpath != "" {
		if _, err := os.Stat(envpath); err == nil {
			if err := godotenv.Load(envpath); err != nil {
				return err
			}
		}
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.AppHTTPAddr = addr
	}
	if dir := c.String("assets"); dir != "" {
		cfg.AppAssetsDir = dir
	}

	slog.SetDefault(app.NewLogger(os.Stderr, cfg, log.TextFormatter))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.AppHTTPAddr,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.AppHTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.Join(srv.Shutdown(shutdownCtx), a.Shutdown(shutdownCtx))
}
