package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/charmbracelet/log"
	"github.com/romenn/site-worker/internal/app"
	"github.com/romenn/site-worker/internal/config"
	"github.com/romenn/site-worker/internal/lambdaurl"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	slog.SetDefault(app.NewLogger(os.Stderr, cfg, log.JSONFormatter))

	ctx := context.Background()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal("failed to init worker", "error", err)
	}

	lambda.StartWithOptions(
		lambdaurl.Wrap(a.Handler),
		lambda.WithEnableSIGTERM(func() {
			if err := a.Shutdown(ctx); err != nil {
				slog.Error("failed to flush telemetry", "error", err)
			}
		}),
	)
}
