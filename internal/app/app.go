// Package app wires configuration into the request handler shared by the
// lambda and server entry points.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/romenn/site-worker/internal/assets"
	"github.com/romenn/site-worker/internal/config"
	"github.com/romenn/site-worker/internal/encryption"
	"github.com/romenn/site-worker/internal/relay"
	"github.com/romenn/site-worker/internal/telemetry"
	"github.com/romenn/site-worker/internal/worker"

	awsinternal "github.com/romenn/site-worker/internal/aws"
)

type App struct {
	Handler  http.Handler
	Relay    *relay.Relay
	shutdown []func(context.Context) error
}

// Build decrypts secrets, opens the asset store and assembles the worker.
// Extra relay options override the dependencies built from cfg.
func Build(ctx context.Context, cfg *config.Config, opts ...relay.Option) (*App, error) {
	a := &App{}

	shutdown, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init telemetry: %w", err)
	}
	a.shutdown = append(a.shutdown, shutdown)

	if err := decryptSecrets(ctx, cfg); err != nil {
		return nil, err
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.Relay, err = relay.New(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}

	a.Handler = worker.New(a.Relay, assets.NewHandler(store), cfg.AppMaxBodyBytes)

	return a, nil
}

// Shutdown flushes telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range a.shutdown {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}

func decryptSecrets(ctx context.Context, cfg *config.Config) error {
	if cfg.AppSecretsKmsKeyId == "" {
		return nil
	}

	var d config.Decrypter
	switch {
	case cfg.AppSecretsFormat == config.SecretsFormatESDK && cfg.AppSecretsKmsKeyId != awsinternal.MockedKeyId:
		d = encryption.NewDecrypter(cfg.AppSecretsKmsKeyId)
	default:
		awscfg, err := cfg.AWSConfig(ctx)
		if err != nil {
			return err
		}
		d = awsinternal.NewKMSClient(awscfg, cfg.AppSecretsKmsKeyId, cfg.DebugMode)
	}

	if err := cfg.DecryptSecrets(ctx, d); err != nil {
		return fmt.Errorf("failed to decrypt secrets: %w", err)
	}
	return nil
}

func newStore(ctx context.Context, cfg *config.Config) (assets.Store, error) {
	if cfg.AppAssetsS3 == "" {
		slog.Debug("serving assets from directory", "dir", cfg.AppAssetsDir)
		return assets.NewFSStore(os.DirFS(cfg.AppAssetsDir)), nil
	}

	awscfg, err := cfg.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	client := awsinternal.NewAWSClient(ctx, awscfg, cfg.AppSecretsKmsKeyId, cfg.DebugMode)

	slog.Debug("serving assets from s3", "bucket", cfg.AppAssetsS3, "prefix", cfg.AppAssetsPath)
	return assets.NewS3Store(client.S3, cfg.AppAssetsS3, cfg.AppAssetsPath), nil
}
