package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/romenn/site-worker/internal/app"
	"github.com/romenn/site-worker/internal/aws"
	"github.com/romenn/site-worker/internal/config"
	"github.com/romenn/site-worker/internal/relay"
	"github.com/romenn/site-worker/internal/submission"
)

var (
	dataPath   string
	policyPath string
)

func init() {
	flag.StringVar(&dataPath, "data", "", "path to JSON file with test submissions")
	flag.StringVar(&policyPath, "policy", "", "override path to Rego policy file")
	flag.Parse()
}

func NewDebugConfig() (*config.Config, error) {
	envpath := filepath.Join("..", "..", ".env")
	if _, err := os.Stat(envpath); err == nil {
		_ = godotenv.Load(envpath)
	}

	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	cfg.DebugMode = true
	if os.Getenv("APP_SEND_ENABLED") != "true" {
		cfg.AppSendEnabled = false
	}

	if cfg.AppSecretsKmsKeyId == "" {
		cfg.AppSecretsKmsKeyId = aws.MockedKeyId
	}

	if cfg.AppRelayPolicyPath == "" {
		cfg.AppRelayPolicyPath = filepath.Join("..", "..", "fixtures", "relay-policy.rego")
	}
	if policyPath != "" {
		cfg.AppRelayPolicyPath = policyPath
	}

	if cfg.DebugDataPath == "" {
		cfg.DebugDataPath = filepath.Join("..", "..", "fixtures", "debug-data.json")
	}
	if dataPath != "" {
		cfg.DebugDataPath = dataPath
	}

	return cfg, nil
}

func main() {
	cfg, err := NewDebugConfig()
	if err != nil {
		log.Fatal("failed to debug load config", "error", err)
	}
	slog.SetDefault(app.NewLogger(os.Stderr, cfg, log.TextFormatter))

	ctx := context.Background()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal("failed to init relay", "error", err)
	}
	defer a.Shutdown(ctx)

	if !a.Relay.Configured() {
		log.Fatal("email provider credential missing", "missing", a.Relay.MissingCredential())
	}

	data, err := os.ReadFile(cfg.DebugDataPath)
	if err != nil {
		log.Fatal("failed to read data file", "path", cfg.DebugDataPath, "error", err)
	}

	payloads := []json.RawMessage{}
	if err := json.Unmarshal(data, &payloads); err != nil {
		log.Fatal("failed to parse data file", "error", err)
	}

	for i, p := range payloads {
		s, err := submission.Decode(bytes.NewReader(p))
		if err != nil {
			log.Fatal("failed to decode submission", "index", i, "error", err)
		}

		res, err := a.Relay.Send(ctx, s)
		if err != nil {
			var denied *relay.DeniedError
			if errors.As(err, &denied) {
				log.Info("integration iteration denied by policy", "index", i, "reason", denied.Reason)
				continue
			}
			log.Error("integration test failed", "index", i, "error", err)
			os.Exit(1)
		}
		log.Info("integration iteration passed", "index", i, "form_type", s.FormType,
			"business_message_id", res.BusinessMessageID,
			"client_message_id", res.ClientMessageID,
		)
	}

	log.Info("integration test passed")
}
