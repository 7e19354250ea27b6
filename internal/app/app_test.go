package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsinternal "github.com/romenn/site-worker/internal/aws"
	"github.com/romenn/site-worker/internal/config"
)

func newTestConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Römenn</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}

	environ := map[string]string{"APP_ASSETS_DIR": dir}
	for k, v := range env {
		environ[k] = v
	}

	cfg, err := config.Load(environ)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func TestBuild_ServesAssetsFromDirectory(t *testing.T) {
	cfg := newTestConfig(t, map[string]string{"APP_BREVO_API_KEY": "test-key"})

	a, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Shutdown(context.Background())

	if !a.Relay.Configured() {
		t.Error("expected relay to be configured")
	}

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Römenn") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestBuild_UnconfiguredRelay(t *testing.T) {
	cfg := newTestConfig(t, nil)

	a, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Relay.Configured() {
		t.Error("expected relay without credential to be unconfigured")
	}
	if a.Relay.MissingCredential() != "APP_BREVO_API_KEY" {
		t.Errorf("unexpected missing credential %q", a.Relay.MissingCredential())
	}

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/send-email", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 preflight, got %d", rec.Code)
	}
}

func TestBuild_InvalidPolicyPath(t *testing.T) {
	cfg := newTestConfig(t, map[string]string{
		"APP_BREVO_API_KEY":     "test-key",
		"APP_RELAY_POLICY_PATH": filepath.Join(t.TempDir(), "missing.rego"),
	})

	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatal("expected error for missing policy file")
	}
}

func TestBuild_MockedKeyRequiresDebugMode(t *testing.T) {
	tests := []struct {
		name      string
		debug     string
		expectErr bool
	}{
		{name: "production", debug: "false", expectErr: true},
		{name: "debug", debug: "true", expectErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := newTestConfig(t, map[string]string{
				"APP_BREVO_API_KEY":      "plain-key",
				"APP_SECRETS_KMS_KEY_ID": awsinternal.MockedKeyId,
				"APP_DEBUG_MODE":         tc.debug,
			})
			cfg.SetAWSConfig(aws.Config{Region: "eu-west-1"})

			a, err := Build(context.Background(), cfg)
			if tc.expectErr {
				if !errors.Is(err, awsinternal.ErrMockedKeyNotAllowed) {
					t.Fatalf("expected ErrMockedKeyNotAllowed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer a.Shutdown(context.Background())

			if cfg.BrevoApiKey != "plain-key" {
				t.Errorf("expected passthrough key, got %q", cfg.BrevoApiKey)
			}
		})
	}
}
