package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/romenn/site-worker/internal/assets"
	"github.com/romenn/site-worker/internal/config"
	"github.com/romenn/site-worker/internal/relay"
	"github.com/romenn/site-worker/internal/submission"
	"github.com/romenn/site-worker/internal/types"
)

type mockProvider struct {
	mu     sync.Mutex
	sent   []*types.EmailData
	failAt int
}

func (p *mockProvider) Name() string {
	return "mock"
}

func (p *mockProvider) Send(ctx context.Context, d *types.EmailData) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, d)
	if len(p.sent) == p.failAt {
		return "", errors.New("brevo api error: 401 - unauthorized")
	}
	return "<id-" + d.DestinationAddress + ">", nil
}

func (p *mockProvider) Sent() []*types.EmailData {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

func testConfig(apiKey string) *config.Config {
	return &config.Config{
		AppEmailProvider:      config.ProviderBrevo,
		AppEmailSenderName:    "Römenn Inmobiliaria",
		AppEmailSenderAddress: "no-reply@romenninmobiliaria.es",
		AppBusinessEmail:      "romenn.inmo@gmail.com",
		AppMaxBodyBytes:       1 << 20,
		BrevoApiKey:           apiKey,
	}
}

func newTestHandler(t *testing.T, cfg *config.Config, p *mockProvider) *Handler {
	t.Helper()

	var opts []relay.Option
	if p != nil {
		opts = append(opts, relay.WithProvider(p))
	}
	rl, err := relay.New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatal(err)
	}

	site := fstest.MapFS{
		"index.html":           {Data: []byte("<h1>home</h1>")},
		"nosotros/index.html":  {Data: []byte("<h1>nosotros</h1>")},
		"assets/app.abc123.js": {Data: []byte("console.log(1)")},
		"404.html":             {Data: []byte("<h1>404</h1>")},
	}

	return New(rl, assets.NewHandler(assets.NewFSStore(site)), cfg.AppMaxBodyBytes)
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not json: %q", rec.Body.String())
	}
	return out
}

func TestPreflight(t *testing.T) {
	h := newTestHandler(t, testConfig("test"), &mockProvider{})

	for _, target := range []string{SendEmailPath, "/", "/nosotros"} {
		rec := do(h, http.MethodOptions, target, "")

		if rec.Code != http.StatusNoContent {
			t.Errorf("%s: expected 204, got %d", target, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
			t.Errorf("%s: unexpected allow methods %q", target, got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("%s: unexpected allow origin %q", target, got)
		}
		if got := rec.Header().Get("Access-Control-Max-Age"); got != "86400" {
			t.Errorf("%s: unexpected max age %q", target, got)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("%s: expected empty body", target)
		}
	}
}

func TestSendEmail_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, testConfig("test"), &mockProvider{})

	rec := do(h, http.MethodGet, SendEmailPath, "")

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "Method not allowed" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS headers on relay responses")
	}
}

func TestSendEmail_MissingFields(t *testing.T) {
	p := &mockProvider{}
	h := newTestHandler(t, testConfig("test"), p)

	rec := do(h, http.MethodPost, SendEmailPath, `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	msg, _ := decodeBody(t, rec)["error"].(string)
	if !strings.Contains(msg, "formType") || !strings.Contains(msg, "email") {
		t.Errorf("expected error to mention formType and email, got %q", msg)
	}
	if len(p.Sent()) != 0 {
		t.Error("expected nothing to be sent")
	}
}

func TestSendEmail_InvalidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{name: "header injection", email: "a@b.com\r\nBcc: victim@evil.com"},
		{name: "display name", email: "Ana <a@b.com>"},
		{name: "address list", email: "a@b.com, c@d.com"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &mockProvider{}
			h := newTestHandler(t, testConfig("test"), p)

			payload, _ := json.Marshal(map[string]string{"formType": "contacto", "email": tc.email})
			rec := do(h, http.MethodPost, SendEmailPath, string(payload))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if msg, _ := decodeBody(t, rec)["error"].(string); msg != "Invalid email address" {
				t.Errorf("unexpected error message %q", msg)
			}
			if len(p.Sent()) != 0 {
				t.Error("expected nothing to be sent")
			}
		})
	}
}

func TestSendEmail_InvalidJSON(t *testing.T) {
	h := newTestHandler(t, testConfig("test"), &mockProvider{})

	rec := do(h, http.MethodPost, SendEmailPath, `{"formType":`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "Invalid JSON body" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestSendEmail_BodyTooLarge(t *testing.T) {
	cfg := testConfig("test")
	cfg.AppMaxBodyBytes = 64
	h := newTestHandler(t, cfg, &mockProvider{})

	body := `{"formType":"contacto","email":"a@b.com","message":"` + strings.Repeat("x", 200) + `"}`
	rec := do(h, http.MethodPost, SendEmailPath, body)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestSendEmail_NotConfigured(t *testing.T) {
	h := newTestHandler(t, testConfig(""), nil)

	rec := do(h, http.MethodPost, SendEmailPath, `{"formType":"contacto","email":"a@b.com"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Email service not configured" {
		t.Errorf("unexpected error %v", body["error"])
	}
	if details, _ := body["details"].(string); !strings.Contains(details, "APP_BREVO_API_KEY") {
		t.Errorf("expected details to name the missing key, got %q", details)
	}
}

func TestSendEmail_Contact(t *testing.T) {
	p := &mockProvider{}
	h := newTestHandler(t, testConfig("test"), p)

	rec := do(h, http.MethodPost, SendEmailPath, `{"formType":"contacto","name":"Ana","email":"a@b.com","message":"hola"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("expected success true, got %v", body["success"])
	}
	if body["message"] != "Emails enviados correctamente" {
		t.Errorf("unexpected message %v", body["message"])
	}
	if body["businessMessageId"] != "<id-romenn.inmo@gmail.com>" || body["clientMessageId"] != "<id-a@b.com>" {
		t.Errorf("unexpected message ids %v / %v", body["businessMessageId"], body["clientMessageId"])
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected request id header")
	}

	sent := p.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected exactly 2 sends, got %d", len(sent))
	}
	if sent[0].DestinationAddress != "romenn.inmo@gmail.com" || sent[0].ReplyToAddress != "a@b.com" {
		t.Errorf("unexpected business email to=%q replyTo=%q", sent[0].DestinationAddress, sent[0].ReplyToAddress)
	}
	if sent[1].DestinationAddress != "a@b.com" {
		t.Errorf("unexpected client email to=%q", sent[1].DestinationAddress)
	}
}

func TestSendEmail_ReviewRating(t *testing.T) {
	p := &mockProvider{}
	h := newTestHandler(t, testConfig("test"), p)

	rec := do(h, http.MethodPost, SendEmailPath, `{"formType":"resenas","email":"a@b.com","rating":5,"feedback":"genial"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(p.Sent()[0].HTMLContent, "5 estrellas") {
		t.Error("expected '5 estrellas' in business notification")
	}
}

func TestSendEmail_SendFailures(t *testing.T) {
	testCases := []struct {
		name       string
		failAt     int
		prefix     string
		businessID bool
	}{
		{"business notification", 1, "business notification: ", false},
		{"client confirmation", 2, "client confirmation: ", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := &mockProvider{failAt: tc.failAt}
			h := newTestHandler(t, testConfig("test"), p)

			rec := do(h, http.MethodPost, SendEmailPath, `{"formType":"contacto","email":"a@b.com"}`)

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d", rec.Code)
			}
			body := decodeBody(t, rec)
			if body["error"] != "Error sending email" {
				t.Errorf("unexpected error %v", body["error"])
			}
			details, _ := body["details"].(string)
			if !strings.HasPrefix(details, tc.prefix) {
				t.Errorf("expected details prefixed %q, got %q", tc.prefix, details)
			}
			if _, ok := body["businessMessageId"]; ok != tc.businessID {
				t.Errorf("businessMessageId present=%v, want %v", ok, tc.businessID)
			}
			if len(p.Sent()) != tc.failAt {
				t.Errorf("expected %d sends, got %d", tc.failAt, len(p.Sent()))
			}
		})
	}
}

func TestSendEmail_InvalidAttachment(t *testing.T) {
	h := newTestHandler(t, testConfig("test"), &mockProvider{})

	rec := do(h, http.MethodPost, SendEmailPath,
		`{"formType":"trabaja-con-nosotros","email":"a@b.com","attachment":{"name":"cv.exe","content":"TVo=","type":"application/x-msdownload"}}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "Invalid attachment" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestSendEmail_TwiceIsIndependent(t *testing.T) {
	p := &mockProvider{}
	h := newTestHandler(t, testConfig("test"), p)

	body := `{"formType":"contacto","email":"a@b.com"}`
	first := do(h, http.MethodPost, SendEmailPath, body)
	second := do(h, http.MethodPost, SendEmailPath, body)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected two 200s, got %d and %d", first.Code, second.Code)
	}
	if len(p.Sent()) != 4 {
		t.Errorf("expected 4 sends, got %d", len(p.Sent()))
	}
	if first.Header().Get("X-Request-Id") == second.Header().Get("X-Request-Id") {
		t.Error("expected distinct request ids")
	}
}

func TestErrorFor(t *testing.T) {
	testCases := []struct {
		err    error
		status int
		msg    string
	}{
		{relay.ErrInvalidEmail, http.StatusBadRequest, "Invalid email address"},
		{&relay.DeniedError{Reason: "honeypot"}, http.StatusForbidden, "Submission rejected"},
		{relay.ErrNotConfigured, http.StatusInternalServerError, "Email service not configured"},
		{submission.ErrMissingFields, http.StatusBadRequest, "Missing required fields: formType, email"},
		{errors.New("render failed"), http.StatusInternalServerError, "Error sending email"},
	}

	for _, tc := range testCases {
		status, body := errorFor(tc.err)
		if status != tc.status || body.Error != tc.msg {
			t.Errorf("%v: got %d %q, want %d %q", tc.err, status, body.Error, tc.status, tc.msg)
		}
	}
}

func TestAssets(t *testing.T) {
	h := newTestHandler(t, testConfig("test"), &mockProvider{})

	rec := do(h, http.MethodGet, "/assets/app.abc123.js", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=31536000, immutable" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}

	rec = do(h, http.MethodGet, "/nosotros", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "<h1>nosotros</h1>" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=0, must-revalidate" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}

	rec = do(h, http.MethodGet, "/does-not-exist", "")
	if rec.Code != http.StatusNotFound || rec.Body.String() != "<h1>404</h1>" {
		t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

type panickingHandler struct{}

func (panickingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	panic("boom")
}

func TestRecoversPanics(t *testing.T) {
	rl, err := relay.New(context.Background(), testConfig(""))
	if err != nil {
		t.Fatal(err)
	}
	h := New(rl, panickingHandler{}, 1024)

	rec := do(h, http.MethodGet, "/", "")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "Internal Server Error" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}
