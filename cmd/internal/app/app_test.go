package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRuntimeBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "explicit localhost", in: "127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v4", in: "0.0.0.0:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v6", in: "[::]:9090", want: "http://127.0.0.1:9090"},
		{name: "port only", in: ":7000", want: "http://127.0.0.1:7000"},
		{name: "ipv6 host", in: "[2001:db8::1]:9090", want: "http://[2001:db8::1]:9090"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := runtimeBaseURL(tc.in)
			if got != tc.want {
				t.Fatalf("runtimeBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
			}
		})
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.StoreDriver = DriverMemory
	cfg.TokenSecret = "app-test-secret"
	cfg.MetricsEnabled = true
	return cfg
}

func newTestApp(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	a, err := New(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	ts := httptest.NewServer(a.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func request(t *testing.T, method, url, body, bearer string) (*http.Response, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return resp, string(out)
}

func TestNew_RequiresSecret(t *testing.T) {
	cfg := testConfig()
	cfg.TokenSecret = ""
	if _, err := New(context.Background(), cfg, discardLogger()); err == nil {
		t.Fatalf("expected error without token secret")
	}
}

func TestApp_EndToEnd(t *testing.T) {
	ts := newTestApp(t, testConfig())

	resp, body := request(t, http.MethodPost, ts.URL+"/api/auth/login", `{"username":"admin","password":"secret1"}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status=%d body=%s", resp.StatusCode, body)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header on login")
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Fatalf("missing request id")
	}
	var login struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expiresIn"`
	}
	if err := json.Unmarshal([]byte(body), &login); err != nil || login.Token == "" || login.ExpiresIn != 86400 {
		t.Fatalf("login body=%s err=%v", body, err)
	}

	resp, body = request(t, http.MethodGet, ts.URL+"/api/config", "", "")
	if resp.StatusCode != http.StatusUnauthorized || !strings.Contains(body, "未授权") {
		t.Fatalf("no header: status=%d body=%s", resp.StatusCode, body)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header on 401")
	}

	resp, body = request(t, http.MethodGet, ts.URL+"/api/config", "", login.Token)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"title":"默认页面"`) {
		t.Fatalf("config: status=%d body=%s", resp.StatusCode, body)
	}

	resp, _ = request(t, http.MethodPost, ts.URL+"/api/records/1", `{"rows":[["a"]]}`, login.Token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("records save status=%d", resp.StatusCode)
	}
	resp, body = request(t, http.MethodGet, ts.URL+"/api/records/1", "", login.Token)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `[["a"]]`) {
		t.Fatalf("records: status=%d body=%s", resp.StatusCode, body)
	}

	resp, body = request(t, http.MethodGet, ts.URL+"/api/auth/verify", "", login.Token)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"user":"admin"`) {
		t.Fatalf("verify: status=%d body=%s", resp.StatusCode, body)
	}
}

func TestApp_Routing(t *testing.T) {
	ts := newTestApp(t, testConfig())

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/nowhere", http.StatusNotFound},
		{http.MethodGet, "/api/nowhere", http.StatusUnauthorized},
		{http.MethodGet, "/api/auth/other", http.StatusMethodNotAllowed},
		{http.MethodOptions, "/api/config", http.StatusOK},
		{http.MethodOptions, "/anything", http.StatusOK},
	}
	for _, tc := range cases {
		resp, body := request(t, tc.method, ts.URL+tc.path, "", "")
		if resp.StatusCode != tc.want {
			t.Fatalf("%s %s: status=%d want=%d body=%s", tc.method, tc.path, resp.StatusCode, tc.want, body)
		}
		if resp.Header.Get("Access-Control-Allow-Methods") == "" {
			t.Fatalf("%s %s: missing CORS headers", tc.method, tc.path)
		}
	}
}

func TestApp_Metrics(t *testing.T) {
	ts := newTestApp(t, testConfig())

	_, _ = request(t, http.MethodPost, ts.URL+"/api/auth/login", `{"username":"admin","password":"secret1"}`, "")
	_, _ = request(t, http.MethodGet, ts.URL+"/healthz", "", "")

	resp, body := request(t, http.MethodGet, ts.URL+"/metrics", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status=%d", resp.StatusCode)
	}
	for _, want := range []string{
		`tabula_auth_logins_total{result="bootstrap"} 1`,
		`tabula_http_requests_total{code="200",method="GET",route="/healthz"} 1`,
		`tabula_http_request_duration_seconds`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestApp_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = false
	ts := newTestApp(t, cfg)

	resp, _ := request(t, http.MethodGet, ts.URL+"/metrics", "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 with metrics disabled, got %d", resp.StatusCode)
	}
}

func TestApp_ReadinessRequiresPersistentStore(t *testing.T) {
	cfg := testConfig()
	cfg.ReadinessRequirePersistent = true
	ts := newTestApp(t, cfg)

	resp, _ := request(t, http.MethodGet, ts.URL+"/readyz", "", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("memory store: expected 503, got %d", resp.StatusCode)
	}

	cfg.StoreDriver = DriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "ready.db")
	ts = newTestApp(t, cfg)

	resp, _ = request(t, http.MethodGet, ts.URL+"/readyz", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sqlite store: expected 200, got %d", resp.StatusCode)
	}
}

func TestApp_SQLitePersistsIdentity(t *testing.T) {
	cfg := testConfig()
	cfg.StoreDriver = DriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "tabula.db")

	first, err := New(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(first.Handler())
	resp, _ := request(t, http.MethodPost, ts.URL+"/api/auth/login", `{"username":"admin","password":"secret1"}`, "")
	ts.Close()
	_ = first.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bootstrap status=%d", resp.StatusCode)
	}

	ts2 := newTestApp(t, cfg)
	resp, _ = request(t, http.MethodPost, ts2.URL+"/api/auth/login", `{"username":"admin","password":"wrong-pass"}`, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after reopen, got %d", resp.StatusCode)
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.HTTPAddr = "127.0.0.1:0"

	a, err := New(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
