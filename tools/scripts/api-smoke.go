// Package main provides a CI-friendly HTTP smoke test for a running tabula server.
//
// It validates:
//   - CORS preflight
//   - login (bootstrapping the admin on a fresh store)
//   - 401 without a bearer token
//   - token verification
//   - config read and write
//   - record write, read back and non-array rejection
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type smokeClient struct {
	base    string
	token   string
	http    *http.Client
	timeout time.Duration
	verbose bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		username = flag.String("user", "admin", "Login username")
		password = flag.String("password", "smoke-pass", "Login password (becomes the admin password on a fresh store)")
		page     = flag.String("page", fmt.Sprintf("smoke-%d", time.Now().UnixNano()), "Page id to write records under")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-request timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	c := &smokeClient{
		base:    strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{},
		timeout: *timeout,
		verbose: *verbose,
	}
	root := context.Background()

	mustPreflight(root, c)
	mustLogin(root, c, *username, *password)
	mustRejectAnonymous(root, c)
	mustVerify(root, c, *username)
	pages := mustConfigRoundTrip(root, c)
	mustRecordsRoundTrip(root, c, *page)

	fmt.Printf("OK: base=%s pages=%d page=%s\n", c.base, pages, *page)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func mustPreflight(parent context.Context, c *smokeClient) {
	res := c.mustDo(parent, http.MethodOptions, "/api/config", nil, false)
	if res.status != http.StatusOK {
		fatalf("preflight: status=%d", res.status)
	}
	if res.header.Get("Access-Control-Allow-Methods") == "" {
		fatalf("preflight: missing Access-Control-Allow-Methods")
	}
}

func mustLogin(parent context.Context, c *smokeClient, username, password string) {
	res := c.mustDo(parent, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, false)
	if res.status != http.StatusOK {
		fatalf("login: status=%d body=%s", res.status, res.body)
	}

	var out struct {
		Success   bool   `json:"success"`
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expiresIn"`
	}
	mustDecode("login", res.body, &out)
	if !out.Success || out.Token == "" {
		fatalf("login: unexpected body %s", res.body)
	}
	if out.ExpiresIn != 86400 {
		fatalf("login: expiresIn=%d want=86400", out.ExpiresIn)
	}
	c.token = out.Token
}

func mustRejectAnonymous(parent context.Context, c *smokeClient) {
	res := c.mustDo(parent, http.MethodGet, "/api/config", nil, false)
	if res.status != http.StatusUnauthorized {
		fatalf("anonymous config: status=%d want=401", res.status)
	}
}

func mustVerify(parent context.Context, c *smokeClient, username string) {
	res := c.mustDo(parent, http.MethodGet, "/api/auth/verify", nil, true)
	if res.status != http.StatusOK {
		fatalf("verify: status=%d body=%s", res.status, res.body)
	}
	var out struct {
		Valid bool   `json:"valid"`
		User  string `json:"user"`
	}
	mustDecode("verify", res.body, &out)
	if !out.Valid || out.User != username {
		fatalf("verify: unexpected body %s", res.body)
	}
}

// mustConfigRoundTrip writes the current configuration back unchanged so the
// smoke run leaves the server as it found it.
func mustConfigRoundTrip(parent context.Context, c *smokeClient) int {
	res := c.mustDo(parent, http.MethodGet, "/api/config", nil, true)
	if res.status != http.StatusOK {
		fatalf("config get: status=%d body=%s", res.status, res.body)
	}
	var cfg struct {
		Pages []json.RawMessage `json:"pages"`
	}
	mustDecode("config", res.body, &cfg)

	res = c.mustDo(parent, http.MethodPost, "/api/config", json.RawMessage(res.body), true)
	if res.status != http.StatusOK {
		fatalf("config post: status=%d body=%s", res.status, res.body)
	}

	bad := c.mustDo(parent, http.MethodPost, "/api/config", map[string]any{
		"pages": []map[string]any{{"id": "x", "title": "x", "columns": 99}},
	}, true)
	if bad.status != http.StatusBadRequest {
		fatalf("config validation: status=%d want=400", bad.status)
	}
	return len(cfg.Pages)
}

func mustRecordsRoundTrip(parent context.Context, c *smokeClient, page string) {
	path := "/api/records/" + url.PathEscape(page)
	rows := [][]string{{"smoke", time.Now().UTC().Format(time.RFC3339)}}

	res := c.mustDo(parent, http.MethodPost, path, map[string]any{"rows": rows}, true)
	if res.status != http.StatusOK {
		fatalf("records post: status=%d body=%s", res.status, res.body)
	}

	res = c.mustDo(parent, http.MethodGet, path, nil, true)
	if res.status != http.StatusOK {
		fatalf("records get: status=%d body=%s", res.status, res.body)
	}
	var out struct {
		Success bool       `json:"success"`
		Rows    [][]string `json:"rows"`
	}
	mustDecode("records", res.body, &out)
	if len(out.Rows) != 1 || len(out.Rows[0]) != 2 || out.Rows[0][0] != "smoke" {
		fatalf("records get: unexpected rows %s", res.body)
	}

	res = c.mustDo(parent, http.MethodPost, path, map[string]any{"rows": "not-an-array"}, true)
	if res.status != http.StatusBadRequest {
		fatalf("records validation: status=%d want=400", res.status)
	}
}

func (c *smokeClient) mustDo(parent context.Context, method, path string, payload any, auth bool) response {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(mustJSON(payload))
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		fatalf("%s %s: build request: %v", method, path, err)
	}
	req.Header.Set("Origin", "http://localhost")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fatalf("%s %s: read body: %v", method, path, err)
	}
	if c.verbose {
		fmt.Printf("%s %s -> %d %s\n", method, path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	return response{status: resp.StatusCode, header: resp.Header, body: raw}
}

func mustDecode(step string, raw []byte, dst any) {
	if err := json.Unmarshal(raw, dst); err != nil {
		fatalf("%s: decode %q: %v", step, raw, err)
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
