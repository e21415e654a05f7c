package httpapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/inkpost/inkpost/internal/auth"
	"github.com/inkpost/inkpost/internal/config"
	"github.com/inkpost/inkpost/internal/model"
	"github.com/inkpost/inkpost/internal/rate"
	"github.com/inkpost/inkpost/internal/store"
	"github.com/inkpost/inkpost/internal/store/sqlite"
	"github.com/inkpost/inkpost/internal/upload"
)

const testSecret = "test-secret"

type allowAllLimiter struct{}

func (a allowAllLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	return true, 0
}

type testEnv struct {
	server     *Server
	store      store.Store
	auth       *auth.Service
	uploadsDir string
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, allowAllLimiter{}, config.Config{})
}

func newTestEnvWith(t *testing.T, limiter rate.Limiter, cfg config.Config) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := sqlite.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	dir := t.TempDir()
	intake, err := upload.New(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("uploads: %v", err)
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:3000"}
	}
	authSvc := auth.NewService(testSecret, nil)
	return &testEnv{
		server:     NewServer(st, authSvc, intake, limiter, cfg, zerolog.Nop()),
		store:      st,
		auth:       authSvc,
		uploadsDir: dir,
	}
}

// newUser stores a user directly and returns it with a valid token.
func (e *testEnv) newUser(t *testing.T, name, email, password string) (model.User, string) {
	t.Helper()
	hash, err := e.auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := model.User{Name: name, Email: email, PasswordHash: hash}
	if err := e.store.CreateUser(t.Context(), &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	tok, err := e.auth.IssueToken(auth.Identity{ID: u.ID, Name: u.Name})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return u, tok.Value
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.server.ServeHTTP(resp, req)
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(b)
	}
	return e.do(t, method, path, token, body, "application/json")
}

func (e *testEnv) doMultipart(t *testing.T, method, path, token string, fields map[string]string, fileField, fileName string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, fileField, fileName, data)
	return e.do(t, method, path, token, body, contentType)
}

// createPost goes through the HTTP handler so counters and files are real.
func (e *testEnv) createPost(t *testing.T, token, title, category string, thumb []byte) model.Post {
	t.Helper()
	resp := e.doMultipart(t, http.MethodPost, "/api/posts/", token, map[string]string{
		"title":       title,
		"category":    category,
		"description": "Description for " + title,
	}, "thumbnail", title+".png", thumb)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create post %s: status %d: %s", title, resp.Code, resp.Body.String())
	}
	var post model.Post
	decode(t, resp, &post)
	return post
}

func (e *testEnv) uploadedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.uploadsDir)
	if err != nil {
		t.Fatalf("read uploads: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), dest); err != nil {
		t.Fatalf("json parse: %v (%s)", err, resp.Body.String())
	}
}

func expectMessage(t *testing.T, resp *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if resp.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, resp.Code, resp.Body.String())
	}
	var payload map[string]string
	decode(t, resp, &payload)
	if payload["message"] != message {
		t.Fatalf("expected message %q, got %q", message, payload["message"])
	}
}

func TestAuthGate(t *testing.T) {
	env := newTestEnv(t)
	fields := map[string]string{"title": "t", "category": "Art", "description": "d"}

	resp := env.doMultipart(t, http.MethodPost, "/api/posts/", "", fields, "", "", nil)
	expectMessage(t, resp, http.StatusUnauthorized, "Unauthorized. No token provided")

	req := httptest.NewRequest(http.MethodPatch, "/api/users/edit-user", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	expectMessage(t, rec, http.StatusUnauthorized, "Unauthorized. No token provided")

	resp = env.doJSON(t, http.MethodDelete, "/api/posts/x", "not-a-jwt", nil)
	expectMessage(t, resp, http.StatusForbidden, "Unauthorized. Invalid token")

	stale := auth.NewService(testSecret, func() time.Time { return time.Now().Add(-25 * time.Hour) })
	tok, err := stale.IssueToken(auth.Identity{ID: "u1", Name: "Ada"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	resp = env.doJSON(t, http.MethodDelete, "/api/posts/x", tok.Value, nil)
	expectMessage(t, resp, http.StatusForbidden, "Unauthorized. Invalid token")

	// Reads are open.
	resp = env.doJSON(t, http.MethodGet, "/api/posts/", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected open read, got %d", resp.Code)
	}
}

func TestUnknownRoutes(t *testing.T) {
	env := newTestEnv(t)

	resp := env.doJSON(t, http.MethodGet, "/nope", "", nil)
	expectMessage(t, resp, http.StatusNotFound, "Not Found - /nope")

	resp = env.doJSON(t, http.MethodGet, "/api/comments", "", nil)
	expectMessage(t, resp, http.StatusNotFound, "Not Found - /api/comments")

	resp = env.doJSON(t, http.MethodPut, "/api/posts/abc", "", nil)
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestHealthAndDocs(t *testing.T) {
	env := newTestEnv(t)

	resp := env.doJSON(t, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"ok"`) {
		t.Fatalf("health: %d %s", resp.Code, resp.Body.String())
	}

	resp = env.doJSON(t, http.MethodGet, "/api/openapi.json", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("openapi: %d", resp.Code)
	}
	var doc map[string]any
	decode(t, resp, &doc)
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/api/posts/{id}"]; !ok {
		t.Fatalf("expected post routes in openapi doc")
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/posts/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	resp := httptest.NewRecorder()
	env.server.ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin, got %q", got)
	}
	if got := resp.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials allowed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/posts/", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp = httptest.NewRecorder()
	env.server.ServeHTTP(resp, req)
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected origin allowed: %q", got)
	}
}

func TestLoginThrottle(t *testing.T) {
	cfg := config.Config{RateLimits: config.RateLimits{LoginPerMinute: 2, RegisterPerMinute: 10}}
	env := newTestEnvWith(t, rate.NewMemory(), cfg)
	creds := map[string]string{"email": "nobody@example.com", "password": "whatever"}

	for i := 0; i < 2; i++ {
		resp := env.doJSON(t, http.MethodPost, "/api/users/login", "", creds)
		if resp.Code != http.StatusUnprocessableEntity {
			t.Fatalf("attempt %d: expected 422, got %d", i+1, resp.Code)
		}
	}
	resp := env.doJSON(t, http.MethodPost, "/api/users/login", "", creds)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestReadInputFormats(t *testing.T) {
	cases := []struct {
		name        string
		body        io.Reader
		contentType string
	}{
		{"json", strings.NewReader(`{"title":"Hi","count":3}`), "application/json"},
		{"urlencoded", strings.NewReader(url.Values{"title": {"Hi"}, "count": {"3"}}.Encode()), "application/x-www-form-urlencoded"},
	}
	body, ct := multipartBody(t, map[string]string{"title": "Hi", "count": "3"}, "", "", nil)
	cases = append(cases, struct {
		name        string
		body        io.Reader
		contentType string
	}{"multipart", body, ct})

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", tc.body)
		req.Header.Set("Content-Type", tc.contentType)
		in, err := readInput(httptest.NewRecorder(), req, 0)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if in["title"] != "Hi" || in["count"] != "3" {
			t.Fatalf("%s: unexpected fields %v", tc.name, in)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":`))
	req.Header.Set("Content-Type", "application/json")
	if _, err := readInput(httptest.NewRecorder(), req, 0); err == nil {
		t.Fatalf("expected error for truncated json")
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Content-Type", "application/json")
	if in, err := readInput(httptest.NewRecorder(), req, 0); err != nil || len(in) != 0 {
		t.Fatalf("empty body: %v %v", in, err)
	}
}

func loginFrom(env *testEnv, remoteAddr string, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(`{"email":"nobody@example.com","password":"whatever"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	env.server.ServeHTTP(resp, req)
	return resp.Code
}

func TestLoginThrottleIgnoresForwardedHeaders(t *testing.T) {
	cfg := config.Config{RateLimits: config.RateLimits{LoginPerMinute: 2, RegisterPerMinute: 10}}
	limiter := rate.NewMemory()
	env := newTestEnvWith(t, limiter, cfg)

	throttled := 0
	for i := 0; i < 10; i++ {
		code := loginFrom(env, "203.0.113.9:4000", map[string]string{
			"X-Forwarded-For": fmt.Sprintf("198.51.100.%d", i+1),
			"X-Real-IP":       fmt.Sprintf("192.0.2.%d", i+1),
		})
		if code == http.StatusTooManyRequests {
			throttled++
		}
	}
	if throttled != 8 {
		t.Fatalf("expected 8 throttled attempts, got %d", throttled)
	}
	if limiter.Len() != 1 {
		t.Fatalf("expected one limiter bucket, got %d", limiter.Len())
	}
}

func TestLoginThrottleBehindTrustedProxy(t *testing.T) {
	cfg := config.Config{
		TrustedProxies: []string{"10.0.0.0/8"},
		RateLimits:     config.RateLimits{LoginPerMinute: 2, RegisterPerMinute: 10},
	}
	env := newTestEnvWith(t, rate.NewMemory(), cfg)
	proxy := "10.1.2.3:5555"

	// The leftmost entry is client-written; the nearest untrusted hop is what counts.
	for i := 0; i < 2; i++ {
		xff := fmt.Sprintf("1.2.3.%d, 198.51.100.1, 10.0.0.7", i)
		if code := loginFrom(env, proxy, map[string]string{"X-Forwarded-For": xff}); code != http.StatusUnprocessableEntity {
			t.Fatalf("attempt %d: expected 422, got %d", i+1, code)
		}
	}
	if code := loginFrom(env, proxy, map[string]string{"X-Forwarded-For": "9.9.9.9, 198.51.100.1"}); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for the same forwarded client, got %d", code)
	}
	if code := loginFrom(env, proxy, map[string]string{"X-Forwarded-For": "198.51.100.2"}); code != http.StatusUnprocessableEntity {
		t.Fatalf("another client behind the proxy should pass, got %d", code)
	}

	// Headers from an untrusted peer are ignored.
	for i := 0; i < 2; i++ {
		loginFrom(env, "203.0.113.50:1000", map[string]string{"X-Forwarded-For": fmt.Sprintf("198.51.100.%d", 100+i)})
	}
	if code := loginFrom(env, "203.0.113.50:1000", map[string]string{"X-Forwarded-For": "198.51.100.200"}); code != http.StatusTooManyRequests {
		t.Fatalf("untrusted peer should be keyed on its socket address, got %d", code)
	}
}

func TestForwardedClient(t *testing.T) {
	proxies, err := config.ParseProxies([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cases := []struct {
		xff, realIP string
		want        string
	}{
		{"198.51.100.1", "", "198.51.100.1"},
		{"6.6.6.6, 198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"", "198.51.100.9", "198.51.100.9"},
		{"10.0.0.1, 10.0.0.2", "", ""},
		{"not-an-ip", "", ""},
	}
	for _, tc := range cases {
		h := http.Header{}
		if tc.xff != "" {
			h.Set("X-Forwarded-For", tc.xff)
		}
		if tc.realIP != "" {
			h.Set("X-Real-IP", tc.realIP)
		}
		addr, ok := forwardedClient(h, proxies)
		got := ""
		if ok {
			got = addr.String()
		}
		if got != tc.want {
			t.Fatalf("xff=%q real=%q: expected %q, got %q", tc.xff, tc.realIP, tc.want, got)
		}
	}
}

func TestOpenAPIDocCoversRoutes(t *testing.T) {
	env := newTestEnv(t)
	resp := env.doJSON(t, http.MethodGet, "/api/openapi.json", "", nil)
	var doc struct {
		Paths map[string]map[string]any `json:"paths"`
	}
	decode(t, resp, &doc)

	undocumented := map[string]bool{"/swagger/*": true, "/uploads/*": true, "/api/openapi.json": true}
	err := chi.Walk(env.server.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if undocumented[route] {
			return nil
		}
		if _, ok := doc.Paths[route][strings.ToLower(method)]; !ok {
			t.Errorf("%s %s missing from docs; run go generate ./internal/http", method, route)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
}
