package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tailscale.com/client/tailscale/apitype"
)

type resolverFunc func(ctx context.Context, login, displayName string) (int, error)

func (f resolverFunc) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	return f(ctx, login, displayName)
}

type profilelessWhoIs struct{}

func (profilelessWhoIs) WhoIs(context.Context, string) (*apitype.WhoIsResponse, error) {
	return &apitype.WhoIsResponse{}, nil
}

// identityProbe records what the identity middleware handed downstream.
func identityProbe(id *int, info *UserInfo) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*id = RequestUserID(r)
		*info = userInfoFromContext(r)
		w.WriteHeader(http.StatusOK)
	})
}

// TestDevIdentity verifies local mode attributes requests to user 1 as the dev user.
func TestDevIdentity(t *testing.T) {
	var id int
	var info UserInfo
	rec := httptest.NewRecorder()
	DevIdentity(identityProbe(&id, &info)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if id != 1 || info != devUser {
		t.Errorf("identity = %d %+v, want 1 %+v", id, info, devUser)
	}
}

// TestContextFallbacks verifies handlers running without identity middleware see the dev user.
func TestContextFallbacks(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := RequestUserID(req); id != 1 {
		t.Errorf("RequestUserID = %d, want 1", id)
	}
	if info := userInfoFromContext(req); info != devUser {
		t.Errorf("userInfo = %+v, want %+v", info, devUser)
	}

	req = req.WithContext(context.WithValue(req.Context(), userIDKey, 42))
	if id := RequestUserID(req); id != 42 {
		t.Errorf("RequestUserID = %d, want 42", id)
	}
}

// TestTailscaleIdentityResolvesUser verifies the WhoIs profile is passed to the resolver.
func TestTailscaleIdentityResolvesUser(t *testing.T) {
	var gotLogin, gotName string
	users := resolverFunc(func(_ context.Context, login, name string) (int, error) {
		gotLogin, gotName = login, name
		return 7, nil
	})
	var id int
	var info UserInfo
	mw := TailscaleIdentity(fakeWhoIs{login: "alice@example.com"}, users, slog.Default())
	rec := httptest.NewRecorder()
	mw(identityProbe(&id, &info)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotLogin != "alice@example.com" || gotName != "Alice" {
		t.Errorf("resolver got %q %q", gotLogin, gotName)
	}
	if id != 7 || info.Login != "alice@example.com" {
		t.Errorf("identity = %d %+v", id, info)
	}
}

// TestTailscaleIdentityFailures verifies unknown peers and resolver errors stop the request.
func TestTailscaleIdentityFailures(t *testing.T) {
	ok := resolverFunc(func(context.Context, string, string) (int, error) { return 1, nil })
	broken := resolverFunc(func(context.Context, string, string) (int, error) { return 0, errors.New("db down") })

	tests := []struct {
		name  string
		whois WhoIsClient
		users UserResolver
		want  int
	}{
		{"whois error", fakeWhoIs{err: errors.New("not a peer")}, ok, http.StatusUnauthorized},
		{"no user profile", profilelessWhoIs{}, ok, http.StatusUnauthorized},
		{"resolver error", fakeWhoIs{login: "alice@example.com"}, broken, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Error("next handler should not run")
			})
			rec := httptest.NewRecorder()
			TailscaleIdentity(tt.whois, tt.users, slog.Default())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// TestRequestLogging verifies the logged status is the one the handler wrote.
func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	handler := RequestLogging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/session/start", nil))

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	out := buf.String()
	for _, want := range []string{"status=201", "method=POST", "path=/api/v1/session/start"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}

// TestStatusWriterFlush verifies streaming responses can flush through the logging wrapper.
func TestStatusWriterFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	sw.Flush()
	if !rec.Flushed {
		t.Error("underlying recorder was not flushed")
	}
}

// TestCORS verifies headers on normal requests and the short-circuited preflight.
func TestCORS(t *testing.T) {
	called := false
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin = %q, want *", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "X-API-Key") {
		t.Errorf("allowed headers = %q, want X-API-Key", got)
	}
	if !called {
		t.Error("next handler was not called")
	}

	called = false
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if called {
		t.Error("next handler should not be called for OPTIONS")
	}
}

// TestAPIKeyAuth verifies missing and wrong keys are rejected.
func TestAPIKeyAuth(t *testing.T) {
	handler := APIKeyAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for key, want := range map[string]int{"": http.StatusUnauthorized, "wrong": http.StatusForbidden, "secret": http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("key %q: status = %d, want %d", key, rec.Code, want)
		}
	}
}
