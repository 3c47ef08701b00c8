package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestHandleMe verifies /api/v1/me echoes whichever identity the middleware stored.
func TestHandleMe(t *testing.T) {
	tests := []struct {
		name string
		info *UserInfo
		want UserInfo
	}{
		{"no identity middleware", nil, devUser},
		{"tailnet user", &UserInfo{Login: "alice@example.com", DisplayName: "Alice"}, UserInfo{Login: "alice@example.com", DisplayName: "Alice"}},
		{"empty display name", &UserInfo{Login: "bob@example.com"}, UserInfo{Login: "bob@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.info != nil {
				req = req.WithContext(context.WithValue(req.Context(), userInfoKey, *tt.info))
			}
			rec := httptest.NewRecorder()
			(&Server{}).handleMe(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var got UserInfo
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if got != tt.want {
				t.Errorf("me = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// TestQueryLimit verifies non-positive and malformed limits fall back to the default.
func TestQueryLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"?limit=5", 5},
		{"?limit=0", 20},
		{"?limit=-3", 20},
		{"?limit=ten", 20},
		{"?limit=250", 250},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/history"+tt.query, nil)
		if got := queryLimit(req, 20); got != tt.want {
			t.Errorf("queryLimit(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

// TestListExercisesUnknownType verifies the type filter is validated before the store is hit.
func TestListExercisesUnknownType(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/exercises?type=cardio", nil)
	rec := httptest.NewRecorder()
	(&Server{}).handleListExercises(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body["error"] == "" {
		t.Error("missing error message")
	}
}
