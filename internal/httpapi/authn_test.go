package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"amicus.org/internal/auth"
	"amicus.org/internal/membership"
)

func TestWithAuthRejectsMissingToken(t *testing.T) {
	ta := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/members", nil)
	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate header")
	}
}

func TestWithAuthRejectsGarbageToken(t *testing.T) {
	ta := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/members", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestWithAuthRejectsExpiredToken(t *testing.T) {
	store := membership.NewInMemoryStore()
	past := func() time.Time { return time.Now().Add(-48 * time.Hour) }
	stale, err := auth.NewTokenService("test-secret", auth.WithTTL(time.Hour), auth.WithClock(past))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	fresh, err := auth.NewTokenService("test-secret", auth.WithTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	svc, err := membership.NewService(store, fresh, membership.WithHashCost(4))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	handler := New(ReadyProbe{}, "test", svc).Handler()

	token, _, err := stale.Issue(adminActor())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/members", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rr.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	if _, err := extractBearerToken(""); err == nil {
		t.Fatal("expected error for empty header")
	}
	if _, err := extractBearerToken("Basic abc"); err == nil {
		t.Fatal("expected error for wrong scheme")
	}
	if _, err := extractBearerToken("Bearer "); err == nil {
		t.Fatal("expected error for empty token")
	}
	token, err := extractBearerToken("bearer abc.def.ghi")
	if err != nil {
		t.Fatalf("case-insensitive scheme should parse: %v", err)
	}
	if token != "abc.def.ghi" {
		t.Fatalf("unexpected token: %s", token)
	}
}
