package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestStaticResolver(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/todos", nil)
	id, err := Static{ID: "local"}.OwnerID(r)
	if err != nil {
		t.Fatalf("static resolve: %v", err)
	}
	if id != "local" {
		t.Errorf("want local, got %q", id)
	}
}

// TestTokenResolverMissingHeader: no Authorization header (or a non-
// bearer one) is rejected before any store lookup happens.
func TestTokenResolverMissingHeader(t *testing.T) {
	tr := NewTokenResolver(nil)

	r := httptest.NewRequest("GET", "/api/todos", nil)
	if _, err := tr.OwnerID(r); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}

	r = httptest.NewRequest("GET", "/api/todos", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if _, err := tr.OwnerID(r); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestHashTokenStable(t *testing.T) {
	a, b := hashToken("secret"), hashToken("secret")
	if a != b {
		t.Errorf("hash not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("want 64 hex chars, got %d", len(a))
	}
	if hashToken("other") == a {
		t.Error("distinct tokens hash equal")
	}
}
