package auth

import (
	"strings"
	"testing"
	"time"
)

func testActor() Actor {
	return Actor{
		UserID:        "user-42",
		Email:         "alice@example.com",
		Role:          RoleMember,
		AssociationID: "assoc-a",
	}
}

func TestIssueAndVerify(t *testing.T) {
	svc, err := NewTokenService("test-secret", WithIssuer("test-issuer"), WithTTL(30*time.Minute))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, expiresAt, err := svc.Issue(testActor())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiration, got %v", expiresAt)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != RoleMember || claims.AssociationID != "assoc-a" {
		t.Fatalf("claims not preserved: %+v", claims)
	}
	actor := claims.Actor()
	if actor != testActor() {
		t.Fatalf("actor round-trip mismatch: %+v", actor)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, _, err := svc.Issue(testActor())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cases := []string{
		"",
		"not-a-token",
		"a.b",
		token + "x",
		strings.Replace(token, ".", "x", 1),
	}
	for _, raw := range cases {
		if _, err := svc.Verify(raw); err != ErrInvalidToken {
			t.Fatalf("Verify(%.20q) = %v, want ErrInvalidToken", raw, err)
		}
	}

	other, err := NewTokenService("different-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	if _, err := other.Verify(token); err != ErrInvalidToken {
		t.Fatalf("token signed with another secret must be invalid, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	current := time.Now().UTC()
	svc, err := NewTokenService("test-secret",
		WithTTL(time.Minute),
		WithClock(func() time.Time { return current }),
	)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, _, err := svc.Issue(testActor())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := svc.Verify(token); err != nil {
		t.Fatalf("fresh token must verify: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if _, err := svc.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expired token must report ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsForeignIssuerAndBadRole(t *testing.T) {
	minter, err := NewTokenService("test-secret", WithIssuer("someone-else"))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	verifier, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, _, err := minter.Issue(testActor())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Verify(token); err != ErrInvalidToken {
		t.Fatalf("foreign issuer must be invalid, got %v", err)
	}
}

func TestSuperAdminClaimsOmitAssociation(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, _, err := svc.Issue(Actor{UserID: "root-1", Email: "root@example.com", Role: RoleSuperAdmin})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.AssociationID != "" {
		t.Fatalf("super_admin token must not carry an association, got %q", claims.AssociationID)
	}
}
