package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	passwords := []string{"hunter22", "correct horse battery staple", "päss wörd 8+"}
	for _, pw := range passwords {
		hash, err := HashPassword(pw, 4) // low cost keeps the test fast
		if err != nil {
			t.Fatalf("HashPassword(%q): %v", pw, err)
		}
		if !VerifyPassword(hash, pw) {
			t.Fatalf("expected %q to verify against its own hash", pw)
		}
		if VerifyPassword(hash, pw+"x") {
			t.Fatalf("expected mismatched password to fail")
		}
	}
}

func TestHashIsSalted(t *testing.T) {
	first, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if first == second {
		t.Fatalf("two hashes of the same password must differ")
	}
	if !VerifyPassword(first, "hunter22") || !VerifyPassword(second, "hunter22") {
		t.Fatalf("both salted hashes must verify")
	}
}

func TestVerifyNeverFailsHard(t *testing.T) {
	if VerifyPassword("", "anything") {
		t.Fatalf("empty hash must not verify")
	}
	if VerifyPassword("not-a-bcrypt-hash", "anything") {
		t.Fatalf("malformed hash must not verify")
	}
	if VerifyPassword("$2a$10$garbage", "") {
		t.Fatalf("empty password must not verify")
	}
}

func TestHashPasswordCostFallback(t *testing.T) {
	if _, err := HashPassword("", 4); err == nil {
		t.Fatalf("expected error for empty password")
	}
	hash, err := HashPassword("hunter22", -1)
	if err != nil {
		t.Fatalf("HashPassword with out-of-range cost: %v", err)
	}
	if !VerifyPassword(hash, "hunter22") {
		t.Fatalf("fallback-cost hash must verify")
	}
}
