package ids

import (
	"strings"
	"testing"
)

func TestNewIsUniqueAndSortable(t *testing.T) {
	a := New()
	b := New()
	if a == b {
		t.Fatalf("expected distinct ids, got %s twice", a)
	}
	if len(a) != 26 || len(b) != 26 {
		t.Fatalf("unexpected id lengths: %q %q", a, b)
	}
	if !(a < b) {
		t.Fatalf("expected monotonic ordering: %s >= %s", a, b)
	}
}

func TestMemberCode(t *testing.T) {
	code := MemberCode("acme")
	if !strings.HasPrefix(code, "ACME-") {
		t.Fatalf("expected ACME- prefix, got %s", code)
	}
	if len(code) != len("ACME-")+8 {
		t.Fatalf("unexpected code length: %s", code)
	}
	if MemberCode("") == "" || !strings.HasPrefix(MemberCode(""), "MBR-") {
		t.Fatalf("expected MBR- fallback prefix")
	}
}
