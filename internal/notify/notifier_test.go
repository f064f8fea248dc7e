package notify

import (
	"context"

	"testing"
	"time"

	"amicus.org/internal/membership"
)

func TestNewEvent(t *testing.T) {
	member := &membership.Member{
		ID:    "mem-1",
		Code:  "ACME-01HZY3AB",
		Name:  "Alice Example",
		Email: "alice@example.com",
	}
	assoc := &membership.Association{ID: "assoc-a", Name: "Acme Rowing Club"}

	ev := newEvent(KindWelcome, member, assoc)
	if ev.Kind != KindWelcome {
		t.Fatalf("unexpected kind: %s", ev.Kind)
	}
	if ev.MemberID != "mem-1" || ev.MemberCode != "ACME-01HZY3AB" {
		t.Fatalf("member fields not carried: %+v", ev)
	}
	if ev.AssociationID != "assoc-a" || ev.AssociationName != "Acme Rowing Club" {
		t.Fatalf("association fields not carried: %+v", ev)
	}
	if time.Since(ev.OccurredAt) > time.Minute {
		t.Fatalf("occurred_at not set: %v", ev.OccurredAt)
	}
}

func TestLogNotifierNeverFails(t *testing.T) {
	member := &membership.Member{ID: "mem-1", Email: "alice@example.com"}
	assoc := &membership.Association{ID: "assoc-a"}
	var n LogNotifier
	if err := n.SendWelcome(context.Background(), member, assoc); err != nil {
		t.Fatalf("SendWelcome: %v", err)
	}
	if err := n.SendApproval(context.Background(), member, assoc); err != nil {
		t.Fatalf("SendApproval: %v", err)
	}
}
