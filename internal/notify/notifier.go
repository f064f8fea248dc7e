// Package notify delivers best-effort member notifications. Publishing is
// fire-and-forget from the caller's point of view: errors are returned so the
// service can log them, but they never fail the operation they follow.
package notify

import (
	"context"
	"time"

	"amicus.org/internal/membership"
	"amicus.org/internal/obs"
)

const (
	KindWelcome  = "member.welcome"
	KindApproved = "member.approved"
)

// Event is the payload delivered for every member notification.
type Event struct {
	Kind            string    `json:"kind"`
	MemberID        string    `json:"member_id"`
	MemberCode      string    `json:"member_code"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	AssociationID   string    `json:"association_id"`
	AssociationName string    `json:"association_name"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func newEvent(kind string, member *membership.Member, assoc *membership.Association) Event {
	return Event{
		Kind:            kind,
		MemberID:        member.ID,
		MemberCode:      member.Code,
		Name:            member.Name,
		Email:           member.Email,
		AssociationID:   assoc.ID,
		AssociationName: assoc.Name,
		OccurredAt:      time.Now().UTC(),
	}
}

// LogNotifier writes notification events to the shared logger. Used when no
// broker is configured.
type LogNotifier struct{}

func (LogNotifier) SendWelcome(_ context.Context, member *membership.Member, assoc *membership.Association) error {
	logEvent(newEvent(KindWelcome, member, assoc))
	return nil
}

func (LogNotifier) SendApproval(_ context.Context, member *membership.Member, assoc *membership.Association) error {
	logEvent(newEvent(KindApproved, member, assoc))
	return nil
}

func logEvent(ev Event) {
	obs.LogEvent(map[string]any{
		"ts":          ev.OccurredAt.Format(time.RFC3339Nano),
		"type":        "notification",
		"event":       ev.Kind,
		"member_id":   ev.MemberID,
		"member_code": ev.MemberCode,
		"email":       ev.Email,
	})
}
