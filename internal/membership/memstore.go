package membership

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"amicus.org/internal/auth"
)

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore is a map-backed Store for development and tests. It honors
// the same error taxonomy and atomicity rules as the PostgreSQL gateway but
// keeps everything in process memory; nothing survives a restart.
type InMemoryStore struct {
	mu      sync.RWMutex
	assocs  map[string]*Association
	users   map[string]*User
	members map[string]*Member
}

// NewInMemoryStore returns an empty store safe for concurrent use.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		assocs:  map[string]*Association{},
		users:   map[string]*User{},
		members: map[string]*Member{},
	}
}

func (m *InMemoryStore) CreateAssociation(_ context.Context, assoc *Association) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assocs {
		if a.Code == assoc.Code {
			return ErrDuplicateCode
		}
	}
	cp := *assoc
	m.assocs[assoc.ID] = &cp
	return nil
}

func (m *InMemoryStore) GetAssociation(_ context.Context, id string) (*Association, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assocs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *InMemoryStore) ListAssociations(_ context.Context) ([]*Association, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Association
	for _, a := range m.assocs {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *InMemoryStore) FindUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *InMemoryStore) GetUser(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// CreateAccount is all-or-nothing like the transactional gateway.
func (m *InMemoryStore) CreateAccount(_ context.Context, user *User, member *Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicateAccount
		}
	}
	if _, ok := m.assocs[member.AssociationID]; !ok {
		return ErrInvalidAssociation
	}
	uc, mc := *user, *member
	m.users[user.ID] = &uc
	m.members[member.ID] = &mc
	return nil
}

func (m *InMemoryStore) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (m *InMemoryStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *InMemoryStore) GetMember(_ context.Context, _ auth.Actor, memberID string) (*Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mb, ok := m.members[memberID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *mb
	return &cp, nil
}

func (m *InMemoryStore) GetMemberByUser(_ context.Context, _ auth.Actor, userID string) (*Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mb := range m.members {
		if mb.UserID == userID {
			cp := *mb
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *InMemoryStore) ListMembers(_ context.Context, _ auth.Actor, filter MemberFilter) ([]*Member, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*Member
	for _, mb := range m.members {
		if filter.AssociationID != "" && mb.AssociationID != filter.AssociationID {
			continue
		}
		if filter.Status != "" && mb.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !memberMatches(mb, filter.Search) {
			continue
		}
		cp := *mb
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := len(matched)
	start := (filter.Page - 1) * filter.Limit
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func memberMatches(mb *Member, q string) bool {
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(mb.Name), q) ||
		strings.Contains(strings.ToLower(mb.Email), q) ||
		strings.Contains(strings.ToLower(mb.Code), q)
}

func (m *InMemoryStore) TransitionMember(_ context.Context, _ auth.Actor, memberID string, from, to MemberStatus) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mb, ok := m.members[memberID]
	if !ok {
		return nil, ErrNotFound
	}
	if mb.Status != from {
		return nil, ErrStatusConflict
	}
	mb.Status = to
	mb.UpdatedAt = time.Now().UTC()
	cp := *mb
	return &cp, nil
}

func (m *InMemoryStore) MemberStats(_ context.Context, _ auth.Actor, associationID string) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats Stats
	for _, mb := range m.members {
		if mb.AssociationID != associationID {
			continue
		}
		stats.Total++
		switch mb.Status {
		case MemberPending:
			stats.Pending++
		case MemberActive:
			stats.Active++
		case MemberInactive:
			stats.Inactive++
		case MemberSuspended:
			stats.Suspended++
		}
	}
	return stats, nil
}
