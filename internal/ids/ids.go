package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// MemberCode derives a human-readable member code from the association code,
// e.g. "ACME-01HZXW9K". The ULID suffix keeps codes unique per tenant.
func MemberCode(associationCode string) string {
	id := New()
	prefix := strings.ToUpper(strings.TrimSpace(associationCode))
	if prefix == "" {
		prefix = "MBR"
	}
	return prefix + "-" + id[len(id)-8:]
}
