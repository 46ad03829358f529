package engine

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// =============================================================================
// IDENTIFIERS - Monotonic, collision-resistant ULIDs
// =============================================================================

// IDGenerator issues ULIDs for account, instrument, and transaction
// numbers. ULIDs are lexicographically sortable by creation time and the
// monotonic entropy source prevents collisions under concurrent creation.
type IDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Next returns a new ULID string.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), g.entropy).String()
}

// NextWithPrefix returns a prefixed ULID, e.g. "txn-01J...".
// Prefixes keep identifiers self-describing in logs and storage.
func (g *IDGenerator) NextWithPrefix(prefix string) string {
	return prefix + "-" + g.Next()
}
