package domain

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDSource hands out block ids. Every call returns an id never returned before.
type IDSource interface {
	NewID(prefix string) string
}

// ULIDSource generates lexically sortable ids from a monotonic entropy
// source, so ids minted within the same millisecond still differ.
type ULIDSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewULIDSource creates an id source seeded from the clock.
func NewULIDSource() *ULIDSource {
	return &ULIDSource{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:     time.Now,
	}
}

// NewID returns prefix + "-" + a lower-case ULID.
func (s *ULIDSource) NewID(prefix string) string {
	s.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(s.now()), s.entropy)
	s.mu.Unlock()
	if prefix == "" {
		prefix = "block"
	}
	return prefix + "-" + strings.ToLower(id.String())
}
