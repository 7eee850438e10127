package dispatch

import (
	"sync"
	"time"

	"github.com/couchcryptid/cyclone-watch/internal/domain"
)

type incidentKey struct {
	windowStart time.Time
	tier        domain.RiskTier
	contact     string
}

// Guard suppresses repeat automatic notifications. A contact is alerted about
// a tier at most once per incident window, and only a delivered alert counts.
// Windows are aligned to multiples of the window length since the zero time;
// remembered keys expire with their window.
type Guard struct {
	window time.Duration

	mu   sync.Mutex
	sent map[incidentKey]time.Time // key -> expiry
}

// NewGuard creates a guard with the given incident window.
func NewGuard(window time.Duration) *Guard {
	return &Guard{
		window: window,
		sent:   make(map[incidentKey]time.Time),
	}
}

// Delivered reports whether contact was already alerted about tier in the
// incident window containing now.
func (g *Guard) Delivered(tier domain.RiskTier, contact string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now = now.UTC()
	g.purge(now)
	_, ok := g.sent[g.key(tier, contact, now)]
	return ok
}

// Record marks an alert to contact about tier as delivered for the incident
// window containing now. Call it only after a successful send.
func (g *Guard) Record(tier domain.RiskTier, contact string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now = now.UTC()
	g.purge(now)
	key := g.key(tier, contact, now)
	g.sent[key] = key.windowStart.Add(g.window)
}

func (g *Guard) key(tier domain.RiskTier, contact string, now time.Time) incidentKey {
	return incidentKey{windowStart: now.Truncate(g.window), tier: tier, contact: contact}
}

func (g *Guard) purge(now time.Time) {
	for k, expires := range g.sent {
		if !now.Before(expires) {
			delete(g.sent, k)
		}
	}
}
