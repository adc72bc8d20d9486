package realtime

import (
	"sort"
	"sync"
	"time"

	"github.com/DonShan/GeoTask/pkg/events"
)

// typingRegistry tracks which users are currently typing. Each indicator
// auto-expires after the TTL unless refreshed; a new indicator for the same
// user replaces the old one and restarts its clock.
type typingRegistry struct {
	mu      sync.Mutex
	ttl     time.Duration
	timers  map[string]*time.Timer
	emitter *events.Emitter[[]string]
}

func newTypingRegistry(ttl time.Duration) *typingRegistry {
	return &typingRegistry{
		ttl:     ttl,
		timers:  make(map[string]*time.Timer),
		emitter: events.NewEmitter[[]string](),
	}
}

// upsert records typing activity for user and restarts its expiry.
func (t *typingRegistry) upsert(user string) {
	if user == "" {
		return
	}
	t.mu.Lock()
	if timer, ok := t.timers[user]; ok {
		timer.Stop()
	}
	t.timers[user] = time.AfterFunc(t.ttl, func() { t.expire(user) })
	active := t.activeLocked()
	t.mu.Unlock()
	t.emitter.Emit(active)
}

func (t *typingRegistry) expire(user string) {
	t.mu.Lock()
	delete(t.timers, user)
	active := t.activeLocked()
	t.mu.Unlock()
	t.emitter.Emit(active)
}

// active returns the sorted list of currently typing users.
func (t *typingRegistry) active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeLocked()
}

func (t *typingRegistry) activeLocked() []string {
	users := make([]string, 0, len(t.timers))
	for user := range t.timers {
		users = append(users, user)
	}
	sort.Strings(users)
	return users
}

// stopAll cancels every pending expiry, for teardown.
func (t *typingRegistry) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for user, timer := range t.timers {
		timer.Stop()
		delete(t.timers, user)
	}
}
