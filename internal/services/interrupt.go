package services

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// InterruptRegistry tracks in-flight chat turns and lets any caller raise a
// cooperative stop flag for a user. The orchestrator polls the flag at
// backend dispatch boundaries; nothing is forcibly cancelled mid-generation.
// With Redis configured the flag also propagates across instances.
type InterruptRegistry struct {
	mu     sync.Mutex
	active map[string]*atomic.Bool
	redis  *RedisService
}

// NewInterruptRegistry creates a registry. redis may be nil.
func NewInterruptRegistry(redis *RedisService) *InterruptRegistry {
	return &InterruptRegistry{
		active: make(map[string]*atomic.Bool),
		redis:  redis,
	}
}

// Begin registers a turn for a user and returns its stop flag. A new turn
// for the same user replaces the previous registration; the old turn keeps
// its own flag and simply can no longer be targeted.
func (r *InterruptRegistry) Begin(ctx context.Context, userID string) *atomic.Bool {
	flag := &atomic.Bool{}
	r.mu.Lock()
	r.active[userID] = flag
	r.mu.Unlock()

	// A stale cross-instance flag from before this turn must not kill it.
	if r.redis != nil {
		if err := r.redis.ClearInterrupt(ctx, userID); err != nil {
			log.Printf("⚠️ [INTERRUPT] Failed to clear stale flag for user %s: %v", userID, err)
		}
	}
	return flag
}

// End unregisters a turn. Only the turn that owns the flag unregisters it.
func (r *InterruptRegistry) End(userID string, flag *atomic.Bool) {
	r.mu.Lock()
	if r.active[userID] == flag {
		delete(r.active, userID)
	}
	r.mu.Unlock()
}

// Interrupt raises the stop flag for a user's in-flight turn. It reports
// whether a local turn was found; with Redis the flag is raised remotely
// regardless, in case another instance holds the turn.
func (r *InterruptRegistry) Interrupt(ctx context.Context, userID string) bool {
	r.mu.Lock()
	flag, ok := r.active[userID]
	r.mu.Unlock()

	if ok {
		flag.Store(true)
	}
	if r.redis != nil {
		if err := r.redis.MarkInterrupt(ctx, userID); err != nil {
			log.Printf("⚠️ [INTERRUPT] Failed to mark remote flag for user %s: %v", userID, err)
		}
	}
	return ok
}

// Interrupted checks a turn's stop flag, including the cross-instance one.
func (r *InterruptRegistry) Interrupted(ctx context.Context, userID string, flag *atomic.Bool) bool {
	if flag.Load() {
		return true
	}
	if r.redis != nil {
		remote, err := r.redis.IsInterrupted(ctx, userID)
		if err != nil {
			return false
		}
		if remote {
			flag.Store(true)
			return true
		}
	}
	return false
}
