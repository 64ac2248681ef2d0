// Package inflight keeps at most one call per action key running at a time.
// A caller that arrives while the action is running waits for that call and
// receives its result instead of issuing a second request.
package inflight

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

type Guard struct {
	group singleflight.Group

	mu      sync.Mutex
	running map[string]bool
}

// Do runs fn under key. shared reports whether the result came from a call
// started by another caller.
func Do[T any](g *Guard, key string, fn func() (T, error)) (result T, shared bool, err error) {
	v, err, shared := g.group.Do(key, func() (any, error) {
		g.mark(key, true)
		defer g.mark(key, false)
		return fn()
	})
	if v != nil {
		result = v.(T)
	}
	return result, shared, err
}

// Busy reports whether a call for key is running.
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running[key]
}

func (g *Guard) mark(key string, on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = map[string]bool{}
	}
	if on {
		g.running[key] = true
	} else {
		delete(g.running, key)
	}
}
