package pipeline

import (
	"fmt"
	"sync"

	"repowiki/internal/types"
)

// Coalescer merges concurrent runs for the same key into one execution.
// The caller that registers a key first is its leader and runs fn on its
// own goroutine; later callers wait for the leader's result.
type Coalescer struct {
	mu     sync.Mutex
	active map[string]*call
}

type call struct {
	done chan struct{}
	w    *types.Wiki
	err  error
}

func NewCoalescer() *Coalescer {
	return &Coalescer{active: make(map[string]*call)}
}

// Do runs fn for key unless a run for key is already in flight, in which
// case onJoin is called and the caller waits for that run's result.
// joined reports whether the caller attached to another run.
func (c *Coalescer) Do(key string, fn func() (*types.Wiki, error), onJoin func()) (w *types.Wiki, joined bool, err error) {
	c.mu.Lock()
	if cl, ok := c.active[key]; ok {
		c.mu.Unlock()
		if onJoin != nil {
			onJoin()
		}
		<-cl.done
		return cl.w, true, cl.err
	}
	cl := &call{done: make(chan struct{})}
	c.active[key] = cl
	c.mu.Unlock()

	c.lead(key, cl, fn)
	return cl.w, false, cl.err
}

func (c *Coalescer) lead(key string, cl *call, fn func() (*types.Wiki, error)) {
	defer func() {
		if r := recover(); r != nil {
			cl.w, cl.err = nil, fmt.Errorf("pipeline run panicked: %v", r)
			c.finish(key, cl)
			panic(r)
		}
	}()
	cl.w, cl.err = fn()
	c.finish(key, cl)
}

func (c *Coalescer) finish(key string, cl *call) {
	c.mu.Lock()
	if c.active[key] == cl {
		delete(c.active, key)
	}
	c.mu.Unlock()
	close(cl.done)
}

// InFlight reports whether a run for key is executing.
func (c *Coalescer) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[key]
	return ok
}
