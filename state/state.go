// Package state holds the console-wide selection: the namespace list, the
// namespace currently selected and the console name.
//
// One writer (the namespace picker) and many readers (pages). Readers either
// poll the getters or subscribe to snapshots.
package state

import "sync"

const DefaultWebName = "Oars-Cloud"

// Snapshot is an immutable copy of the context.
type Snapshot struct {
	Namespaces []string
	Current    string
	WebName    string
}

type Context struct {
	mu         sync.RWMutex
	namespaces []string
	current    string
	webName    string

	subs   map[int]chan Snapshot
	nextID int
}

func New() *Context {
	return &Context{
		webName: DefaultWebName,
		subs:    make(map[int]chan Snapshot),
	}
}

func (c *Context) Namespaces() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.namespaces...)
}

func (c *Context) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *Context) WebName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.webName
}

func (c *Context) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot()
}

func (c *Context) snapshot() Snapshot {
	return Snapshot{
		Namespaces: append([]string(nil), c.namespaces...),
		Current:    c.current,
		WebName:    c.webName,
	}
}

func (c *Context) SetNamespaces(namespaces []string) {
	c.update(func() { c.namespaces = append([]string(nil), namespaces...) })
}

func (c *Context) SetCurrent(namespace string) {
	c.update(func() { c.current = namespace })
}

func (c *Context) SetWebName(name string) {
	c.update(func() { c.webName = name })
}

// update applies fn and publishes the result. A subscriber that has not
// consumed the previous snapshot gets it replaced by the newest one.
func (c *Context) update(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fn()
	s := c.snapshot()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Subscribe returns a channel that always holds the latest snapshot not yet
// read, and a cancel func that closes it.
func (c *Context) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan Snapshot, 1)
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}
