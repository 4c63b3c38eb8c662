// Package nav holds the console's route table and runs guards before every
// route transition.
package nav

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed routes.yaml
var defaultRoutes []byte

var (
	ErrRouteNotFound = errors.New("route not found")
	ErrNextNotCalled = errors.New("guard did not call next")
	ErrNextTwice     = errors.New("guard called next more than once")
)

// Meta is per-route metadata consumed once per navigation.
type Meta struct {
	Title string `yaml:"title,omitempty"`
}

type Route struct {
	Path string `yaml:"path"`
	Name string `yaml:"name"`
	Meta Meta   `yaml:"meta,omitempty"`
}

// Guard runs before a transition and must call next exactly once.
type Guard func(to, from *Route, next func())

// Document is whatever shows the title: a browser window, a terminal.
type Document interface {
	Title() string
	SetTitle(title string)
}

// TitleGuard applies the target route's title, if any, then lets the
// transition proceed.
func TitleGuard(doc Document) Guard {
	return func(to, from *Route, next func()) {
		if to.Meta.Title != "" {
			doc.SetTitle(to.Meta.Title)
		}
		next()
	}
}

// LoadRoutes reads a YAML route list.
func LoadRoutes(r io.Reader) ([]Route, error) {
	var routes []Route
	if err := yaml.NewDecoder(r).Decode(&routes); err != nil {
		return nil, fmt.Errorf("load routes: %w", err)
	}
	for i, route := range routes {
		if route.Path == "" {
			return nil, fmt.Errorf("load routes: route %d has no path", i)
		}
	}
	return routes, nil
}

// DefaultRoutes returns the console's built-in route table.
func DefaultRoutes() []Route {
	routes, err := LoadRoutes(strings.NewReader(string(defaultRoutes)))
	if err != nil {
		panic("nav: embedded routes: " + err.Error())
	}
	return routes
}

// Router resolves paths and runs the guards in registration order.
type Router struct {
	mu      sync.Mutex
	routes  map[string]*Route
	guards  []Guard
	current *Route
}

func NewRouter(routes []Route) *Router {
	r := &Router{routes: make(map[string]*Route, len(routes))}
	for i := range routes {
		route := routes[i]
		r.routes[route.Path] = &route
	}
	return r
}

// BeforeEach registers a guard.
func (r *Router) BeforeEach(g Guard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards = append(r.guards, g)
}

// Current returns the route of the last completed transition, nil before
// the first one.
func (r *Router) Current() *Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Routes returns the table sorted by path.
func (r *Router) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Route, 0, len(r.routes))
	for _, route := range r.routes {
		out = append(out, *route)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})
	return out
}

// Push navigates to path. Each guard is invoked once and must call next
// exactly once; the transition completes after the last guard.
func (r *Router) Push(path string) (*Route, error) {
	r.mu.Lock()
	to, ok := r.routes[path]
	from := r.current
	guards := append([]Guard(nil), r.guards...)
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}

	for _, g := range guards {
		calls := 0
		g(to, from, func() { calls++ })
		switch {
		case calls == 0:
			return nil, ErrNextNotCalled
		case calls > 1:
			return nil, ErrNextTwice
		}
	}

	r.mu.Lock()
	r.current = to
	r.mu.Unlock()
	return to, nil
}
