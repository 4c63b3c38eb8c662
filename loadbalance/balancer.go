// Package loadbalance picks the gateway instance the console talks to.
//
// The pick happens once at start-up; afterwards the base URL is fixed.
// Three strategies are implemented:
//   - RoundRobin:      equal-capacity gateways
//   - WeightedRandom:  heterogeneous gateways (different CPU/memory)
//   - ConsistentHash:  the same console host always lands on the same gateway
package loadbalance

import (
	"errors"
	"fmt"
	"oars-console/registry"
)

// ErrNoInstances is returned by every balancer when there is nothing to pick.
var ErrNoInstances = errors.New("no instances available")

// Balancer is the interface for load balancing strategies.
type Balancer interface {
	// Pick selects one instance from the available list.
	// Must be goroutine-safe.
	Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}

// New returns the balancer named by strategy. key is only used by the
// consistent hash strategy.
func New(strategy string, key string) (Balancer, error) {
	switch strategy {
	case "", "round-robin":
		return NewRoundRobinBalancer(), nil
	case "weighted":
		return &WeightedRandomBalancer{}, nil
	case "hash":
		return NewConsistentHashBalancer(key), nil
	}
	return nil, fmt.Errorf("unknown balancer %q", strategy)
}
