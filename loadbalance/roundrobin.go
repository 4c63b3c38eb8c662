package loadbalance

import (
	"math/rand"
	"oars-console/registry"
	"sort"
	"sync/atomic"
)

// RoundRobinBalancer cycles through instances in address order, so the
// sequence does not depend on the order discovery returned them in.
//
// The zero value starts at the first address. NewRoundRobinBalancer starts
// at a random one: consoles pick once at start-up, and a fixed start would
// send every fresh console to the same gateway.
type RoundRobinBalancer struct {
	next atomic.Uint64
}

func NewRoundRobinBalancer() *RoundRobinBalancer {
	b := &RoundRobinBalancer{}
	b.next.Store(rand.Uint64())
	return b
}

func (b *RoundRobinBalancer) Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}

	order := make([]int, len(instances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return instances[order[i]].Addr < instances[order[j]].Addr
	})

	n := b.next.Add(1) - 1
	return &instances[order[n%uint64(len(order))]], nil
}

func (b *RoundRobinBalancer) Name() string {
	return "RoundRobin"
}
