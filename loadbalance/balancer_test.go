package loadbalance

import (
	"errors"
	"fmt"
	"oars-console/registry"
	"testing"
)

var testInstances = []registry.ServiceInstance{
	{Addr: "http://10.0.0.1:8801", Weight: 10, Version: "v1"},
	{Addr: "http://10.0.0.2:8801", Weight: 5, Version: "v1"},
	{Addr: "http://10.0.0.3:8801", Weight: 10, Version: "v1"},
}

func TestRoundRobin(t *testing.T) {
	b := &RoundRobinBalancer{}

	// Pick 3 times, should cycle through all instances
	results := make([]string, 3)
	for i := 0; i < 3; i++ {
		inst, err := b.Pick(testInstances)
		if err != nil {
			t.Fatal(err)
		}
		results[i] = inst.Addr
	}

	// Pick again, should wrap around to first
	inst, _ := b.Pick(testInstances)
	if inst.Addr != results[0] {
		t.Fatalf("expect wrap around to %s, got %s", results[0], inst.Addr)
	}
}

func TestRoundRobinEmpty(t *testing.T) {
	b := &RoundRobinBalancer{}
	_, err := b.Pick([]registry.ServiceInstance{})
	if !errors.Is(err, ErrNoInstances) {
		t.Fatalf("expect ErrNoInstances, got %v", err)
	}
}

// 发现结果的顺序不影响轮询序列
func TestRoundRobinAddressOrder(t *testing.T) {
	shuffled := []registry.ServiceInstance{testInstances[2], testInstances[0], testInstances[1]}

	b := &RoundRobinBalancer{}
	for i := 0; i < 6; i++ {
		inst, err := b.Pick(shuffled)
		if err != nil {
			t.Fatal(err)
		}
		if want := testInstances[i%3].Addr; inst.Addr != want {
			t.Fatalf("pick %d: expect %s, got %s", i, want, inst.Addr)
		}
	}
}

func TestWeightedRandom(t *testing.T) {
	b := &WeightedRandomBalancer{}

	counts := map[string]int{}
	n := 10000
	for i := 0; i < n; i++ {
		inst, err := b.Pick(testInstances)
		if err != nil {
			t.Fatal(err)
		}
		counts[inst.Addr]++
	}

	// 权重 10:5:10，中间的实例大约占 20%
	ratio := float64(counts[testInstances[1].Addr]) / float64(n)
	if ratio < 0.15 || ratio > 0.25 {
		t.Fatalf("unexpected ratio for weight 5: %.2f", ratio)
	}
}

func TestWeightedRandomZeroWeights(t *testing.T) {
	b := &WeightedRandomBalancer{}
	instances := []registry.ServiceInstance{{Addr: "a"}, {Addr: "b"}}
	for i := 0; i < 100; i++ {
		if _, err := b.Pick(instances); err != nil {
			t.Fatal(err)
		}
	}
}

func TestConsistentHash(t *testing.T) {
	b := NewConsistentHashBalancer("")
	for i := range testInstances {
		b.Add(&testInstances[i])
	}

	// Same key should always map to the same instance
	inst1, _ := b.Locate("console-01")
	inst2, _ := b.Locate("console-01")
	if inst1.Addr != inst2.Addr {
		t.Fatalf("same key mapped to different instances: %s vs %s", inst1.Addr, inst2.Addr)
	}

	// Different keys should (likely) map to different instances
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		inst, _ := b.Locate(fmt.Sprintf("key-%d", i))
		seen[inst.Addr] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expect at least 2 different instances, got %d", len(seen))
	}
}

func TestConsistentHashPick(t *testing.T) {
	b := NewConsistentHashBalancer("console-01")
	first, err := b.Pick(testInstances)
	if err != nil {
		t.Fatal(err)
	}
	again, err := b.Pick(testInstances)
	if err != nil {
		t.Fatal(err)
	}
	if first.Addr != again.Addr {
		t.Fatalf("repeated pick moved from %s to %s", first.Addr, again.Addr)
	}

	if _, err := b.Pick(nil); err == nil {
		t.Fatal("expect error for empty instances")
	}
}

func TestNew(t *testing.T) {
	for strategy, name := range map[string]string{
		"":            "RoundRobin",
		"round-robin": "RoundRobin",
		"weighted":    "WeightedRandom",
		"hash":        "ConsistentHash",
	} {
		b, err := New(strategy, "host")
		if err != nil {
			t.Fatal(err)
		}
		if b.Name() != name {
			t.Errorf("New(%q) = %s, want %s", strategy, b.Name(), name)
		}
	}
	if _, err := New("random", ""); err == nil {
		t.Fatal("expect error for unknown strategy")
	}
}
