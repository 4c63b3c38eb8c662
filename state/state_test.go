package state

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestContext(t *testing.T) {
	c := New()
	if c.WebName() != DefaultWebName {
		t.Fatalf("unexpected default web name %q", c.WebName())
	}

	in := []string{"system", "default"}
	c.SetNamespaces(in)
	in[0] = "mutated"
	if diff := cmp.Diff([]string{"system", "default"}, c.Namespaces()); diff != "" {
		t.Fatalf("namespaces mismatch (-want +got):\n%s", diff)
	}

	c.SetCurrent("default")
	c.SetWebName("My Cloud")
	want := Snapshot{Namespaces: []string{"system", "default"}, Current: "default", WebName: "My Cloud"}
	if diff := cmp.Diff(want, c.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscribeLatest(t *testing.T) {
	c := New()
	ch, cancel := c.Subscribe()

	c.SetCurrent("a")
	c.SetCurrent("b") // 未读的旧快照被最新的替换

	s := <-ch
	if s.Current != "b" {
		t.Fatalf("expect latest snapshot, got %q", s.Current)
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after cancel")
	}
	c.SetCurrent("c")
}

func TestConcurrentReaders(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Current()
				_ = c.Namespaces()
			}
		}()
	}
	for j := 0; j < 100; j++ {
		c.SetCurrent("ns")
	}
	wg.Wait()
}
