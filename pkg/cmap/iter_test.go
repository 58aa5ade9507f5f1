package cmap

import (
	"sort"
	"sync"
	"testing"
)

func TestRange(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	sum := 0
	m.Range(func(_ string, v int) bool {
		sum += v
		return true
	})
	if sum != 6 {
		t.Errorf("sum = %d, want 6", sum)
	}

	visited := 0
	m.Range(func(string, int) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("visited %d entries after stop, want 1", visited)
	}
}

func TestKeys(t *testing.T) {
	m := New[string, int]()
	m.Set("x", 1)
	m.Set("y", 2)

	keys := m.Keys()
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "x" || keys[1] != "y" {
		t.Errorf("Keys() = %v, want [x y]", keys)
	}
}

func TestGetOrSet(t *testing.T) {
	m := New[string, int]()

	v, loaded := m.GetOrSet("k", 1)
	if loaded || v != 1 {
		t.Errorf("first GetOrSet = (%d, %v), want (1, false)", v, loaded)
	}
	v, loaded = m.GetOrSet("k", 2)
	if !loaded || v != 1 {
		t.Errorf("second GetOrSet = (%d, %v), want (1, true)", v, loaded)
	}
}

func TestCompute(t *testing.T) {
	m := New[string, int]()

	incr := func(v int, _ bool) (int, bool) { return v + 1, true }
	m.Compute("n", incr)
	got, _ := m.Compute("n", incr)
	if got != 2 {
		t.Errorf("Compute result = %d, want 2", got)
	}

	_, kept := m.Compute("n", func(int, bool) (int, bool) { return 0, false })
	if kept || m.Has("n") {
		t.Error("Compute with keep=false should delete the key")
	}

	m.Compute("missing", func(v int, exists bool) (int, bool) {
		if exists {
			t.Error("exists = true for a missing key")
		}
		return v, false
	})
	if m.Has("missing") {
		t.Error("Compute with keep=false created the key")
	}
}

func TestComputeIsAtomic(t *testing.T) {
	m := New[string, int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Compute("ctr", func(v int, _ bool) (int, bool) { return v + 1, true })
			}
		}()
	}
	wg.Wait()

	if v, _ := m.Get("ctr"); v != 5000 {
		t.Errorf("counter = %d, want 5000", v)
	}
}

func TestPop(t *testing.T) {
	m := New[string, int]()
	m.Set("k", 7)

	v, ok := m.Pop("k")
	if !ok || v != 7 {
		t.Errorf("Pop(k) = (%d, %v), want (7, true)", v, ok)
	}
	if _, ok := m.Pop("k"); ok {
		t.Error("second Pop(k) found a value")
	}
}

func TestDeleteIf(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 20; i++ {
		m.Set(i, i)
	}

	removed := m.DeleteIf(func(_ int, v int) bool { return v%2 == 0 })
	if removed != 10 {
		t.Errorf("DeleteIf removed %d, want 10", removed)
	}
	if m.Count() != 10 {
		t.Errorf("Count() = %d, want 10", m.Count())
	}
	if m.Has(4) {
		t.Error("even key 4 survived DeleteIf")
	}
}
