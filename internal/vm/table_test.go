package vm

import "testing"

func internedKeys(strs ...string) []*ObjStringData {
	h := NewHeap(HeapOptions{})
	keys := make([]*ObjStringData, len(strs))
	for i, s := range strs {
		keys[i] = h.InternString(s)
	}
	return keys
}

func TestTableSetAndGet(t *testing.T) {
	keys := internedKeys("alpha", "beta", "gamma")
	table := NewTable()

	for i, k := range keys {
		isNew := table.Set(k, Number(float64(i)))
		if !isNew {
			t.Errorf("Set(%s) on fresh key reported isNew=false", k.Chars)
		}
	}

	for i, k := range keys {
		v, ok := table.Get(k)
		if !ok {
			t.Fatalf("Get(%s) missing", k.Chars)
		}
		if v.AsNumber() != float64(i) {
			t.Errorf("Get(%s) = %v, want %v", k.Chars, v.AsNumber(), i)
		}
	}
}

func TestTableGetMissingKey(t *testing.T) {
	keys := internedKeys("present", "absent")
	table := NewTable()
	table.Set(keys[0], Number(1))

	if _, ok := table.Get(keys[1]); ok {
		t.Error("Get on a never-set key should report not found")
	}
}

func TestTableSetOverwriteReturnsNotNew(t *testing.T) {
	keys := internedKeys("k")
	table := NewTable()
	table.Set(keys[0], Number(1))
	isNew := table.Set(keys[0], Number(2))
	if isNew {
		t.Error("overwriting an existing key should report isNew=false")
	}
	v, _ := table.Get(keys[0])
	if v.AsNumber() != 2 {
		t.Errorf("value after overwrite = %v, want 2", v.AsNumber())
	}
}

func TestTableDelete(t *testing.T) {
	keys := internedKeys("x", "y")
	table := NewTable()
	table.Set(keys[0], Number(1))
	table.Set(keys[1], Number(2))

	if !table.Delete(keys[0]) {
		t.Error("Delete on a present key should report true")
	}
	if table.Delete(keys[0]) {
		t.Error("Delete on an already-deleted key should report false")
	}
	if _, ok := table.Get(keys[0]); ok {
		t.Error("deleted key should no longer be found")
	}
	if _, ok := table.Get(keys[1]); !ok {
		t.Error("deleting one key should not disturb another")
	}
}

func TestTableTombstoneKeepsProbeChainIntact(t *testing.T) {
	// Force collisions by growing a tiny table and deleting mid-chain,
	// then confirming a later key on the same chain is still reachable.
	keys := internedKeys("one", "two", "three", "four", "five")
	table := NewTable()
	for i, k := range keys {
		table.Set(k, Number(float64(i)))
	}
	table.Delete(keys[1])
	for i, k := range keys {
		if i == 1 {
			continue
		}
		v, ok := table.Get(k)
		if !ok {
			t.Fatalf("Get(%s) missing after unrelated delete", k.Chars)
		}
		if v.AsNumber() != float64(i) {
			t.Errorf("Get(%s) = %v, want %v", k.Chars, v.AsNumber(), i)
		}
	}
}

func TestTableGrowsPastLoadFactor(t *testing.T) {
	table := NewTable()
	var keys []*ObjStringData
	h := NewHeap(HeapOptions{})
	for i := 0; i < 100; i++ {
		k := h.InternString(string(rune('a'+i%26)) + string(rune(i)))
		keys = append(keys, k)
		table.Set(k, Number(float64(i)))
	}
	for i, k := range keys {
		v, ok := table.Get(k)
		if !ok || v.AsNumber() != float64(i) {
			t.Errorf("key %d lost after growth", i)
		}
	}
}

func TestTableFindStringBypassesIdentity(t *testing.T) {
	h := NewHeap(HeapOptions{})
	s := h.InternString("needle")
	table := NewTable()
	table.Set(s, Bool(true))

	found := table.FindString("needle", fnv1a("needle"))
	if found != s {
		t.Error("FindString should return the same interned pointer by content")
	}
	if table.FindString("absent", fnv1a("absent")) != nil {
		t.Error("FindString on absent content should return nil")
	}
}

func TestTableEachVisitsOnlyLiveEntries(t *testing.T) {
	keys := internedKeys("a", "b", "c")
	table := NewTable()
	for i, k := range keys {
		table.Set(k, Number(float64(i)))
	}
	table.Delete(keys[1])

	seen := map[string]bool{}
	table.Each(func(key *ObjStringData, v Value) {
		seen[key.Chars] = true
	})
	if !seen["a"] || !seen["c"] {
		t.Error("Each should visit surviving keys")
	}
	if seen["b"] {
		t.Error("Each should not visit a deleted key")
	}
}
