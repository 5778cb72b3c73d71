package vm

// tableMaxLoad is the load factor (count, including tombstones, over
// capacity) above which Table grows, per §3.
const tableMaxLoad = 0.75

// entry is one slot of a Table. A nil Key with a Value of Bool(true) is
// a tombstone: it keeps probe chains intact after Delete so later
// lookups for other keys don't stop short.
type entry struct {
	Key   *ObjStringData
	Value Value
}

// Table is an open-addressed hash map keyed by *ObjStringData identity.
// Because all ObjStringData values are interned (§4.3), two strings with
// equal content are the same pointer, so lookups compare pointers, never
// bytes, once a key has been found by its hash.
type Table struct {
	count    int // live entries plus tombstones, for load-factor accounting
	entries  []entry
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Get returns the value stored for key, if any.
func (t *Table) Get(key *ObjStringData) (Value, bool) {
	if len(t.entries) == 0 {
		return Nil, false
	}
	e := t.findEntry(key)
	if e.Key == nil {
		return Nil, false
	}
	return e.Value, true
}

// Set stores value under key, returning true if this created a brand
// new entry (as opposed to overwriting an existing one).
func (t *Table) Set(key *ObjStringData, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.grow()
	}

	e := t.findEntry(key)
	isNewKey := e.Key == nil
	if isNewKey && e.Value.IsNil() {
		// A genuinely empty slot (not a tombstone) grows the live count.
		t.count++
	}
	e.Key = key
	e.Value = value
	return isNewKey
}

// Delete removes key, leaving a tombstone so probe chains stay intact.
// Reports whether the key was present.
func (t *Table) Delete(key *ObjStringData) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.findEntry(key)
	if e.Key == nil {
		return false
	}
	e.Key = nil
	e.Value = Bool(true) // tombstone marker
	return true
}

// findEntry returns the slot key should occupy: either the slot already
// holding it, or the first empty/tombstone slot on its probe chain.
func (t *Table) findEntry(key *ObjStringData) *entry {
	capacity := uint32(len(t.entries))
	index := key.Hash & (capacity - 1)
	var tombstone *entry

	for {
		e := &t.entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				// Truly empty: return any tombstone we passed, else here.
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.Key == key {
			return e
		}
		index = (index + 1) & (capacity - 1)
	}
}

func (t *Table) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	old := t.entries
	t.entries = make([]entry, newCap)
	for i := range t.entries {
		// Empty slots hold Nil explicitly; the zero Value is only Nil in
		// the boxed layout.
		t.entries[i].Value = Nil
	}
	t.count = 0
	for _, e := range old {
		if e.Key == nil {
			continue
		}
		dst := t.findEntry(e.Key)
		dst.Key = e.Key
		dst.Value = e.Value
		t.count++
	}
}

// FindString looks up an interned string by raw content, bypassing
// identity comparison — the one place the interner is allowed to compare
// bytes instead of pointers, since this is how new candidates are
// checked against the existing pool (§4.3).
func (t *Table) FindString(chars string, hash uint32) *ObjStringData {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := uint32(len(t.entries))
	index := hash & (capacity - 1)
	for {
		e := &t.entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				return nil
			}
		} else if e.Key.Hash == hash && e.Key.Chars == chars {
			return e.Key
		}
		index = (index + 1) & (capacity - 1)
	}
}

// Each calls fn for every live key/value pair. Used by the GC to walk
// globals and method tables, and to sweep white strings from the
// interner (§4.2 phase 3).
func (t *Table) Each(fn func(key *ObjStringData, value Value)) {
	for _, e := range t.entries {
		if e.Key != nil {
			fn(e.Key, e.Value)
		}
	}
}
