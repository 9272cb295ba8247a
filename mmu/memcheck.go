package mmu

// Debugger watchpoints, consulted on every guest data access. The
// table lives on the MMU because the BAT fast-path bits depend on it:
// a coarse page overlapping a watchpoint loses its unguarded-access
// flag so every access takes the slow path through Memcheck.

// MemCheck is one watchpoint over [Start, End] inclusive.
type MemCheck struct {
	Start uint32
	End   uint32

	BreakOnRead  bool
	BreakOnWrite bool

	LogOnHit   bool
	BreakOnHit bool
}

// MemChecks is the watchpoint table. Single-writer like the rest of
// the MMU: mutate only on the CPU thread or under the pause guard.
type MemChecks struct {
	checks []MemCheck
}

// HasAny reports whether any watchpoint is set
func (c *MemChecks) HasAny() bool {
	return len(c.checks) > 0
}

// Add registers a watchpoint
func (c *MemChecks) Add(mc MemCheck) {
	c.checks = append(c.checks, mc)
}

// Clear drops every watchpoint
func (c *MemChecks) Clear() {
	c.checks = nil
}

// Lookup returns the first watchpoint overlapping an access of size
// bytes at address, or nil.
func (c *MemChecks) Lookup(address, size uint32) *MemCheck {
	for i := range c.checks {
		mc := &c.checks[i]
		if address <= mc.End && address+size-1 >= mc.Start {
			return mc
		}
	}
	return nil
}

// Overlaps reports whether any watchpoint intersects [address,
// address+length).
func (c *MemChecks) Overlaps(address, length uint32) bool {
	return c.Lookup(address, length) != nil
}

// memcheck is called by the typed guest accessors around every access
func (m *MMU) memcheck(address uint32, value uint64, write bool, size uint32) {
	if !m.memChecks.HasAny() {
		return
	}
	mc := m.memChecks.Lookup(address, size)
	if mc == nil {
		return
	}
	if write && !mc.BreakOnWrite {
		return
	}
	if !write && !mc.BreakOnRead {
		return
	}
	if mc.LogOnHit {
		kind := "read"
		if write {
			kind = "write"
		}
		m.log.Printf("MMU: memcheck hit: %s of %0*x at %08x", kind, size*2, value, address)
	}
	if mc.BreakOnHit && m.onBreak != nil {
		m.onBreak(address, write)
	}
}
