package system

import "gekko/mmu"

// CPUThreadGuard proves the CPU thread is parked. All host-side pokes
// at guest state go through one of these; the accessors on the guard
// are the only sanctioned way to reach the core from another thread.
type CPUThreadGuard struct {
	sys *System
}

// MMU returns the translation unit for host-side access
func (g *CPUThreadGuard) MMU() *mmu.MMU {
	return g.sys.MMU
}

// System returns the guarded machine
func (g *CPUThreadGuard) System() *System {
	return g.sys
}

var _ mmu.CPUThreadGuard = (*CPUThreadGuard)(nil)

// PauseAndLock parks the CPU thread and returns a guard. Blocks until
// the run loop has actually stopped between instructions. Safe to call
// before the run loop starts; the guard then covers the quiescent
// machine. Callers must Unlock the guard when done.
func (sys *System) PauseAndLock() *CPUThreadGuard {
	sys.mu.Lock()
	sys.pauseRequests++
	sys.cond.Broadcast()
	for sys.running && !sys.parked && !sys.stopped {
		sys.cond.Wait()
	}
	sys.mu.Unlock()
	return &CPUThreadGuard{sys: sys}
}

// Unlock releases the guard and lets the CPU thread continue
func (g *CPUThreadGuard) Unlock() {
	sys := g.sys
	sys.mu.Lock()
	if sys.pauseRequests > 0 {
		sys.pauseRequests--
	}
	sys.cond.Broadcast()
	sys.mu.Unlock()
}
