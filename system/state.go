package system

import "gekko/state"

// DoState serializes or restores the whole machine. The caller must
// hold a CPU thread guard. On restore the MMU rebuilds its derived
// tables from the special registers, so only the architectural state
// travels through the stream.
func (sys *System) DoState(s *state.Serializer) {
	p := sys.PPC
	s.Do(&p.PC)
	s.Do(&p.NPC)
	s.Do(&p.GPR)
	s.Do(&p.MSR)
	s.Do(&p.SR)
	s.Do(&p.SPR)
	s.Do(&p.Exceptions)

	sys.Memory.DoState(s)
	sys.MMU.DoState(s)
}

// SaveState writes a snapshot of the machine to path
func (sys *System) SaveState(path string) error {
	guard := sys.PauseAndLock()
	defer guard.Unlock()
	return state.SaveFile(path, sys.DoState)
}

// LoadState replaces the machine state with a snapshot from path
func (sys *System) LoadState(path string) error {
	guard := sys.PauseAndLock()
	defer guard.Unlock()
	return state.LoadFile(path, sys.DoState)
}
