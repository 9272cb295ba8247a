package mmu

import (
	"gekko/state"
)

// DoState saves or restores the transient translation caches. The BAT
// tables are derived state: they are not serialized, the owner rebuilds
// them by calling SDRUpdated, DBATUpdated and IBATUpdated once the
// special registers have been restored.
func (m *MMU) DoState(s *state.Serializer) {
	s.Do(&m.ppc.TLB)
	if s.Mode() == state.Read {
		m.SDRUpdated()
		m.DBATUpdated()
		m.IBATUpdated()
	}
}
