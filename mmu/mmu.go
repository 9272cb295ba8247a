package mmu

import (
	"log"
	"math/bits"

	"gekko/memory"
	"gekko/ppc"
)

// MMU translates guest effective addresses to physical addresses and
// services every guest memory access: loads, stores, instruction
// fetches, cache line operations and locked-cache DMA. One instance
// models one core's view of memory.
//
// The instance is bound at construction to a physical backing store
// and a processor state it does not own. Guest-facing methods belong
// to the CPU thread; the Host* functions in host.go are the only
// entry points meant for other threads, and only under a pause guard.
type MMU struct {
	mem *memory.Memory
	ppc *ppc.State
	log *log.Logger

	ibatTable BatTable
	dbatTable BatTable

	memChecks MemChecks

	// fullMMU selects real page-table emulation. When false the guest
	// is expected to stay inside BAT mappings (plus the fake VMEM
	// window) and page faults indicate a configuration problem.
	fullMMU bool

	// onBreak is called when a memcheck with a break action hits
	onBreak func(address uint32, write bool)

	// onBATsChanged is the JIT invalidation hook, called after every
	// BAT table rebuild
	onBATsChanged func()
}

// New binds an MMU to its backing store and processor state and
// populates both BAT tables from the current register values.
func New(mem *memory.Memory, st *ppc.State, fullMMU bool, l *log.Logger) *MMU {
	m := &MMU{
		mem:     mem,
		ppc:     st,
		log:     l,
		fullMMU: fullMMU,
	}
	m.SDRUpdated()
	m.DBATUpdated()
	m.IBATUpdated()
	return m
}

// Memory returns the physical backing store
func (m *MMU) Memory() *memory.Memory {
	return m.mem
}

// MemChecks returns the watchpoint table. After adding or removing
// checks, call DBATUpdated and IBATUpdated so the fast-path bits get
// recomputed.
func (m *MMU) MemChecks() *MemChecks {
	return &m.memChecks
}

// SetBreakHandler installs the callback fired by a breaking memcheck
func (m *MMU) SetBreakHandler(fn func(address uint32, write bool)) {
	m.onBreak = fn
}

// SetBATsChangedHandler installs the JIT invalidation hook
func (m *MMU) SetBATsChangedHandler(fn func()) {
	m.onBATsChanged = fn
}

// Read8 reads a byte through the current translation state
func (m *MMU) Read8(address uint32) uint8 {
	v := m.readFromHardware(flagRead, address, 1, false)
	m.memcheck(address, v, false, 1)
	return uint8(v)
}

// Read16 reads a big-endian halfword
func (m *MMU) Read16(address uint32) uint16 {
	v := m.readFromHardware(flagRead, address, 2, false)
	m.memcheck(address, v, false, 2)
	return uint16(v)
}

// Read32 reads a big-endian word
func (m *MMU) Read32(address uint32) uint32 {
	v := m.readFromHardware(flagRead, address, 4, false)
	m.memcheck(address, v, false, 4)
	return uint32(v)
}

// Read64 reads a big-endian doubleword
func (m *MMU) Read64(address uint32) uint64 {
	v := m.readFromHardware(flagRead, address, 8, false)
	m.memcheck(address, v, false, 8)
	return v
}

// Write8 stores a byte
func (m *MMU) Write8(v uint8, address uint32) {
	m.memcheck(address, uint64(v), true, 1)
	m.writeToHardware(flagWrite, address, uint32(v), 1, false)
}

// Write16 stores a big-endian halfword
func (m *MMU) Write16(v uint16, address uint32) {
	m.memcheck(address, uint64(v), true, 2)
	m.writeToHardware(flagWrite, address, uint32(v), 2, false)
}

// Write32 stores a big-endian word
func (m *MMU) Write32(v uint32, address uint32) {
	m.memcheck(address, uint64(v), true, 4)
	m.writeToHardware(flagWrite, address, v, 4, false)
}

// Write64 stores a big-endian doubleword as two word stores, high
// half first, exactly like the hardware splits it.
func (m *MMU) Write64(v uint64, address uint32) {
	m.memcheck(address, v, true, 8)
	m.writeToHardware(flagWrite, address, uint32(v>>32), 4, false)
	m.writeToHardware(flagWrite, address+4, uint32(v), 4, false)
}

// Write16Swap stores a byte-reversed halfword (sthbrx)
func (m *MMU) Write16Swap(v uint16, address uint32) {
	m.Write16(bits.ReverseBytes16(v), address)
}

// Write32Swap stores a byte-reversed word (stwbrx)
func (m *MMU) Write32Swap(v uint32, address uint32) {
	m.Write32(bits.ReverseBytes32(v), address)
}

// Write64Swap stores a byte-reversed doubleword
func (m *MMU) Write64Swap(v uint64, address uint32) {
	m.Write64(bits.ReverseBytes64(v), address)
}
