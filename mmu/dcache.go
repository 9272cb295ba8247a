package mmu

import (
	"fmt"

	"gekko/exceptions"
)

// Cache line operations work on fixed 32 byte aligned spans. No cache
// array is modelled: data always lives in the backing store, so the
// write-back flavors reduce to a translation (with store-style fault
// semantics) and nothing else.
const dcacheLineSize = 32

// ClearDCacheLine zero-fills the 32 byte line (dcbz). The address must
// already be line aligned; the interpreter masks it before calling.
func (m *MMU) ClearDCacheLine(address uint32) {
	if address&(dcacheLineSize-1) != 0 {
		panic(exceptions.Trap{Msg: fmt.Sprintf("ClearDCacheLine: unaligned address %08x", address)})
	}
	if m.ppc.MSR.DR() {
		result := m.translateAddress(flagWrite, address)
		if !result.success() {
			m.GenerateDSIException(address, true)
			return
		}
		address = result.address
	}
	for i := uint32(0); i < dcacheLineSize; i += 4 {
		m.writeToHardware(flagWrite, address+i, 0, 4, true)
	}
}

// StoreDCacheLine models dcbst: write-back with store fault semantics
func (m *MMU) StoreDCacheLine(address uint32) {
	m.flushLine(address)
}

// FlushDCacheLine models dcbf: write-back and invalidate
func (m *MMU) FlushDCacheLine(address uint32) {
	m.flushLine(address)
}

func (m *MMU) flushLine(address uint32) {
	address &= ^uint32(dcacheLineSize - 1)
	if m.ppc.MSR.DR() {
		if result := m.translateAddress(flagWrite, address); !result.success() {
			m.GenerateDSIException(address, true)
		}
	}
	// data is already in the backing store
}

// InvalidateDCacheLine models dcbi. Without a cache array there is
// nothing to drop.
func (m *MMU) InvalidateDCacheLine(address uint32) {
}

// TouchDCacheLine models dcbt/dcbtst. A prefetch hint never faults.
func (m *MMU) TouchDCacheLine(address uint32, store bool) {
}

// DMALockedCacheToMemory copies whole cache lines from the locked L1
// region to main memory, expressed purely as repeated hardware
// accesses on physical addresses. No atomicity beyond the block.
func (m *MMU) DMALockedCacheToMemory(memAddress, cacheAddress, numBlocks uint32) {
	for i := uint32(0); i < numBlocks*dcacheLineSize; i += 4 {
		v := uint32(m.readFromHardware(flagNoException, cacheAddress+i, 4, true))
		m.writeToHardware(flagNoException, memAddress+i, v, 4, true)
	}
}

// DMAMemoryToLockedCache copies whole cache lines from main memory
// into the locked L1 region.
func (m *MMU) DMAMemoryToLockedCache(cacheAddress, memAddress, numBlocks uint32) {
	for i := uint32(0); i < numBlocks*dcacheLineSize; i += 4 {
		v := uint32(m.readFromHardware(flagNoException, memAddress+i, 4, true))
		m.writeToHardware(flagNoException, cacheAddress+i, v, 4, true)
	}
}
