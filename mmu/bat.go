package mmu

import (
	"gekko/memory"
	"gekko/ppc"
)

// Block address translation is resolved through two flat tables, one
// per 128 KB coarse page of the effective address space. A table is
// rebuilt wholesale whenever the BAT special registers change, so a
// lookup is a single masked array read with no collision handling.
const (
	// BatIndexShift - log2 of the coarse page size
	BatIndexShift = 17

	// BatPageSize - coarse page size covered by one descriptor
	BatPageSize = 1 << BatIndexShift

	// BatPageCount - descriptors per table (128 K entries)
	BatPageCount = 1 << (32 - BatIndexShift)

	// BatMappedBit - descriptor covers a configured BAT
	BatMappedBit = 0x1

	// BatPhysicalBit - the target is directly backed RAM, safe for
	// unguarded fast-path access
	BatPhysicalBit = 0x2

	// BatWIBit - write-through or cache-inhibited view
	BatWIBit = 0x4

	// BatResultMask recovers the physical base from a descriptor
	BatResultMask = ^uint32(0x7)
)

// BatTable maps coarse effective page index to physical descriptor
type BatTable [BatPageCount]uint32

// BATU/BATL register fields
const (
	batuBLMask  = 0x7FF
	batlWIBits  = 0x60 // W and I of the WIMG field
	fakeVMEMRun = 0x10000000 >> BatIndexShift
)

// DBATTable returns the data-side table, mainly for tests and tooling
func (m *MMU) DBATTable() *BatTable {
	return &m.dbatTable
}

// IBATTable returns the instruction-side table
func (m *MMU) IBATTable() *BatTable {
	return &m.ibatTable
}

// translateBat resolves one address against a table. Returns the
// physical address, the write/cache-inhibit flag and whether the
// coarse page was mapped at all.
func translateBat(table *BatTable, address uint32) (uint32, bool, bool) {
	result := table[address>>BatIndexShift]
	if result&BatMappedBit == 0 {
		return 0, false, false
	}
	physical := (result & BatResultMask) | (address & (BatPageSize - 1))
	return physical, result&BatWIBit != 0, true
}

// updateBATs rebuilds a table from the four BAT register pairs
// starting at baseSPR. The enumeration writes one descriptor for each
// coarse page the block length mask covers; everything else keeps the
// zero descriptor written by the caller's wholesale clear.
func (m *MMU) updateBATs(table *BatTable, baseSPR int) {
	for i := 0; i < 4; i++ {
		batu := m.ppc.SPR[baseSPR+i*2]
		batl := m.ppc.SPR[baseSPR+i*2+1]
		if batu&3 == 0 {
			// neither Vs nor Vp: pair disabled
			continue
		}

		bepi := batu >> BatIndexShift
		bl := (batu >> 2) & batuBLMask
		brpn := batl >> BatIndexShift
		if bepi&bl != 0 {
			m.log.Printf("MMU: suspicious BAT%d setup: BEPI %05x overlaps BL %03x", i, bepi, bl)
		}

		wi := batl&batlWIBits != 0
		for j := uint32(0); j <= bl; j++ {
			// enumerate every bit pattern that fits inside the mask
			if j&bl != j {
				continue
			}
			effective := (bepi | j) << BatIndexShift
			physical := (brpn | j) << BatIndexShift

			flags := uint32(BatMappedBit)
			if wi {
				flags |= BatWIBit
			}
			if m.physicallyBacked(physical) {
				flags |= BatPhysicalBit
			}
			// the unguarded fast path cannot honor watchpoints
			if m.memChecks.Overlaps(effective, BatPageSize) {
				flags &^= BatPhysicalBit
			}
			table[effective>>BatIndexShift] = physical | flags
		}
	}
}

// physicallyBacked reports whether a BAT target lands in plain RAM
func (m *MMU) physicallyBacked(physical uint32) bool {
	switch {
	case m.mem.HasFakeVMEM() && physical&0xFE000000 == memory.FakeVMEMBase:
		return true
	case physical < m.mem.RAMSize():
		return true
	case m.mem.EXRAMSize() > 0 && physical>>28 == 0x1 && physical&0x0FFFFFFF < m.mem.EXRAMSize():
		return true
	}
	return false
}

// updateFakeMMUBat synthesizes identity-style descriptors covering one
// contiguous 256 MB run, pointing into the fake VMEM mirror. Guests
// that rely on speculative translation keep working without the full
// page-table walk.
func (m *MMU) updateFakeMMUBat(table *BatTable, startAddr uint32) {
	for i := uint32(0); i < fakeVMEMRun; i++ {
		effective := i + startAddr>>BatIndexShift
		physical := memory.FakeVMEMBase | (i<<BatIndexShift)&memory.FakeVMEMMask
		table[effective] = physical | BatMappedBit | BatPhysicalBit
	}
}

// DBATUpdated rebuilds the data-side table. Call after any DBAT
// special register write; a rebuild from unchanged registers yields a
// byte-identical table.
func (m *MMU) DBATUpdated() {
	m.dbatTable = BatTable{}
	m.updateBATs(&m.dbatTable, ppc.SPRDBAT0U)
	if m.ppc.ExtendedBATs() {
		m.updateBATs(&m.dbatTable, ppc.SPRDBAT4U)
	}
	if m.mem.HasFakeVMEM() {
		m.updateFakeMMUBat(&m.dbatTable, 0x40000000)
		m.updateFakeMMUBat(&m.dbatTable, 0x70000000)
	}
	m.notifyBATsChanged()
}

// IBATUpdated rebuilds the instruction-side table
func (m *MMU) IBATUpdated() {
	m.ibatTable = BatTable{}
	m.updateBATs(&m.ibatTable, ppc.SPRIBAT0U)
	if m.ppc.ExtendedBATs() {
		m.updateBATs(&m.ibatTable, ppc.SPRIBAT4U)
	}
	if m.mem.HasFakeVMEM() {
		m.updateFakeMMUBat(&m.ibatTable, 0x40000000)
		m.updateFakeMMUBat(&m.ibatTable, 0x70000000)
	}
	m.notifyBATsChanged()
}

// SDRUpdated recomputes the page table base and hash mask from SDR1
func (m *MMU) SDRUpdated() {
	sdr := m.ppc.SPR[ppc.SPRSDR1]
	htaborg := sdr >> 16
	htabmask := sdr & 0x1FF
	if htabmask&(htabmask+1) != 0 {
		m.log.Printf("MMU: invalid HTABMASK %03x in SDR1", htabmask)
	}
	if htaborg&htabmask != 0 {
		m.log.Printf("MMU: invalid HTABORG %04x for HTABMASK %03x", htaborg, htabmask)
	}
	m.ppc.PagetableBase = htaborg << 16
	m.ppc.PagetableHashmask = htabmask<<10 | 0x3FF
}

// InvalidateTLBEntry drops the cached translations for the page on
// both the data and instruction sides (tlbie).
func (m *MMU) InvalidateTLBEntry(address uint32) {
	index := (address >> hwPageIndexShift) & hwPageIndexMask
	m.ppc.TLB[0][index].Invalidate()
	m.ppc.TLB[1][index].Invalidate()
}

func (m *MMU) notifyBATsChanged() {
	if m.onBATsChanged != nil {
		m.onBATsChanged()
	}
}
