package mmu

import (
	"gekko/exceptions"
	"gekko/ppc"
)

// Hardware page geometry for the page-table walk
const (
	hwPageSize       = 4096
	hwPageMask       = hwPageSize - 1
	hwPageIndexShift = 12
	hwPageIndexMask  = ppc.TLBSets - 1
)

// PTE field bits
const (
	pte1ValidBit  = 0x80000000
	pte1HashBit   = 0x40
	pte2RefBit    = 0x100
	pte2ChangeBit = 0x80
	pte2WIBits    = 0x60 // W and I of the WIMG field
)

// DSISR bits set on a data fault
const (
	dsisrPageFault = 1 << 30
	dsisrStore     = 1 << 25
)

// accessFlag selects the access kind for one translation. The two
// NoException variants are used by host tooling and the JIT and must
// never mutate guest-visible state, not even PTE reference bits.
type accessFlag uint8

const (
	flagNoException accessFlag = iota
	flagRead
	flagWrite
	flagOpcode
	flagOpcodeNoException
)

func (f accessFlag) opcode() bool {
	return f == flagOpcode || f == flagOpcodeNoException
}

func (f accessFlag) noException() bool {
	return f == flagNoException || f == flagOpcodeNoException
}

// translationEnabled consults the MSR bit matching the access kind
func (m *MMU) translationEnabled(flag accessFlag) bool {
	if flag.opcode() {
		return m.ppc.MSR.IR()
	}
	return m.ppc.MSR.DR()
}

// effectiveAddress decomposes a 32 bit effective address into the
// fixed bit fields the segment/page hardware looks at.
type effectiveAddress uint32

// Offset - byte offset within the 4 KB page
func (ea effectiveAddress) Offset() uint32 {
	return uint32(ea) & 0xFFF
}

// PageIndex - 16 bit page index within the segment
func (ea effectiveAddress) PageIndex() uint32 {
	return uint32(ea) >> 12 & 0xFFFF
}

// API - abbreviated page index stored in PTE1
func (ea effectiveAddress) API() uint32 {
	return uint32(ea) >> 22 & 0x3F
}

// SR - segment register selector
func (ea effectiveAddress) SR() uint32 {
	return uint32(ea) >> 28
}

type translateOutcome uint8

const (
	batTranslated translateOutcome = iota
	pageTableTranslated
	directStoreSegment
	pageFaultOutcome
)

// translateResult is the tagged outcome of one translation attempt.
// Transient stack value, never stored.
type translateResult struct {
	outcome translateOutcome
	address uint32
	wi      bool
}

func (r translateResult) success() bool {
	return r.outcome <= pageTableTranslated
}

// translateAddress resolves one effective address. The BAT tables have
// hardware precedence; only unmapped coarse pages fall through to the
// segment/page-table path.
func (m *MMU) translateAddress(flag accessFlag, address uint32) translateResult {
	table := &m.dbatTable
	if flag.opcode() {
		table = &m.ibatTable
	}
	if physical, wi, ok := translateBat(table, address); ok {
		return translateResult{outcome: batTranslated, address: physical, wi: wi}
	}
	return m.translatePageAddress(flag, effectiveAddress(address))
}

// translatePageAddress performs the segment lookup and the hashed
// page-table walk: two hash functions, eight PTEs per group, PTE1
// match on valid/VSID/hash/API. A hit under a faulting access kind
// sets the reference (and change, for stores) bits back into guest
// memory and refreshes the TLB cache; the NoException kinds leave all
// guest state untouched.
func (m *MMU) translatePageAddress(flag accessFlag, ea effectiveAddress) translateResult {
	sr := m.ppc.SR[ea.SR()]

	if sr&ppc.SRDirectStore != 0 {
		return translateResult{outcome: directStoreSegment}
	}
	if flag.opcode() && sr&ppc.SRNoExecute != 0 {
		return translateResult{outcome: pageFaultOutcome}
	}

	if physical, wi, ok := m.lookupTLB(flag, uint32(ea)); ok {
		return translateResult{outcome: pageTableTranslated, address: physical, wi: wi}
	}

	vsid := sr & ppc.SRVSIDMask
	hash := vsid ^ ea.PageIndex()
	pte1 := uint32(pte1ValidBit) | vsid<<7 | ea.API()

	for hashFunc := 0; hashFunc < 2; hashFunc++ {
		if hashFunc == 1 {
			hash = ^hash
			pte1 |= pte1HashBit
		}
		ptegAddr := (hash&m.ppc.PagetableHashmask)<<6 | m.ppc.PagetableBase
		for i := 0; i < 8; i++ {
			if m.readPhysU32(ptegAddr) == pte1 {
				pte2 := m.readPhysU32(ptegAddr + 4)

				switch flag {
				case flagRead, flagOpcode:
					pte2 |= pte2RefBit
				case flagWrite:
					pte2 |= pte2RefBit | pte2ChangeBit
				}
				if !flag.noException() {
					m.writePhysU32(ptegAddr+4, pte2)
					m.updateTLB(flag, uint32(ea), pte2)
				}

				return translateResult{
					outcome: pageTableTranslated,
					address: pte2&^uint32(hwPageMask) | ea.Offset(),
					wi:      pte2&pte2WIBits != 0,
				}
			}
			ptegAddr += 8
		}
	}
	return translateResult{outcome: pageFaultOutcome}
}

func (m *MMU) tlbSide(flag accessFlag) int {
	if flag.opcode() {
		return 1
	}
	return 0
}

// lookupTLB consults the software TLB cache. A store hitting an entry
// whose change bit is still clear misses on purpose so the walk can
// set the bit in guest memory.
func (m *MMU) lookupTLB(flag accessFlag, address uint32) (uint32, bool, bool) {
	tag := address >> hwPageIndexShift
	set := &m.ppc.TLB[m.tlbSide(flag)][tag&hwPageIndexMask]

	for way := 0; way < ppc.TLBWays; way++ {
		if set.Tag[way] != tag {
			continue
		}
		pte2 := set.PTE[way]
		if flag == flagWrite && pte2&pte2ChangeBit == 0 {
			return 0, false, false
		}
		if !flag.noException() {
			set.Recent = uint32(way)
		}
		return set.Paddr[way] | address&hwPageMask, pte2&pte2WIBits != 0, true
	}
	return 0, false, false
}

// updateTLB caches a fresh walk result, evicting the non-recent way
func (m *MMU) updateTLB(flag accessFlag, address, pte2 uint32) {
	tag := address >> hwPageIndexShift
	set := &m.ppc.TLB[m.tlbSide(flag)][tag&hwPageIndexMask]

	way := uint32(0)
	if set.Recent == 0 && set.Tag[0] != ppc.TLBInvalidTag {
		way = 1
	}
	set.Recent = way
	set.Tag[way] = tag
	set.Paddr[way] = pte2 &^ uint32(hwPageMask)
	set.PTE[way] = pte2
}

// GenerateDSIException records a data access fault in the guest fault
// registers and queues the DSI for the exception dispatcher. Must be
// raised before the faulting store's side effects commit.
func (m *MMU) GenerateDSIException(effectiveAddr uint32, write bool) {
	if !m.fullMMU {
		kind := "read from"
		if write {
			kind = "write to"
		}
		m.log.Printf("MMU: invalid %s %08x, ignoring (page table emulation disabled)", kind, effectiveAddr)
		return
	}
	dsisr := uint32(dsisrPageFault)
	if write {
		dsisr |= dsisrStore
	}
	m.ppc.SPR[ppc.SPRDSISR] = dsisr
	m.ppc.SPR[ppc.SPRDAR] = effectiveAddr
	m.ppc.Exceptions |= exceptions.DSI
}

// GenerateISIException queues an instruction fetch fault; the faulting
// effective address travels to the dispatcher through NPC.
func (m *MMU) GenerateISIException(effectiveAddr uint32) {
	m.ppc.NPC = effectiveAddr
	m.ppc.Exceptions |= exceptions.ISI
}

// GetTranslatedAddress resolves an effective address without touching
// guest state. Used by the debugger and the JIT.
func (m *MMU) GetTranslatedAddress(address uint32) (uint32, bool) {
	result := m.translateAddress(flagNoException, address)
	if !result.success() {
		return 0, false
	}
	return result.address, true
}
