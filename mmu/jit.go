package mmu

import (
	"gekko/memory"
)

// TryReadInstResult reports an instruction fetch attempt to the JIT
// and the interpreter. FromBat tells the JIT whether the mapping came
// from the BAT fast path and can be assumed stable for compiled code.
type TryReadInstResult struct {
	Valid           bool
	FromBat         bool
	Hex             uint32
	PhysicalAddress uint32
}

// TranslateResult is the JIT-visible outcome of a translation query.
type TranslateResult struct {
	Valid      bool
	Translated bool
	FromBat    bool
	Address    uint32
}

// TryReadInstruction fetches the opcode at the effective address
// through the instruction-side translation state. Faults are reported
// through Valid, never raised.
func (m *MMU) TryReadInstruction(address uint32) TryReadInstResult {
	fromBat := true
	if m.ppc.MSR.IR() {
		result := m.translateAddress(flagOpcode, address)
		if !result.success() {
			return TryReadInstResult{}
		}
		fromBat = result.outcome == batTranslated
		address = result.address
	}
	buf := m.mem.Resolve(address, 4)
	if buf == nil {
		return TryReadInstResult{}
	}
	return TryReadInstResult{
		Valid:           true,
		FromBat:         fromBat,
		Hex:             uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3]),
		PhysicalAddress: address,
	}
}

// ReadOpcode is the interpreter fetch path: a failed fetch queues an
// ISI exception and returns zero.
func (m *MMU) ReadOpcode(address uint32) uint32 {
	result := m.TryReadInstruction(address)
	if !result.Valid {
		m.GenerateISIException(address)
		return 0
	}
	return result.Hex
}

// JitCacheTranslateAddress answers whether a block at the effective
// address can be cached, and under which physical address. Must not
// disturb guest state, so it uses the no-exception opcode kind.
func (m *MMU) JitCacheTranslateAddress(address uint32) TranslateResult {
	if !m.ppc.MSR.IR() {
		return TranslateResult{Valid: true, Address: address}
	}
	result := m.translateAddress(flagOpcodeNoException, address)
	if !result.success() {
		return TranslateResult{}
	}
	return TranslateResult{
		Valid:      true,
		Translated: true,
		FromBat:    result.outcome == batTranslated,
		Address:    result.address,
	}
}

// IsOptimizableRAMAddress reports whether a load/store of size bytes
// at the effective address may be compiled as an unguarded direct
// memory access. Only the BAT state is consulted, never page tables.
func (m *MMU) IsOptimizableRAMAddress(address, size uint32) bool {
	if m.memChecks.HasAny() {
		return false
	}
	if !m.ppc.MSR.DR() {
		return false
	}
	lastByte := address + size - 1
	return m.dbatTable[address>>BatIndexShift]&BatPhysicalBit != 0 &&
		m.dbatTable[lastByte>>BatIndexShift]&BatPhysicalBit != 0
}

// IsOptimizableMMIOAccess returns the physical MMIO address an aligned
// access of size bytes resolves to, or 0 when the access cannot be
// compiled as a direct device call.
func (m *MMU) IsOptimizableMMIOAccess(address, size uint32) uint32 {
	if m.memChecks.HasAny() {
		return 0
	}
	if !m.ppc.MSR.DR() {
		return 0
	}
	bat := m.dbatTable[address>>BatIndexShift]
	if bat&BatMappedBit == 0 {
		return 0
	}
	physical := bat&BatResultMask | address&(BatPageSize-1)
	if physical&(size-1) != 0 || !memory.IsMMIOAddress(physical) {
		return 0
	}
	return physical
}

// IsOptimizableGatherPipeWrite reports whether a store to the
// effective address lands exactly on the gather pipe port.
func (m *MMU) IsOptimizableGatherPipeWrite(address uint32) bool {
	if m.memChecks.HasAny() {
		return false
	}
	if !m.ppc.MSR.DR() {
		return false
	}
	bat := m.dbatTable[address>>BatIndexShift]
	if bat&BatMappedBit == 0 {
		return false
	}
	physical := bat&BatResultMask | address&(BatPageSize-1)
	return physical == memory.GatherPipeAddress
}
