package mmu

import (
	"testing"

	"gekko/memory"
	"gekko/ppc"
)

func TestMMU_TryReadInstruction(t *testing.T) {
	m, st := newTestCore(false)
	setStandardBATs(m, st)

	m.Write32(0x38600001, 0x80006000) // li r3, 1
	result := m.TryReadInstruction(0x80006000)
	if !result.Valid {
		t.Fatal("TryReadInstruction() invalid for mapped code")
	}
	if result.Hex != 0x38600001 {
		t.Errorf("Hex = %08x, want 38600001", result.Hex)
	}
	if !result.FromBat {
		t.Error("FromBat = false for a BAT mapping")
	}
	if result.PhysicalAddress != 0x00006000 {
		t.Errorf("PhysicalAddress = %08x, want 00006000", result.PhysicalAddress)
	}

	// fetch with translation off is a physical fetch
	st.MSR &^= ppc.MSRIR
	result = m.TryReadInstruction(0x00006000)
	if !result.Valid || result.Hex != 0x38600001 {
		t.Errorf("untranslated fetch = %+v", result)
	}
}

func TestMMU_JitCacheTranslateAddress(t *testing.T) {
	m, st := newTestCore(false)
	setStandardBATs(m, st)

	result := m.JitCacheTranslateAddress(0x80006000)
	if !result.Valid || !result.Translated || !result.FromBat {
		t.Errorf("JitCacheTranslateAddress() = %+v", result)
	}
	if result.Address != 0x00006000 {
		t.Errorf("Address = %08x, want 00006000", result.Address)
	}

	if result := m.JitCacheTranslateAddress(0x30000000); result.Valid {
		t.Error("JitCacheTranslateAddress() valid for unmapped address")
	}

	st.MSR &^= ppc.MSRIR
	result = m.JitCacheTranslateAddress(0x12345678)
	if !result.Valid || result.Translated || result.Address != 0x12345678 {
		t.Errorf("JitCacheTranslateAddress() with IR off = %+v", result)
	}
}

func TestMMU_IsOptimizableRAMAddress(t *testing.T) {
	m, st := newTestCore(true)
	setStandardBATs(m, st)

	tests := []struct {
		name    string
		address uint32
		size    uint32
		want    bool
	}{
		{"backed RAM", 0x80001000, 4, true},
		{"last backed word", 0x817FFFFC, 4, true},
		{"crosses into unbacked", 0x817FFFFE, 4, false},
		{"mapped but unbacked", 0x88000000, 4, false},
		{"unmapped", 0x30000000, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.IsOptimizableRAMAddress(tt.address, tt.size); got != tt.want {
				t.Errorf("IsOptimizableRAMAddress(%08x, %d) = %v, want %v", tt.address, tt.size, got, tt.want)
			}
		})
	}

	// never with translation off or watchpoints around
	st.MSR &^= ppc.MSRDR
	if m.IsOptimizableRAMAddress(0x80001000, 4) {
		t.Error("optimizable with MSR.DR clear")
	}
	st.MSR |= ppc.MSRDR
	m.MemChecks().Add(MemCheck{Start: 0, End: 3})
	if m.IsOptimizableRAMAddress(0x80001000, 4) {
		t.Error("optimizable with watchpoints present")
	}
}

// mapMMIOBat points DBAT1 at the device register block, the way the
// guest OS maps uncached hardware at 0xCC000000
func mapMMIOBat(m *MMU, st *ppc.State) {
	st.SPR[ppc.SPRDBAT0U+2] = 0xCC000003
	st.SPR[ppc.SPRDBAT0L+2] = 0x0C000022
	m.DBATUpdated()
}

func TestMMU_IsOptimizableMMIOAccess(t *testing.T) {
	m, st := newTestCore(true)
	setStandardBATs(m, st)
	mapMMIOBat(m, st)

	if got := m.IsOptimizableMMIOAccess(0xCC003000, 4); got != 0x0C003000 {
		t.Errorf("IsOptimizableMMIOAccess() = %08x, want 0c003000", got)
	}
	if got := m.IsOptimizableMMIOAccess(0xCC003002, 4); got != 0 {
		t.Errorf("IsOptimizableMMIOAccess() unaligned = %08x, want 0", got)
	}
	if got := m.IsOptimizableMMIOAccess(0x80001000, 4); got != 0 {
		t.Errorf("IsOptimizableMMIOAccess() for plain RAM = %08x, want 0", got)
	}
}

func TestMMU_IsOptimizableGatherPipeWrite(t *testing.T) {
	m, st := newTestCore(true)
	setStandardBATs(m, st)
	mapMMIOBat(m, st)

	if !m.IsOptimizableGatherPipeWrite(0xCC008000) {
		t.Error("gather pipe port not recognized")
	}
	if m.IsOptimizableGatherPipeWrite(0xCC008004) {
		t.Error("address past the port recognized as gather pipe")
	}
	st.MSR &^= ppc.MSRDR
	if m.IsOptimizableGatherPipeWrite(0xCC008000) {
		t.Error("gather pipe write optimizable with MSR.DR clear")
	}
}

func TestMMU_GatherPipeCollectsWrites(t *testing.T) {
	m, st := newTestCore(true)
	setStandardBATs(m, st)
	mapMMIOBat(m, st)

	m.Write32(0x11223344, 0xCC008000)
	m.Write8(0x55, 0xCC008000)

	gp := m.Memory().GatherPipe()
	if got := gp.PendingBytes(); got != 5 {
		t.Fatalf("PendingBytes() = %d, want 5", got)
	}
	burst := gp.Burst()
	want := []byte{0x11, 0x22, 0x33, 0x44, 0x55}
	for i, b := range want {
		if burst[i] != b {
			t.Errorf("burst[%d] = %02x, want %02x", i, burst[i], b)
		}
	}
}

func TestMMU_ClearDCacheLine(t *testing.T) {
	m, st := newTestCore(false)
	setStandardBATs(m, st)

	for i := uint32(0); i < 40; i += 4 {
		m.Write32(0xFFFFFFFF, 0x80007000+i)
	}
	m.ClearDCacheLine(0x80007000)

	for i := uint32(0); i < 32; i += 4 {
		if got := m.Read32(0x80007000 + i); got != 0 {
			t.Errorf("line byte %d = %08x after dcbz", i, got)
		}
	}
	// the next line is untouched
	if got := m.Read32(0x80007020); got != 0xFFFFFFFF {
		t.Errorf("word past the line = %08x, want ffffffff", got)
	}
}

func TestMMU_ClearDCacheLineUnalignedPanics(t *testing.T) {
	m, _ := newTestCore(false)

	defer func() {
		if recover() == nil {
			t.Fatal("no panic for unaligned dcbz")
		}
	}()
	m.ClearDCacheLine(0x80007004)
}

func TestMMU_LockedCacheDMA(t *testing.T) {
	m, _ := newTestCore(false)

	for i := uint32(0); i < 32; i += 4 {
		m.writeToHardware(flagNoException, memory.L1CacheBase+i, 0xA0A0A0A0+i, 4, true)
	}
	m.DMALockedCacheToMemory(0x00008000, memory.L1CacheBase, 1)
	for i := uint32(0); i < 32; i += 4 {
		if got := m.readPhysU32(0x00008000 + i); got != 0xA0A0A0A0+i {
			t.Errorf("DMA to memory: word %d = %08x", i/4, got)
		}
	}

	m.DMAMemoryToLockedCache(memory.L1CacheBase+0x100, 0x00008000, 1)
	if got := uint32(m.readFromHardware(flagNoException, memory.L1CacheBase+0x100, 4, true)); got != 0xA0A0A0A0 {
		t.Errorf("DMA to locked cache: first word = %08x", got)
	}
}

func TestMMU_MemCheckBreaks(t *testing.T) {
	m, st := newTestCore(false)
	setStandardBATs(m, st)

	var hits []uint32
	m.SetBreakHandler(func(address uint32, write bool) {
		hits = append(hits, address)
	})
	m.MemChecks().Add(MemCheck{
		Start:        0x80001000,
		End:          0x80001003,
		BreakOnWrite: true,
		BreakOnHit:   true,
	})
	m.DBATUpdated()

	m.Write32(1, 0x80001000) // hit
	m.Read32(0x80001000)     // read: not watched
	m.Write32(1, 0x80001010) // outside the range

	if len(hits) != 1 || hits[0] != 0x80001000 {
		t.Errorf("break handler hits = %x, want [80001000]", hits)
	}
}
