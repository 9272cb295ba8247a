package ppc

/**
Processor state package: machine state register, segment registers,
special purpose registers and the TLB cache. The MMU holds a pointer to
a State but does not own it - the owning System does.
*/

import (
	"fmt"
	"io"
)

// MSR bit masks. Bit numbers follow the little-endian convention used
// by the architecture manuals for the 32 bit implementation.
const (
	// MSRLE - little endian mode (unused, the guest runs big endian)
	MSRLE = 1 << 0

	// MSRRI - recoverable interrupt
	MSRRI = 1 << 1

	// MSRDR - data address translation enable
	MSRDR = 1 << 4

	// MSRIR - instruction address translation enable
	MSRIR = 1 << 5

	// MSRIP - exception prefix: vectors at 0xFFF00000 instead of 0
	MSRIP = 1 << 6

	// MSRFP - floating point available
	MSRFP = 1 << 13

	// MSRPR - privilege level (1 = user)
	MSRPR = 1 << 14

	// MSREE - external interrupt enable
	MSREE = 1 << 15

	// MSRILE - interrupt little endian mode
	MSRILE = 1 << 16

	// MSRPOW - power management enable
	MSRPOW = 1 << 18
)

// MSR keeps the machine state register
type MSR uint32

// DR returns true if data address translation is enabled
func (m MSR) DR() bool {
	return m&MSRDR != 0
}

// IR returns true if instruction address translation is enabled
func (m MSR) IR() bool {
	return m&MSRIR != 0
}

// IP returns true if exception vectors live at the high prefix
func (m MSR) IP() bool {
	return m&MSRIP != 0
}

// EE returns true if external interrupts are enabled
func (m MSR) EE() bool {
	return m&MSREE != 0
}

// PR returns true in user mode
func (m MSR) PR() bool {
	return m&MSRPR != 0
}

// special purpose register numbers, as used by mfspr/mtspr
const (
	SPRXER   = 1
	SPRLR    = 8
	SPRCTR   = 9
	SPRDSISR = 18
	SPRDAR   = 19
	SPRDEC   = 22
	SPRSDR1  = 25
	SPRSRR0  = 26
	SPRSRR1  = 27

	SPRIBAT0U = 528
	SPRIBAT0L = 529
	SPRDBAT0U = 536
	SPRDBAT0L = 537

	// the four extra BAT pairs, enabled by HID4[SBE]
	SPRIBAT4U = 560
	SPRDBAT4U = 568

	SPRHID0 = 1008
	SPRHID2 = 920
	SPRHID4 = 1011
)

// HID4SBE enables the secondary BAT set (IBAT4-7/DBAT4-7)
const HID4SBE = 1 << 25

// segment register bits
const (
	// SRDirectStore - T bit: direct-store segment, not paged memory
	SRDirectStore = 0x80000000

	// SRNoExecute - N bit: instruction fetch from this segment faults
	SRNoExecute = 0x10000000

	// SRVSIDMask - virtual segment id
	SRVSIDMask = 0x00FFFFFF
)

// TLB geometry: 128 entries, 2 ways, per instruction/data side
const (
	TLBSize = 128
	TLBWays = 2

	// TLBSets - number of sets per side
	TLBSets = TLBSize / TLBWays

	// TLBInvalidTag marks an unused way
	TLBInvalidTag = 0xFFFFFFFF
)

// TLBEntry is one set of the software TLB cache: two ways plus a
// recency bit selecting the replacement victim.
type TLBEntry struct {
	Tag    [TLBWays]uint32
	Paddr  [TLBWays]uint32
	PTE    [TLBWays]uint32
	Recent uint32
}

// Invalidate drops both ways of the set
func (e *TLBEntry) Invalidate() {
	e.Tag[0] = TLBInvalidTag
	e.Tag[1] = TLBInvalidTag
}

// State keeps the guest-visible processor state the MMU depends on.
// GPRs and the program counters are included so the exception
// dispatcher and the debugger console have one place to look.
type State struct {
	PC  uint32
	NPC uint32
	GPR [32]uint32

	MSR MSR

	// SR : the sixteen segment registers
	SR [16]uint32

	// SPR : special purpose registers, indexed by mfspr/mtspr number
	SPR [1024]uint32

	// TLB : [0] = data side, [1] = instruction side
	TLB [2][TLBSets]TLBEntry

	// derived from SDR1 on SDRUpdated, never written directly
	PagetableBase     uint32
	PagetableHashmask uint32

	// Exceptions : pending exception bits (exceptions package)
	Exceptions uint32
}

// New returns a reset processor state
func New() *State {
	s := new(State)
	s.Reset()
	return s
}

// Reset clears registers and invalidates the TLB cache
func (s *State) Reset() {
	*s = State{}
	s.ResetTLB()
}

// ResetTLB invalidates every TLB set on both sides
func (s *State) ResetTLB() {
	for i := range s.TLB {
		for j := range s.TLB[i] {
			s.TLB[i][j] = TLBEntry{Tag: [TLBWays]uint32{TLBInvalidTag, TLBInvalidTag}}
		}
	}
}

// ExtendedBATs returns true if HID4[SBE] enables BAT pairs 4-7
func (s *State) ExtendedBATs() bool {
	return s.SPR[SPRHID4]&HID4SBE != 0
}

// DumpRegisters writes a one-screen register summary
func (s *State) DumpRegisters(w io.Writer) {
	fmt.Fprintf(w, " PC: %08x  MSR: %08x  SRR0: %08x  SRR1: %08x  DAR: %08x  DSISR: %08x\n",
		s.PC, uint32(s.MSR), s.SPR[SPRSRR0], s.SPR[SPRSRR1], s.SPR[SPRDAR], s.SPR[SPRDSISR])
	for i, reg := range s.GPR {
		fmt.Fprintf(w, " |r%d: %08x| ", i, reg)
	}
}
