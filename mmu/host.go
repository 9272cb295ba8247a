package mmu

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"gekko/exceptions"
	"gekko/memory"
)

// The host access facade: routines for the debugger console, cheat
// engines and other tooling to look at emulated memory from the
// guest's perspective. Failures never raise guest exceptions and never
// touch guest fault state - a probe that misses simply reports a
// missing value.
//
// Every function takes a CPUThreadGuard. The guard is handed out by
// the owning system only while the CPU thread is parked, which is what
// makes these calls safe from a non-owning thread.

// AddressSpace selects how a host access treats its address.
type AddressSpace int

const (
	// AddressSpaceEffective - whatever the current MSR state says
	AddressSpaceEffective AddressSpace = iota

	// AddressSpacePhysical - as if translation was off
	AddressSpacePhysical

	// AddressSpaceVirtual - translation required, fails when it is off
	AddressSpaceVirtual
)

// Unsigned constrains the host accessors to guest register widths
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// ReadResult carries a successful host read: the value plus whether
// the address was treated as virtual (translated) or physical.
type ReadResult[T any] struct {
	Translated bool
	Value      T
}

// WriteResult reports whether a successful host write translated
type WriteResult struct {
	Translated bool
}

// CPUThreadGuard proves the CPU thread is parked. Satisfied by the
// owning system's pause guard.
type CPUThreadGuard interface {
	MMU() *MMU
}

func sizeOf[T Unsigned]() uint32 {
	var v T
	switch any(v).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	case uint64:
		return 8
	}
	panic(exceptions.Trap{Msg: fmt.Sprintf("sizeOf: unsupported host access type %T", v)})
}

// HostRead reads a value using the currently active translation state.
// A failed read logs and returns zero; use HostTryRead to tell zero
// from absent.
func HostRead[T Unsigned](guard CPUThreadGuard, address uint32) T {
	m := guard.MMU()
	return T(m.readFromHardware(flagNoException, address, sizeOf[T](), false))
}

// HostTryRead reads a value in the requested address space. The second
// return value reports whether the address resolved at all.
func HostTryRead[T Unsigned](guard CPUThreadGuard, address uint32, space AddressSpace) (ReadResult[T], bool) {
	m := guard.MMU()
	if !m.hostIsRAMAddress(flagNoException, address, space) {
		return ReadResult[T]{}, false
	}
	size := sizeOf[T]()
	switch space {
	case AddressSpaceEffective:
		v := m.readFromHardware(flagNoException, address, size, false)
		return ReadResult[T]{Translated: m.ppc.MSR.DR(), Value: T(v)}, true
	case AddressSpacePhysical:
		v := m.readFromHardware(flagNoException, address, size, true)
		return ReadResult[T]{Value: T(v)}, true
	case AddressSpaceVirtual:
		if !m.ppc.MSR.DR() {
			return ReadResult[T]{}, false
		}
		v := m.readFromHardware(flagNoException, address, size, false)
		return ReadResult[T]{Translated: true, Value: T(v)}, true
	}
	panic(exceptions.Trap{Msg: fmt.Sprintf("HostTryRead: invalid address space %d", space)})
}

// HostWrite stores a value using the currently active translation
// state. Failures are logged and dropped.
func HostWrite[T Unsigned](guard CPUThreadGuard, v T, address uint32) {
	m := guard.MMU()
	if sizeOf[T]() == 8 {
		m.writeToHardware(flagNoException, address, uint32(uint64(v)>>32), 4, false)
		m.writeToHardware(flagNoException, address+4, uint32(uint64(v)), 4, false)
		return
	}
	m.writeToHardware(flagNoException, address, uint32(uint64(v)), sizeOf[T](), false)
}

// HostTryWrite stores a value in the requested address space, with the
// same absent-result failure policy as HostTryRead.
func HostTryWrite[T Unsigned](guard CPUThreadGuard, v T, address uint32, space AddressSpace) (WriteResult, bool) {
	size := sizeOf[T]()
	if size == 8 {
		result, ok := HostTryWrite(guard, uint32(uint64(v)>>32), address, space)
		if !ok {
			return result, false
		}
		return HostTryWrite(guard, uint32(uint64(v)), address+4, space)
	}

	m := guard.MMU()
	if !m.hostIsRAMAddress(flagNoException, address, space) {
		return WriteResult{}, false
	}
	switch space {
	case AddressSpaceEffective:
		m.writeToHardware(flagNoException, address, uint32(uint64(v)), size, false)
		return WriteResult{Translated: m.ppc.MSR.DR()}, true
	case AddressSpacePhysical:
		m.writeToHardware(flagNoException, address, uint32(uint64(v)), size, true)
		return WriteResult{}, true
	case AddressSpaceVirtual:
		if !m.ppc.MSR.DR() {
			return WriteResult{}, false
		}
		m.writeToHardware(flagNoException, address, uint32(uint64(v)), size, false)
		return WriteResult{Translated: true}, true
	}
	panic(exceptions.Trap{Msg: fmt.Sprintf("HostTryWrite: invalid address space %d", space)})
}

// HostReadInstruction fetches an opcode through the instruction-side
// translation state without risking an ISI.
func HostReadInstruction(guard CPUThreadGuard, address uint32) uint32 {
	m := guard.MMU()
	return uint32(m.readFromHardware(flagOpcodeNoException, address, 4, false))
}

// HostTryReadInstruction fetches an opcode in the requested space.
func HostTryReadInstruction(guard CPUThreadGuard, address uint32, space AddressSpace) (ReadResult[uint32], bool) {
	m := guard.MMU()
	if !m.hostIsRAMAddress(flagOpcodeNoException, address, space) {
		return ReadResult[uint32]{}, false
	}
	switch space {
	case AddressSpaceEffective:
		v := uint32(m.readFromHardware(flagOpcodeNoException, address, 4, false))
		return ReadResult[uint32]{Translated: m.ppc.MSR.IR(), Value: v}, true
	case AddressSpacePhysical:
		v := uint32(m.readFromHardware(flagOpcodeNoException, address, 4, true))
		return ReadResult[uint32]{Value: v}, true
	case AddressSpaceVirtual:
		if !m.ppc.MSR.IR() {
			return ReadResult[uint32]{}, false
		}
		v := uint32(m.readFromHardware(flagOpcodeNoException, address, 4, false))
		return ReadResult[uint32]{Translated: true, Value: v}, true
	}
	panic(exceptions.Trap{Msg: fmt.Sprintf("HostTryReadInstruction: invalid address space %d", space)})
}

// HostGetString reads a NUL-terminated byte string, stopping after
// size bytes when size is nonzero or at the first unresolvable byte.
func HostGetString(guard CPUThreadGuard, address, size uint32) string {
	var sb strings.Builder
	for i := uint32(0); size == 0 || i < size; i++ {
		result, ok := HostTryRead[uint8](guard, address+i, AddressSpaceEffective)
		if !ok || result.Value == 0 {
			break
		}
		sb.WriteByte(result.Value)
	}
	return sb.String()
}

// HostGetU16String reads a NUL-terminated big-endian UTF-16 string;
// size counts 16 bit units.
func HostGetU16String(guard CPUThreadGuard, address, size uint32) string {
	var units []uint16
	for i := uint32(0); size == 0 || i < size; i++ {
		result, ok := HostTryRead[uint16](guard, address+i*2, AddressSpaceEffective)
		if !ok || result.Value == 0 {
			break
		}
		units = append(units, result.Value)
	}
	return string(utf16.Decode(units))
}

// HostTryReadString is the absent-result variant of HostGetString.
func HostTryReadString(guard CPUThreadGuard, address, size uint32, space AddressSpace) (ReadResult[string], bool) {
	first, ok := HostTryRead[uint8](guard, address, space)
	if !ok {
		return ReadResult[string]{}, false
	}
	var sb strings.Builder
	value := first
	for i := uint32(0); ; i++ {
		if i > 0 {
			value, ok = HostTryRead[uint8](guard, address+i, space)
			if !ok {
				break
			}
		}
		if value.Value == 0 {
			break
		}
		sb.WriteByte(value.Value)
		if size != 0 && i+1 >= size {
			break
		}
	}
	return ReadResult[string]{Translated: first.Translated, Value: sb.String()}, true
}

// HostIsRAMAddress reports whether a data access at the address would
// resolve to backed RAM in the given space.
func HostIsRAMAddress(guard CPUThreadGuard, address uint32, space AddressSpace) bool {
	return guard.MMU().hostIsRAMAddress(flagNoException, address, space)
}

// HostIsInstructionRAMAddress is HostIsRAMAddress through the
// instruction BATs and MSR.IR.
func HostIsInstructionRAMAddress(guard CPUThreadGuard, address uint32, space AddressSpace) bool {
	return guard.MMU().hostIsRAMAddress(flagOpcodeNoException, address, space)
}

func (m *MMU) hostIsRAMAddress(flag accessFlag, address uint32, space AddressSpace) bool {
	switch space {
	case AddressSpaceEffective:
		return m.isRAMAddress(flag, address, m.translationEnabled(flag))
	case AddressSpacePhysical:
		return m.isRAMAddress(flag, address, false)
	case AddressSpaceVirtual:
		if !m.translationEnabled(flag) {
			return false
		}
		return m.isRAMAddress(flag, address, true)
	}
	panic(exceptions.Trap{Msg: fmt.Sprintf("hostIsRAMAddress: invalid address space %d", space)})
}

// isRAMAddress resolves (optionally translating) and checks the result
// against the directly backed physical regions.
func (m *MMU) isRAMAddress(flag accessFlag, address uint32, translate bool) bool {
	if translate {
		result := m.translateAddress(flag, address)
		if !result.success() {
			return false
		}
		address = result.address
	}
	switch segment := address >> 28; {
	case segment == 0x0 && address&0x0FFFFFFF < m.mem.RAMSize():
		return true
	case m.mem.EXRAMSize() > 0 && segment == 0x1 && address&0x0FFFFFFF < m.mem.EXRAMSize():
		return true
	case m.mem.HasFakeVMEM() && address&0xFE000000 == memory.FakeVMEMBase:
		return true
	case segment == 0xE && address-memory.L1CacheBase < memory.L1CacheSize:
		return true
	}
	return false
}
