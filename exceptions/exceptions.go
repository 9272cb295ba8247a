package exceptions

/**
 * Separate package exists mainly in order to avoid cyclic imports
 */

// Pending exception bits, kept in the processor state and serviced by the
// system between instructions. Only the two MMU-generated ones are raised
// from this codebase; the rest exist so the dispatcher can stay complete.
const (
	// DSI : data storage interrupt - data access page fault
	DSI uint32 = 1 << 0

	// ISI : instruction storage interrupt - fetch page fault
	ISI uint32 = 1 << 1

	// External : external interrupt request
	External uint32 = 1 << 2

	// Alignment : unhandled misaligned access
	Alignment uint32 = 1 << 3

	// Program : illegal/privileged instruction
	Program uint32 = 1 << 4

	// Decrementer : decrementer underflow
	Decrementer uint32 = 1 << 5

	// SystemCall : sc instruction
	SystemCall uint32 = 1 << 6
)

// exception vector offsets, added to the base selected by MSR[IP]

// VectorDSI - data storage interrupt vector
const VectorDSI = 0x00000300

// VectorISI - instruction storage interrupt vector
const VectorISI = 0x00000400

// VectorExternal - external interrupt vector
const VectorExternal = 0x00000500

// VectorAlignment - alignment interrupt vector
const VectorAlignment = 0x00000600

// VectorProgram - program interrupt vector
const VectorProgram = 0x00000700

// VectorDecrementer - decrementer interrupt vector
const VectorDecrementer = 0x00000900

// VectorSystemCall - system call interrupt vector
const VectorSystemCall = 0x00000C00

// Trap signals a host-side contract violation: a bug in the emulator
// itself, never something guest code can trigger. It is meant to be
// passed to panic and deliberately not recovered anywhere.
type Trap struct {
	Msg string
}

func (t Trap) String() string {
	return t.Msg
}
