package memory

import (
	"fmt"
	"log"

	"gekko/state"
)

// Physical memory layout. Main RAM sits at the bottom of the address
// space, extended RAM (when present) in the 0x1 segment, the locked L1
// cache in the 0xE segment. The 0x0C/0x0D segments are memory mapped
// I/O and never backed by a buffer.
const (
	// DefaultRAMSize - 24 MB of main memory
	DefaultRAMSize = 0x01800000

	// DefaultEXRAMSize - 64 MB of extended memory
	DefaultEXRAMSize = 0x04000000

	// L1CacheBase / L1CacheSize - locked L1 data cache window
	L1CacheBase = 0xE0000000
	L1CacheSize = 0x00040000

	// FakeVMEMBase / FakeVMEMSize / FakeVMEMMask - the speculative
	// translation window used when full page-table emulation is off.
	// It mirrors main RAM through a 32 MB mask.
	FakeVMEMBase = 0x7E000000
	FakeVMEMSize = 0x02000000
	FakeVMEMMask = FakeVMEMSize - 1

	// MMIOBase - start of the memory mapped I/O segment
	MMIOBase = 0x0C000000
)

// Config selects which physical regions exist.
type Config struct {
	RAMSize   uint32
	EXRAMSize uint32 // 0 disables extended RAM
	FakeVMEM  bool
}

// Memory is the flat physical backing store plus the MMIO dispatcher.
// The MMU reads and writes into it but does not own it.
type Memory struct {
	ram      []byte
	exram    []byte
	l1       []byte
	fakeVMEM []byte

	mmio   *Bus
	gather *GatherPipe

	log *log.Logger
}

// New allocates the configured regions and registers the built in
// MMIO devices.
func New(cfg Config, l *log.Logger) *Memory {
	if cfg.RAMSize == 0 {
		cfg.RAMSize = DefaultRAMSize
	}
	m := &Memory{
		ram:  make([]byte, cfg.RAMSize),
		l1:   make([]byte, L1CacheSize),
		mmio: NewBus(l),
		log:  l,
	}
	if cfg.EXRAMSize != 0 {
		m.exram = make([]byte, cfg.EXRAMSize)
	}
	if cfg.FakeVMEM {
		m.fakeVMEM = make([]byte, FakeVMEMSize)
	}
	m.gather = NewGatherPipe(l)
	m.mmio.Register(GatherPipeAddress, GatherPipeWindow, m.gather)
	return m
}

// RAMSize returns the size of main memory in bytes
func (m *Memory) RAMSize() uint32 {
	return uint32(len(m.ram))
}

// EXRAMSize returns the size of extended memory, 0 if absent
func (m *Memory) EXRAMSize() uint32 {
	return uint32(len(m.exram))
}

// HasFakeVMEM reports whether the speculative translation window exists
func (m *Memory) HasFakeVMEM() bool {
	return m.fakeVMEM != nil
}

// MMIO returns the I/O dispatcher
func (m *Memory) MMIO() *Bus {
	return m.mmio
}

// GatherPipe returns the write gather FIFO device
func (m *Memory) GatherPipe() *GatherPipe {
	return m.gather
}

// IsMMIOAddress reports whether the physical address falls into the
// memory mapped I/O segment.
func IsMMIOAddress(physical uint32) bool {
	return physical&0xFE000000 == MMIOBase
}

// Resolve returns the backing slice for size bytes at the physical
// address, or nil if the address is not directly backed (MMIO, holes,
// or a span that runs off the end of its region). Callers must treat
// nil as "invalid physical address" and report it, never index past a
// region themselves.
func (m *Memory) Resolve(physical, size uint32) []byte {
	region, offset := m.region(physical)
	if region == nil {
		return nil
	}
	end := uint64(offset) + uint64(size)
	if end > uint64(len(region)) {
		return nil
	}
	return region[offset:end]
}

// region picks the backing buffer and the offset into it
func (m *Memory) region(physical uint32) ([]byte, uint32) {
	switch {
	case physical>>28 == 0x0:
		if offset := physical & 0x0FFFFFFF; offset < uint32(len(m.ram)) {
			return m.ram, offset
		}
	case m.exram != nil && physical>>28 == 0x1:
		if offset := physical & 0x0FFFFFFF; offset < uint32(len(m.exram)) {
			return m.exram, offset
		}
	case m.fakeVMEM != nil && physical&^uint32(FakeVMEMMask) == FakeVMEMBase:
		return m.fakeVMEM, physical & FakeVMEMMask
	case physical >= L1CacheBase && physical < L1CacheBase+L1CacheSize:
		return m.l1, physical - L1CacheBase
	}
	return nil, 0
}

// CopyToPhys copies host bytes into physical memory. Used to load
// images at boot and by the save-state restore. Returns an error when
// the destination span is not directly backed.
func (m *Memory) CopyToPhys(physical uint32, data []byte) error {
	dst := m.Resolve(physical, uint32(len(data)))
	if dst == nil {
		return fmt.Errorf("memory: copy of %d bytes to unbacked physical address %08x", len(data), physical)
	}
	copy(dst, data)
	return nil
}

// CopyFromPhys copies physical memory into a host buffer.
func (m *Memory) CopyFromPhys(data []byte, physical uint32) error {
	src := m.Resolve(physical, uint32(len(data)))
	if src == nil {
		return fmt.Errorf("memory: copy of %d bytes from unbacked physical address %08x", len(data), physical)
	}
	copy(data, src)
	return nil
}

// Clear zero-fills every backed region
func (m *Memory) Clear() {
	clear(m.ram)
	clear(m.exram)
	clear(m.l1)
	clear(m.fakeVMEM)
	m.gather.Reset()
}

// DoState saves or restores the backing store contents. Region sizes
// are part of the system configuration and not serialized here.
func (m *Memory) DoState(s *state.Serializer) {
	s.DoBytes(m.ram)
	s.DoBytes(m.exram)
	s.DoBytes(m.l1)
	s.DoBytes(m.fakeVMEM)
	m.gather.DoState(s)
}
