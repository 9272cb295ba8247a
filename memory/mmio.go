package memory

import (
	"log"
)

// Device is a memory mapped peripheral. Offsets are relative to the
// registered base, sizes are 1, 2 or 4 bytes; wider accesses are split
// by the MMU before they get here.
type Device interface {
	Read(offset, size uint32) uint32
	Write(offset, value, size uint32)
}

type mmioRange struct {
	base uint32
	size uint32
	dev  Device
}

// Bus dispatches physical I/O accesses to registered devices. Unclaimed
// addresses are logged and read as zero - guest drivers probing absent
// hardware must not take the emulator down.
type Bus struct {
	ranges []mmioRange
	log    *log.Logger
}

// NewBus returns an empty dispatcher
func NewBus(l *log.Logger) *Bus {
	return &Bus{log: l}
}

// Register attaches a device to [base, base+size)
func (b *Bus) Register(base, size uint32, dev Device) {
	b.ranges = append(b.ranges, mmioRange{base: base, size: size, dev: dev})
}

func (b *Bus) find(physical uint32) (Device, uint32) {
	for _, r := range b.ranges {
		if physical >= r.base && physical < r.base+r.size {
			return r.dev, physical - r.base
		}
	}
	return nil, 0
}

// Read dispatches an I/O read of size bytes
func (b *Bus) Read(physical, size uint32) uint32 {
	if dev, offset := b.find(physical); dev != nil {
		return dev.Read(offset, size)
	}
	b.log.Printf("MMIO: unhandled read%d from %08x", size*8, physical)
	return 0
}

// Write dispatches an I/O write of size bytes
func (b *Bus) Write(physical, value, size uint32) {
	if dev, offset := b.find(physical); dev != nil {
		dev.Write(offset, value, size)
		return
	}
	b.log.Printf("MMIO: unhandled write%d of %08x to %08x", size*8, value, physical)
}
