package memory

import (
	"testing"

	"gekko/logger"
)

func newTestMemory(cfg Config) *Memory {
	return New(cfg, logger.NewSilent())
}

func TestMemory_Resolve(t *testing.T) {
	m := newTestMemory(Config{EXRAMSize: DefaultEXRAMSize, FakeVMEM: true})

	tests := []struct {
		name     string
		physical uint32
		size     uint32
		backed   bool
	}{
		{"RAM start", 0x00000000, 4, true},
		{"RAM end", DefaultRAMSize - 4, 4, true},
		{"RAM overrun", DefaultRAMSize - 2, 4, false},
		{"hole past RAM", 0x02000000, 4, false},
		{"EXRAM", 0x10000000, 4, true},
		{"EXRAM end", 0x10000000 + DefaultEXRAMSize - 1, 1, true},
		{"EXRAM overrun", 0x10000000 + DefaultEXRAMSize - 1, 2, false},
		{"MMIO is not backed", MMIOBase, 4, false},
		{"locked cache", L1CacheBase, 4, true},
		{"locked cache end", L1CacheBase + L1CacheSize - 4, 4, true},
		{"locked cache overrun", L1CacheBase + L1CacheSize - 2, 4, false},
		{"fake VMEM", FakeVMEMBase, 4, true},
		{"fake VMEM high bits", FakeVMEMBase | 0x01000000, 4, true},
		{"unrelated high address", 0xA0000000, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := m.Resolve(tt.physical, tt.size)
			if (buf != nil) != tt.backed {
				t.Errorf("Resolve(%08x, %d) backed = %v, want %v", tt.physical, tt.size, buf != nil, tt.backed)
			}
			if buf != nil && uint32(len(buf)) != tt.size {
				t.Errorf("Resolve(%08x, %d) length = %d", tt.physical, tt.size, len(buf))
			}
		})
	}
}

func TestMemory_OptionalRegionsAbsent(t *testing.T) {
	m := newTestMemory(Config{})

	if m.Resolve(0x10000000, 4) != nil {
		t.Error("EXRAM resolved without being configured")
	}
	if m.Resolve(FakeVMEMBase, 4) != nil {
		t.Error("fake VMEM resolved without being configured")
	}
	if m.HasFakeVMEM() {
		t.Error("HasFakeVMEM() = true for a config without it")
	}
}

func TestMemory_CopyToFromPhys(t *testing.T) {
	m := newTestMemory(Config{})

	src := []byte{1, 2, 3, 4, 5}
	if err := m.CopyToPhys(0x1000, src); err != nil {
		t.Fatalf("CopyToPhys() error = %v", err)
	}
	dst := make([]byte, 5)
	if err := m.CopyFromPhys(dst, 0x1000); err != nil {
		t.Fatalf("CopyFromPhys() error = %v", err)
	}
	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("byte %d = %02x, want %02x", i, dst[i], src[i])
		}
	}

	if err := m.CopyToPhys(DefaultRAMSize-2, src); err == nil {
		t.Error("CopyToPhys() across the region end did not fail")
	}
}

func TestMemory_IsMMIOAddress(t *testing.T) {
	tests := []struct {
		physical uint32
		want     bool
	}{
		{0x0C000000, true},
		{0x0C008000, true},
		{0x0D000000, true},
		{0x0E000000, false},
		{0x00001000, false},
	}
	for _, tt := range tests {
		if got := IsMMIOAddress(tt.physical); got != tt.want {
			t.Errorf("IsMMIOAddress(%08x) = %v, want %v", tt.physical, got, tt.want)
		}
	}
}

type testDevice struct {
	lastWrite  uint32
	lastOffset uint32
}

func (d *testDevice) Read(offset, size uint32) uint32 {
	return 0x1234 + offset
}

func (d *testDevice) Write(offset, value, size uint32) {
	d.lastOffset = offset
	d.lastWrite = value
}

func TestBus_Dispatch(t *testing.T) {
	b := NewBus(logger.NewSilent())
	dev := &testDevice{}
	b.Register(0x0C006000, 0x100, dev)

	if got := b.Read(0x0C006010, 4); got != 0x1244 {
		t.Errorf("Bus.Read() = %04x, want 1244", got)
	}
	b.Write(0x0C006020, 0xABCD, 2)
	if dev.lastOffset != 0x20 || dev.lastWrite != 0xABCD {
		t.Errorf("Bus.Write() reached device as (%x, %x)", dev.lastOffset, dev.lastWrite)
	}

	// unclaimed addresses float zero
	if got := b.Read(0x0C007000, 4); got != 0 {
		t.Errorf("Bus.Read() unclaimed = %x, want 0", got)
	}
}

func TestGatherPipe(t *testing.T) {
	gp := NewGatherPipe(logger.NewSilent())

	gp.Write(0, 0xAABBCCDD, 4)
	gp.Write(0, 0xEE, 1)
	if got := gp.PendingBytes(); got != 5 {
		t.Fatalf("PendingBytes() = %d, want 5", got)
	}
	want := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE}
	for i, b := range gp.Burst() {
		if b != want[i] {
			t.Errorf("Burst()[%d] = %02x, want %02x", i, b, want[i])
		}
	}

	gp.Reset()
	if gp.PendingBytes() != 0 {
		t.Error("PendingBytes() != 0 after Reset")
	}

	// the port is write only
	if gp.Read(0, 4) != 0 {
		t.Error("Read() from the write port returned data")
	}
}

func TestGatherPipe_Wraps(t *testing.T) {
	gp := NewGatherPipe(logger.NewSilent())

	for i := uint32(0); i < gatherPipeCapacity/4; i++ {
		gp.Write(0, i, 4)
	}
	if gp.PendingBytes() != 0 {
		t.Errorf("PendingBytes() = %d after filling the buffer, want wrap to 0", gp.PendingBytes())
	}
}

func TestMemory_Clear(t *testing.T) {
	m := newTestMemory(Config{})
	if err := m.CopyToPhys(0, []byte{0xFF}); err != nil {
		t.Fatal(err)
	}
	m.GatherPipe().Write(0, 1, 1)

	m.Clear()
	if buf := m.Resolve(0, 1); buf[0] != 0 {
		t.Error("RAM not cleared")
	}
	if m.GatherPipe().PendingBytes() != 0 {
		t.Error("gather pipe not reset")
	}
}
