package memory

import (
	"log"

	"gekko/state"
)

// The write gather pipe: every store to its single physical port is
// appended to a burst buffer which the (external) command processor
// drains in 32 byte bursts. Without a video backend attached the
// buffer wraps, which is fine for the memory semantics modelled here.
const (
	// GatherPipeAddress - physical address of the write port
	GatherPipeAddress = 0x0C008000

	// GatherPipeWindow - the port is mirrored through 4 bytes
	GatherPipeWindow = 4

	// GatherPipeBurstSize - drain granularity
	GatherPipeBurstSize = 32

	gatherPipeCapacity = GatherPipeBurstSize * 8
)

// GatherPipe accumulates guest stores in guest byte order.
type GatherPipe struct {
	buf   [gatherPipeCapacity]byte
	count uint32
	log   *log.Logger
}

// NewGatherPipe returns an empty pipe
func NewGatherPipe(l *log.Logger) *GatherPipe {
	return &GatherPipe{log: l}
}

// Write appends the low size bytes of value, most significant first
func (g *GatherPipe) Write(offset, value, size uint32) {
	for i := size; i > 0; i-- {
		g.buf[g.count] = byte(value >> ((i - 1) * 8))
		g.count++
		if g.count == gatherPipeCapacity {
			// no FIFO consumer attached: drop the burst buffer
			g.log.Printf("gather pipe: buffer wrapped, %d bytes dropped", g.count)
			g.count = 0
		}
	}
}

// Read - the port is write only, reads float as zero
func (g *GatherPipe) Read(offset, size uint32) uint32 {
	return 0
}

// PendingBytes returns how much of the burst buffer is filled
func (g *GatherPipe) PendingBytes() uint32 {
	return g.count
}

// Burst returns the accumulated bytes without draining them
func (g *GatherPipe) Burst() []byte {
	return g.buf[:g.count]
}

// Reset empties the burst buffer
func (g *GatherPipe) Reset() {
	g.count = 0
}

// DoState saves or restores the burst buffer
func (g *GatherPipe) DoState(s *state.Serializer) {
	s.Do(&g.count)
	s.DoBytes(g.buf[:])
}
