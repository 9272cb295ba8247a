package system

import (
	"log"
	"sync"

	"gekko/console"
	"gekko/exceptions"
	"gekko/memory"
	"gekko/mmu"
	"gekko/ppc"
)

// Config selects the emulated machine shape.
type Config struct {
	// RAMSize - main memory size, 0 for the default 24 MB
	RAMSize uint32

	// EXRAM - attach the 64 MB extended memory in the 0x1 segment
	EXRAM bool

	// MMU - emulate the full hashed page table. Off means BAT-only
	// translation plus the fake VMEM window.
	MMU bool

	// DebugMode - log every exception redirect
	DebugMode bool
}

// Executor runs one decoded instruction. The instruction set emulation
// lives outside this repo; without an executor attached the run loop
// degrades to a fetch trace, which still drives the full
// instruction-side translation path.
type Executor interface {
	Execute(opcode uint32)
}

// System wires the processor state, the physical memory and the MMU
// together and owns the CPU thread.
type System struct {
	PPC    *ppc.State
	Memory *memory.Memory
	MMU    *mmu.MMU

	console console.Console
	log     *log.Logger

	executor Executor

	// CPU thread parking. The CPU loop parks itself whenever pause
	// requests are outstanding; PauseAndLock blocks until it has.
	mu            sync.Mutex
	cond          *sync.Cond
	pauseRequests int
	parked        bool
	running       bool
	stopped       bool

	debugMode bool
}

// InitializeSystem builds the emulated machine.
func InitializeSystem(c console.Console, cfg Config, l *log.Logger) *System {
	sys := new(System)
	sys.console = c
	sys.log = l
	sys.debugMode = cfg.DebugMode
	sys.cond = sync.NewCond(&sys.mu)

	memCfg := memory.Config{
		RAMSize:  cfg.RAMSize,
		FakeVMEM: !cfg.MMU,
	}
	if cfg.EXRAM {
		memCfg.EXRAMSize = memory.DefaultEXRAMSize
	}

	sys.PPC = ppc.New()
	sys.Memory = memory.New(memCfg, l)
	sys.MMU = mmu.New(sys.Memory, sys.PPC, cfg.MMU, l)
	sys.MMU.SetBreakHandler(func(address uint32, write bool) {
		sys.log.Printf("memcheck break at %08x (write=%v)", address, write)
		sys.RequestPause()
	})

	_ = sys.console.WriteConsole("Initializing Gekko core.\n")
	return sys
}

// SetExecutor attaches the instruction set emulation
func (sys *System) SetExecutor(e Executor) {
	sys.executor = e
}

// Boot installs the canonical firmware BAT mapping, enables address
// translation and enters the run loop on the calling goroutine.
func (sys *System) Boot() {
	sys.SetupDefaultBATs()
	sys.PPC.MSR |= ppc.MSRDR | ppc.MSRIR
	sys.PPC.PC = 0x80000000
	sys.PPC.NPC = sys.PPC.PC + 4
	_ = sys.console.WriteConsole("Booting..\n")
	sys.Run()
}

// SetupDefaultBATs writes the BAT register pairs the firmware leaves
// behind: 256 MB of RAM cached at 0x80000000 and the same physical
// range cache-inhibited at 0xC0000000, for both data and instruction
// sides.
func (sys *System) SetupDefaultBATs() {
	// BATU: BEPI | BL=256MB | Vs|Vp. BATL: BRPN=0 | WIMG | PP=RW.
	sys.PPC.SPR[ppc.SPRDBAT0U] = 0x80001FFF
	sys.PPC.SPR[ppc.SPRDBAT0L] = 0x00000002
	sys.PPC.SPR[ppc.SPRDBAT0U+2] = 0xC0001FFF
	sys.PPC.SPR[ppc.SPRDBAT0L+2] = 0x0000002A
	sys.PPC.SPR[ppc.SPRIBAT0U] = 0x80001FFF
	sys.PPC.SPR[ppc.SPRIBAT0L] = 0x00000002
	sys.MMU.DBATUpdated()
	sys.MMU.IBATUpdated()
}

// LoadImage copies a raw binary into physical memory
func (sys *System) LoadImage(data []byte, physical uint32) error {
	return sys.Memory.CopyToPhys(physical, data)
}

// Run is the CPU thread loop. Exactly one goroutine may run it.
func (sys *System) Run() {
	sys.mu.Lock()
	sys.running = true
	sys.mu.Unlock()

	for {
		sys.mu.Lock()
		for sys.pauseRequests > 0 && !sys.stopped {
			sys.parked = true
			sys.cond.Broadcast()
			sys.cond.Wait()
		}
		sys.parked = false
		if sys.stopped {
			sys.running = false
			sys.mu.Unlock()
			return
		}
		sys.mu.Unlock()

		sys.Step()
	}
}

// Stop ends the run loop
func (sys *System) Stop() {
	sys.mu.Lock()
	sys.stopped = true
	sys.cond.Broadcast()
	sys.mu.Unlock()
}

// RequestPause asks the CPU thread to park without waiting for it
func (sys *System) RequestPause() {
	sys.mu.Lock()
	sys.pauseRequests++
	sys.cond.Broadcast()
	sys.mu.Unlock()
}

// Resume undoes one pause request
func (sys *System) Resume() {
	sys.mu.Lock()
	if sys.pauseRequests > 0 {
		sys.pauseRequests--
	}
	sys.cond.Broadcast()
	sys.mu.Unlock()
}

// Step runs one fetch/execute cycle on the CPU thread.
func (sys *System) Step() {
	if sys.PPC.Exceptions != 0 {
		sys.CheckExceptions()
	}

	sys.PPC.NPC = sys.PPC.PC + 4
	opcode := sys.MMU.ReadOpcode(sys.PPC.PC)
	if sys.PPC.Exceptions != 0 {
		// fetch faulted: the redirect replaces this instruction
		sys.CheckExceptions()
		return
	}

	if sys.executor != nil {
		sys.executor.Execute(opcode)
		if sys.PPC.Exceptions != 0 {
			// data fault: SRR0 must name this instruction, so dispatch
			// before PC advances and let the handler rfi back to retry
			sys.CheckExceptions()
			return
		}
	}
	sys.PPC.PC = sys.PPC.NPC
}

// CheckExceptions redirects guest execution to the highest priority
// pending exception vector, filling SRR0/SRR1 the way the hardware
// does. Only the MMU-generated exceptions are raised from this repo.
func (sys *System) CheckExceptions() {
	pending := sys.PPC.Exceptions
	base := uint32(0)
	if sys.PPC.MSR.IP() {
		base = 0xFFF00000
	}

	switch {
	case pending&exceptions.ISI != 0:
		sys.PPC.SPR[ppc.SPRSRR0] = sys.PPC.NPC
		sys.PPC.SPR[ppc.SPRSRR1] = uint32(sys.PPC.MSR)&0x87C0FFFF | 1<<30
		sys.enterException(base + exceptions.VectorISI)
		sys.PPC.Exceptions &^= exceptions.ISI
		if sys.debugMode {
			sys.log.Printf("ISI exception, redirect to %08x", sys.PPC.PC)
		}
	case pending&exceptions.DSI != 0:
		sys.PPC.SPR[ppc.SPRSRR0] = sys.PPC.PC
		sys.PPC.SPR[ppc.SPRSRR1] = uint32(sys.PPC.MSR) & 0x87C0FFFF
		sys.enterException(base + exceptions.VectorDSI)
		sys.PPC.Exceptions &^= exceptions.DSI
		if sys.debugMode {
			sys.log.Printf("DSI exception at DAR %08x, redirect to %08x",
				sys.PPC.SPR[ppc.SPRDAR], sys.PPC.PC)
		}
	}
}

// enterException switches to the exception context: translation off,
// supervisor mode, execution at the vector.
func (sys *System) enterException(vector uint32) {
	msr := uint32(sys.PPC.MSR)
	msr &^= 0x04EF36 // POW, EE, PR, FP, FE0/FE1, SE, BE, IR, DR, RI
	sys.PPC.MSR = ppc.MSR(msr)
	sys.PPC.PC = vector
	sys.PPC.NPC = vector
}
