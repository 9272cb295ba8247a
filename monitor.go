package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"gekko/mmu"
	"gekko/ppc"
	"gekko/system"
)

// monitor interprets debugger commands. Every command that touches
// guest state pauses the CPU thread first and works through the host
// access facade, so a running guest can be inspected safely.
type monitor struct {
	sys *system.System
}

const monitorHelp = `commands:
  r8|r16|r32|r64 <addr> [e|p|v]   read memory
  w8|w16|w32|w64 <addr> <val> [e|p|v]   write memory
  op <addr>                       fetch an opcode the way the core does
  str <addr>                      read NUL terminated string
  xlate <addr>                    translate an effective address
  bats                            show data BAT registers
  tlb <addr>                      probe the data TLB for an address
  watch <addr> <len> [r][w]       break on access to a range
  unwatch                         clear all watchpoints
  regs                            dump processor registers
  dump                            dump segment/page table state
  step [n]                        execute n instructions (default 1)
  halt | resume                   pause or continue the CPU thread
  boot                            set up BATs and start at 0x80000000
  save <path> | load <path>       snapshot the machine
  quit`

func newMonitor(sys *system.System) *monitor {
	return &monitor{sys: sys}
}

// exec runs one command line and returns the text to display
func (mon *monitor) exec(line string) string {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return ""
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help", "?":
		return monitorHelp
	case "r8", "r16", "r32", "r64":
		return mon.read(cmd, args)
	case "w8", "w16", "w32", "w64":
		return mon.write(cmd, args)
	case "op":
		return mon.readOpcode(args)
	case "str":
		return mon.readString(args)
	case "xlate":
		return mon.translate(args)
	case "bats":
		return mon.showBATs()
	case "tlb":
		return mon.probeTLB(args)
	case "watch":
		return mon.watch(args)
	case "unwatch":
		return mon.unwatch()
	case "regs":
		return mon.regs()
	case "dump":
		return mon.dump()
	case "step":
		return mon.step(args)
	case "halt":
		mon.sys.RequestPause()
		return "halted"
	case "resume":
		mon.sys.Resume()
		return "running"
	case "boot":
		go mon.sys.Boot()
		return "booting"
	case "save":
		return mon.saveState(args)
	case "load":
		return mon.loadState(args)
	}
	return fmt.Sprintf("unknown command %q, try help", cmd)
}

func parseNum(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return uint32(v), nil
}

func parseSpace(args []string, at int) mmu.AddressSpace {
	if len(args) <= at {
		return mmu.AddressSpaceEffective
	}
	switch args[at] {
	case "p":
		return mmu.AddressSpacePhysical
	case "v":
		return mmu.AddressSpaceVirtual
	}
	return mmu.AddressSpaceEffective
}

func (mon *monitor) read(cmd string, args []string) string {
	if len(args) < 1 {
		return "usage: " + cmd + " <addr> [e|p|v]"
	}
	addr, err := parseNum(args[0])
	if err != nil {
		return err.Error()
	}
	space := parseSpace(args, 1)

	guard := mon.sys.PauseAndLock()
	defer guard.Unlock()

	switch cmd {
	case "r8":
		if r, ok := mmu.HostTryRead[uint8](guard, addr, space); ok {
			return fmt.Sprintf("%08x: %02x", addr, r.Value)
		}
	case "r16":
		if r, ok := mmu.HostTryRead[uint16](guard, addr, space); ok {
			return fmt.Sprintf("%08x: %04x", addr, r.Value)
		}
	case "r32":
		if r, ok := mmu.HostTryRead[uint32](guard, addr, space); ok {
			return fmt.Sprintf("%08x: %08x", addr, r.Value)
		}
	case "r64":
		if r, ok := mmu.HostTryRead[uint64](guard, addr, space); ok {
			return fmt.Sprintf("%08x: %016x", addr, r.Value)
		}
	}
	return fmt.Sprintf("%08x: unmapped", addr)
}

func (mon *monitor) write(cmd string, args []string) string {
	if len(args) < 2 {
		return "usage: " + cmd + " <addr> <val> [e|p|v]"
	}
	addr, err := parseNum(args[0])
	if err != nil {
		return err.Error()
	}
	val, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		return fmt.Sprintf("bad number %q", args[1])
	}
	space := parseSpace(args, 2)

	guard := mon.sys.PauseAndLock()
	defer guard.Unlock()

	var ok bool
	switch cmd {
	case "w8":
		_, ok = mmu.HostTryWrite(guard, uint8(val), addr, space)
	case "w16":
		_, ok = mmu.HostTryWrite(guard, uint16(val), addr, space)
	case "w32":
		_, ok = mmu.HostTryWrite(guard, uint32(val), addr, space)
	case "w64":
		_, ok = mmu.HostTryWrite(guard, val, addr, space)
	}
	if !ok {
		return fmt.Sprintf("%08x: unmapped", addr)
	}
	return "ok"
}

func (mon *monitor) readOpcode(args []string) string {
	if len(args) < 1 {
		return "usage: op <addr>"
	}
	addr, err := parseNum(args[0])
	if err != nil {
		return err.Error()
	}
	guard := mon.sys.PauseAndLock()
	defer guard.Unlock()

	result, ok := mmu.HostTryReadInstruction(guard, addr, parseSpace(args, 1))
	if !ok {
		return fmt.Sprintf("%08x: no instruction mapping", addr)
	}
	return fmt.Sprintf("%08x: %08x", addr, result.Value)
}

func (mon *monitor) readString(args []string) string {
	if len(args) < 1 {
		return "usage: str <addr>"
	}
	addr, err := parseNum(args[0])
	if err != nil {
		return err.Error()
	}
	guard := mon.sys.PauseAndLock()
	defer guard.Unlock()
	return fmt.Sprintf("%08x: %q", addr, mmu.HostGetString(guard, addr, 0))
}

func (mon *monitor) translate(args []string) string {
	if len(args) < 1 {
		return "usage: xlate <addr>"
	}
	addr, err := parseNum(args[0])
	if err != nil {
		return err.Error()
	}
	guard := mon.sys.PauseAndLock()
	defer guard.Unlock()

	phys, ok := guard.MMU().GetTranslatedAddress(addr)
	if !ok {
		return fmt.Sprintf("%08x: no translation", addr)
	}
	return fmt.Sprintf("%08x -> %08x", addr, phys)
}

func (mon *monitor) showBATs() string {
	guard := mon.sys.PauseAndLock()
	defer guard.Unlock()

	var b strings.Builder
	st := mon.sys.PPC
	for i := 0; i < 8; i++ {
		spr := ppc.SPRDBAT0U + 2*i
		if i >= 4 {
			if !st.ExtendedBATs() {
				break
			}
			spr = ppc.SPRDBAT4U + 2*(i-4)
		}
		batu, batl := st.SPR[spr], st.SPR[spr+1]
		if batu&3 == 0 {
			fmt.Fprintf(&b, "DBAT%d: disabled\n", i)
			continue
		}
		size := (((batu >> 2) & 0x7FF) + 1) * 128 * 1024
		fmt.Fprintf(&b, "DBAT%d: %08x -> %08x, %d KB, WIMG=%x PP=%d\n",
			i, batu&0xFFFE0000, batl&0xFFFE0000, size/1024, (batl>>3)&0xF, batl&3)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (mon *monitor) probeTLB(args []string) string {
	if len(args) < 1 {
		return "usage: tlb <addr>"
	}
	addr, err := parseNum(args[0])
	if err != nil {
		return err.Error()
	}
	guard := mon.sys.PauseAndLock()
	defer guard.Unlock()

	tag := addr >> 12
	entry := &mon.sys.PPC.TLB[0][tag&(ppc.TLBSets-1)]
	var b strings.Builder
	for way := 0; way < ppc.TLBWays; way++ {
		if entry.Tag[way] == tag {
			fmt.Fprintf(&b, "way %d: tag=%05x paddr=%08x pte=%08x recent=%v\n",
				way, entry.Tag[way], entry.Paddr[way], entry.PTE[way],
				entry.Recent == uint32(way))
		}
	}
	if b.Len() == 0 {
		return fmt.Sprintf("%08x: not cached", addr)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (mon *monitor) watch(args []string) string {
	if len(args) < 2 {
		return "usage: watch <addr> <len> [r][w]"
	}
	addr, err := parseNum(args[0])
	if err != nil {
		return err.Error()
	}
	length, err := parseNum(args[1])
	if err != nil || length == 0 {
		return "bad length"
	}
	mode := "rw"
	if len(args) > 2 {
		mode = args[2]
	}

	guard := mon.sys.PauseAndLock()
	defer guard.Unlock()

	m := guard.MMU()
	m.MemChecks().Add(mmu.MemCheck{
		Start:        addr,
		End:          addr + length - 1,
		BreakOnRead:  strings.Contains(mode, "r"),
		BreakOnWrite: strings.Contains(mode, "w"),
		LogOnHit:     true,
		BreakOnHit:   true,
	})
	m.DBATUpdated()
	m.IBATUpdated()
	return fmt.Sprintf("watching %08x..%08x (%s)", addr, addr+length-1, mode)
}

func (mon *monitor) unwatch() string {
	guard := mon.sys.PauseAndLock()
	defer guard.Unlock()
	m := guard.MMU()
	m.MemChecks().Clear()
	m.DBATUpdated()
	m.IBATUpdated()
	return "watchpoints cleared"
}

func (mon *monitor) regs() string {
	guard := mon.sys.PauseAndLock()
	defer guard.Unlock()
	var b strings.Builder
	mon.sys.PPC.DumpRegisters(&b)
	return b.String()
}

// dump shows the raw segment registers and page table geometry, spewed
// so nested values stay readable
func (mon *monitor) dump() string {
	guard := mon.sys.PauseAndLock()
	defer guard.Unlock()
	st := mon.sys.PPC
	summary := struct {
		SR                [16]uint32
		SDR1              uint32
		PagetableBase     uint32
		PagetableHashmask uint32
	}{st.SR, st.SPR[ppc.SPRSDR1], st.PagetableBase, st.PagetableHashmask}
	return spew.Sdump(summary)
}

func (mon *monitor) step(args []string) string {
	n := 1
	if len(args) > 0 {
		v, err := parseNum(args[0])
		if err != nil {
			return err.Error()
		}
		n = int(v)
	}
	guard := mon.sys.PauseAndLock()
	defer guard.Unlock()
	for i := 0; i < n; i++ {
		mon.sys.Step()
	}
	return fmt.Sprintf("stepped %d, PC=%08x", n, mon.sys.PPC.PC)
}

func (mon *monitor) saveState(args []string) string {
	if len(args) < 1 {
		return "usage: save <path>"
	}
	if err := mon.sys.SaveState(args[0]); err != nil {
		return "save failed: " + err.Error()
	}
	return "state saved to " + args[0]
}

func (mon *monitor) loadState(args []string) string {
	if len(args) < 1 {
		return "usage: load <path>"
	}
	if err := mon.sys.LoadState(args[0]); err != nil {
		return "load failed: " + err.Error()
	}
	return "state loaded from " + args[0]
}
