package main

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"gekko/console"
	"gekko/logger"
	"gekko/system"
)

func newTestMonitor() *monitor {
	cons := console.NewSimpleWriter(io.Discard)
	sys := system.InitializeSystem(cons, system.Config{}, logger.NewSilent())
	sys.SetupDefaultBATs()
	return newMonitor(sys)
}

func TestMonitor_ReadWrite(t *testing.T) {
	mon := newTestMonitor()

	if out := mon.exec("w32 0x1000 0xdeadbeef p"); out != "ok" {
		t.Fatalf("w32 = %q", out)
	}
	if out := mon.exec("r32 0x1000 p"); !strings.Contains(out, "deadbeef") {
		t.Errorf("r32 = %q, want deadbeef in it", out)
	}
	if out := mon.exec("r8 0x1000 p"); !strings.Contains(out, "de") {
		t.Errorf("r8 = %q", out)
	}
	if out := mon.exec("r32 0xa0000000 p"); !strings.Contains(out, "unmapped") {
		t.Errorf("r32 unmapped = %q", out)
	}
	if out := mon.exec("r32 zzz"); !strings.Contains(out, "bad number") {
		t.Errorf("r32 with junk = %q", out)
	}
}

func TestMonitor_Translate(t *testing.T) {
	mon := newTestMonitor()
	mon.sys.PPC.MSR |= 1 << 4 // data translation on

	if out := mon.exec("xlate 0x80001000"); !strings.Contains(out, "00001000") {
		t.Errorf("xlate = %q", out)
	}
	if out := mon.exec("xlate 0x30000000"); !strings.Contains(out, "no translation") {
		t.Errorf("xlate unmapped = %q", out)
	}
}

func TestMonitor_BATsAndDump(t *testing.T) {
	mon := newTestMonitor()

	out := mon.exec("bats")
	if !strings.Contains(out, "DBAT0") || !strings.Contains(out, "80000000") {
		t.Errorf("bats = %q", out)
	}
	if out := mon.exec("dump"); !strings.Contains(out, "PagetableBase") {
		t.Errorf("dump = %q", out)
	}
}

func TestMonitor_Watchpoints(t *testing.T) {
	mon := newTestMonitor()

	if out := mon.exec("watch 0x80001000 4 w"); !strings.Contains(out, "watching") {
		t.Fatalf("watch = %q", out)
	}
	if !mon.sys.MMU.MemChecks().HasAny() {
		t.Error("watch did not register a memcheck")
	}
	mon.exec("unwatch")
	if mon.sys.MMU.MemChecks().HasAny() {
		t.Error("unwatch left memchecks behind")
	}
}

func TestMonitor_Step(t *testing.T) {
	mon := newTestMonitor()

	out := mon.exec("step 2")
	if !strings.Contains(out, "stepped 2") {
		t.Errorf("step = %q", out)
	}
	if mon.sys.PPC.PC != 8 {
		t.Errorf("PC = %08x after two untranslated steps", mon.sys.PPC.PC)
	}
}

func TestMonitor_SaveLoad(t *testing.T) {
	mon := newTestMonitor()
	path := filepath.Join(t.TempDir(), "mon.gks")

	mon.sys.PPC.GPR[1] = 0x1234
	if out := mon.exec("save " + path); !strings.Contains(out, "saved") {
		t.Fatalf("save = %q", out)
	}
	mon.sys.PPC.GPR[1] = 0
	if out := mon.exec("load " + path); !strings.Contains(out, "loaded") {
		t.Fatalf("load = %q", out)
	}
	if mon.sys.PPC.GPR[1] != 0x1234 {
		t.Error("register not restored through the monitor")
	}
}

func TestMonitor_UnknownCommand(t *testing.T) {
	mon := newTestMonitor()
	if out := mon.exec("frobnicate"); !strings.Contains(out, "unknown command") {
		t.Errorf("unknown command = %q", out)
	}
	if out := mon.exec("   "); out != "" {
		t.Errorf("blank line = %q", out)
	}
}
