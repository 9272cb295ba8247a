package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"log"

	"github.com/jroimartin/gocui"

	"gekko/console"
	"gekko/logger"
	"gekko/system"
)

var (
	headless = flag.Bool("headless", false, "run without the terminal UI")
	fullMMU  = flag.Bool("mmu", false, "emulate the full hashed page table")
	exram    = flag.Bool("exram", false, "attach the 64 MB extended memory")
	debug    = flag.Bool("debug", false, "log exception redirects")
	logPath  = flag.String("logfile", "gekko.log", "log file path")
	image    = flag.String("image", "", "raw binary to load at physical 0")
	snapshot = flag.String("state", "", "state snapshot to restore at startup")
)

func main() {
	flag.Parse()

	l := logger.New(*logPath)

	if *headless {
		runHeadless(l)
		return
	}

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		log.Panicln("Couldn't create gui!")
	}
	defer g.Close()

	g.SetManagerFunc(layout)

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		log.Panicln(err)
	}

	// start emulation
	g.Update(func(g *gocui.Gui) error {
		return startGekko(g, l)
	})

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		log.Panicln(err)
	}
}

func systemConfig() system.Config {
	return system.Config{
		EXRAM:     *exram,
		MMU:       *fullMMU,
		DebugMode: *debug,
	}
}

func loadStartupFiles(sys *system.System) error {
	if *image != "" {
		data, err := os.ReadFile(*image)
		if err != nil {
			return err
		}
		if err := sys.LoadImage(data, 0); err != nil {
			return err
		}
	}
	if *snapshot != "" {
		return sys.LoadState(*snapshot)
	}
	return nil
}

// runHeadless drives the monitor from stdin, one command per line
func runHeadless(l *log.Logger) {
	cons := console.NewSimple()
	sys := system.InitializeSystem(cons, systemConfig(), l)
	if err := loadStartupFiles(sys); err != nil {
		fmt.Fprintf(os.Stderr, "startup: %v\n", err)
		os.Exit(1)
	}
	mon := newMonitor(sys)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()
		if line == "quit" || line == "exit" {
			break
		}
		if out := mon.exec(line); out != "" {
			fmt.Println(out)
		}
		fmt.Print("> ")
	}
	sys.Stop()
}

// startGekko wires the emulator to the UI views
func startGekko(g *gocui.Gui, l *log.Logger) error {
	statusView, err := g.View("status")
	if err != nil {
		return err
	}
	statusView.Clear()
	fmt.Fprintf(statusView, "Starting Gekko MMU emulator..\n")

	cons := console.NewGui(g, "console")
	sys := system.InitializeSystem(cons, systemConfig(), l)
	if err := loadStartupFiles(sys); err != nil {
		return err
	}
	mon := newMonitor(sys)

	if err := g.SetKeybinding("command", gocui.KeyEnter, gocui.ModNone,
		func(g *gocui.Gui, v *gocui.View) error {
			line := strings.TrimSpace(v.Buffer())
			v.Clear()
			if err := v.SetCursor(0, 0); err != nil {
				return err
			}
			if line == "" {
				return nil
			}
			if line == "quit" || line == "exit" {
				return gocui.ErrQuit
			}
			_ = cons.WriteConsole("> " + line + "\n")
			if out := mon.exec(line); out != "" {
				_ = cons.WriteConsole(out + "\n")
			}
			return nil
		}); err != nil {
		return err
	}
	if _, err := g.SetCurrentView("command"); err != nil {
		return err
	}

	updateRegisters(sys, g)
	return nil
}

// update registers display
// has to be run in go routine -> gocui allows updating the view only through Execute function
func updateRegisters(sys *system.System, g *gocui.Gui) {
	ticker := time.NewTicker(time.Second * 1)

	go func() {
		for range ticker.C {
			g.Update(func(g *gocui.Gui) error {
				v, err := g.View("registers")
				if err != nil {
					return err
				}
				v.Clear()
				sys.PPC.DumpRegisters(v)
				return nil
			})
		}
	}()
}

// gocui layout
func layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// up -> console
	if v, err := g.SetView("console", 0, 0, maxX-1, maxY-14); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Console"
		v.Autoscroll = true
	}

	// middle -> register values
	if v, err := g.SetView("registers", 0, maxY-13, maxX-1, maxY-8); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Registers"
		v.Wrap = true
	}

	// status line
	if v, err := g.SetView("status", 0, maxY-7, maxX-1, maxY-4); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
	}

	// down -> command input
	if v, err := g.SetView("command", 0, maxY-3, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Command"
		v.Editable = true
	}
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
