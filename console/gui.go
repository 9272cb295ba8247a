package console

import (
	"fmt"
	"strings"

	"github.com/jroimartin/gocui"
)

// Gui renders console output into a gocui view. Updates are pushed
// through a channel so any goroutine can write; the gocui update loop
// does the actual drawing.
type Gui struct {
	consoleOut  chan string
	g           *gocui.Gui
	v           *gocui.View
	currentLine int
}

// NewGui returns a console bound to the named gocui view
func NewGui(g *gocui.Gui, viewName string) *Gui {
	c := new(Gui)
	c.consoleOut = make(chan string)
	c.g = g
	c.v, _ = g.View(viewName)
	c.initGui()
	return c
}

func (c *Gui) initGui() {
	go func() {
		for {
			s := <-c.consoleOut
			c.g.Update(func(g *gocui.Gui) error {
				fmt.Fprintf(c.v, "%s", s)
				return nil
			})
		}
	}()
}

// WriteConsole displays a string on the console
func (c *Gui) WriteConsole(msg string) error {
	for _, line := range strings.Split(msg, "\n") {
		if line != "" {
			c.consoleOut <- line + "\n"
			c.v.MoveCursor(0, 1, true)
			c.currentLine++
		}
	}
	return nil
}
