package console

import (
	"io"
	"os"
	"strings"
)

// Simple writes console output straight to a writer. Used in headless
// mode and in tests.
type Simple struct {
	out         io.Writer
	currentLine int
}

// NewSimple returns a console printing to stdout
func NewSimple() *Simple {
	return &Simple{out: os.Stdout}
}

// NewSimpleWriter returns a console printing to w
func NewSimpleWriter(w io.Writer) *Simple {
	return &Simple{out: w}
}

// WriteConsole displays a string on the console
func (c *Simple) WriteConsole(msg string) error {
	for _, line := range strings.Split(msg, "\n") {
		if line != "" {
			if _, err := io.WriteString(c.out, line+"\n"); err != nil {
				return err
			}
			c.currentLine++
		}
	}
	return nil
}
