package console

// Console is the status output surface of the emulator. Other parts
// of the system log human readable progress through it, the monitor
// prints command results to it.
type Console interface {
	WriteConsole(msg string) error
}
