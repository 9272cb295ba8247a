package logger

import (
	"io"
	"log"
	"os"
)

func New(path string) *log.Logger {
	if len(path) == 0 {
		return log.New(os.Stdout, "GEKKO ", log.Ldate|log.Ltime|log.Lshortfile)
	} else {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
		if err != nil {
			log.Fatal(err)
		}
		l := log.New(f, "GEKKO ", log.Ldate|log.Ltime|log.Lshortfile)
		l.Printf("Initializing gekko.log")
		return l
	}
}

// NewSilent returns a logger that discards everything. Used by tests
// that exercise fault paths on purpose.
func NewSilent() *log.Logger {
	return log.New(io.Discard, "", 0)
}
