package state

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Save states: a small header (magic + version), then a gzip stream of
// raw little endian fields written in a fixed order. Components expose
// a DoState(*Serializer) that both saves and restores, so the field
// order can never diverge between the two directions.
const (
	magic   = "GKSV"
	version = uint32(1)
)

// Mode tells a DoState implementation which way the data flows.
type Mode int

const (
	// Write - serializing live state out
	Write Mode = iota

	// Read - restoring state from a stream
	Read
)

// Serializer moves fixed size values to or from a stream. The first
// error sticks; callers check Err once at the end instead of on every
// field.
type Serializer struct {
	mode Mode
	r    io.Reader
	w    io.Writer
	err  error
}

// NewWriter returns a serializer writing to w
func NewWriter(w io.Writer) *Serializer {
	return &Serializer{mode: Write, w: w}
}

// NewReader returns a serializer reading from r
func NewReader(r io.Reader) *Serializer {
	return &Serializer{mode: Read, r: r}
}

// Mode returns the data flow direction
func (s *Serializer) Mode() Mode {
	return s.mode
}

// Err returns the first error encountered
func (s *Serializer) Err() error {
	return s.err
}

// Do moves one fixed size value. v must be a pointer to a fixed size
// type in the encoding/binary sense.
func (s *Serializer) Do(v any) {
	if s.err != nil {
		return
	}
	if s.mode == Write {
		s.err = binary.Write(s.w, binary.LittleEndian, v)
	} else {
		s.err = binary.Read(s.r, binary.LittleEndian, v)
	}
}

// DoBytes moves a raw byte slice of fixed length. A nil slice is a
// valid zero length region and is skipped.
func (s *Serializer) DoBytes(b []byte) {
	if s.err != nil || len(b) == 0 {
		return
	}
	if s.mode == Write {
		_, s.err = s.w.Write(b)
	} else {
		_, s.err = io.ReadFull(s.r, b)
	}
}

// SaveFile writes a state file at path, calling save with a write-mode
// serializer over the compressed payload.
func SaveFile(path string, save func(*Serializer)) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write([]byte(magic)); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, version); err != nil {
		return err
	}

	zw := gzip.NewWriter(f)
	s := NewWriter(zw)
	save(s)
	if s.Err() != nil {
		zw.Close()
		return s.Err()
	}
	return zw.Close()
}

// LoadFile reads a state file at path, calling load with a read-mode
// serializer over the decompressed payload.
func LoadFile(path string, load func(*Serializer)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hdr := make([]byte, len(magic))
	if _, err := io.ReadFull(f, hdr); err != nil {
		return err
	}
	if string(hdr) != magic {
		return fmt.Errorf("state: %s is not a save state", path)
	}
	var v uint32
	if err := binary.Read(f, binary.LittleEndian, &v); err != nil {
		return err
	}
	if v != version {
		return fmt.Errorf("state: unsupported save state version %d", v)
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()

	s := NewReader(zr)
	load(s)
	return s.Err()
}
