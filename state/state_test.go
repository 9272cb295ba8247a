package state

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestSerializer_RoundTrip(t *testing.T) {
	type payload struct {
		A uint32
		B uint64
		C [4]uint16
	}
	in := payload{A: 0xDEADBEEF, B: 0x0102030405060708, C: [4]uint16{1, 2, 3, 4}}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Do(&in)
	w.DoBytes([]byte{9, 8, 7})
	if w.Err() != nil {
		t.Fatalf("write error: %v", w.Err())
	}

	var out payload
	tail := make([]byte, 3)
	r := NewReader(&buf)
	r.Do(&out)
	r.DoBytes(tail)
	if r.Err() != nil {
		t.Fatalf("read error: %v", r.Err())
	}
	if out != in {
		t.Errorf("round trip: got %+v, want %+v", out, in)
	}
	if tail[0] != 9 || tail[2] != 7 {
		t.Errorf("DoBytes round trip: got %v", tail)
	}
}

func TestSerializer_ErrorSticks(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	var v uint32
	r.Do(&v)
	if r.Err() == nil {
		t.Fatal("read from empty stream did not error")
	}
	first := r.Err()

	v = 7
	r.Do(&v)
	if v != 7 {
		t.Error("Do() after an error modified its argument")
	}
	if r.Err() != first {
		t.Error("later error replaced the first one")
	}
}

func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gks")

	values := []uint32{10, 20, 30}
	err := SaveFile(path, func(s *Serializer) {
		for i := range values {
			s.Do(&values[i])
		}
	})
	if err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	got := make([]uint32, 3)
	err = LoadFile(path, func(s *Serializer) {
		for i := range got {
			s.Do(&got[i])
		}
	})
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	for i := range values {
		if got[i] != values[i] {
			t.Errorf("value %d = %d, want %d", i, got[i], values[i])
		}
	}
}

func TestLoadFile_RejectsBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.gks")
	if err := os.WriteFile(path, []byte("not a save state at all"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadFile(path, func(s *Serializer) {}); err == nil {
		t.Error("LoadFile() accepted a file without the magic header")
	}
}
