package ppc

import (
	"testing"
)

func TestMSRBits(t *testing.T) {
	tests := []struct {
		name string
		msr  MSR
		dr   bool
		ir   bool
	}{
		{"all off", 0, false, false},
		{"data translation only", MSRDR, true, false},
		{"instruction translation only", MSRIR, false, true},
		{"both on", MSRDR | MSRIR, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msr.DR(); got != tt.dr {
				t.Errorf("MSR.DR() = %v, want %v", got, tt.dr)
			}
			if got := tt.msr.IR(); got != tt.ir {
				t.Errorf("MSR.IR() = %v, want %v", got, tt.ir)
			}
		})
	}
}

func TestResetTLB(t *testing.T) {
	s := New()
	s.TLB[0][5].Tag[0] = 0x12345
	s.TLB[1][63].Tag[1] = 0x54321
	s.ResetTLB()

	for side := range s.TLB {
		for set := range s.TLB[side] {
			for way := 0; way < TLBWays; way++ {
				if s.TLB[side][set].Tag[way] != TLBInvalidTag {
					t.Fatalf("TLB[%d][%d] way %d not invalidated", side, set, way)
				}
			}
		}
	}
}

func TestExtendedBATs(t *testing.T) {
	s := New()
	if s.ExtendedBATs() {
		t.Error("extended BATs reported enabled on reset state")
	}
	s.SPR[SPRHID4] |= HID4SBE
	if !s.ExtendedBATs() {
		t.Error("HID4[SBE] set but extended BATs reported disabled")
	}
}
