package format

import "testing"

func TestAlign8(t *testing.T) {
	cases := map[int]int{0: 0, 1: 8, 7: 8, 8: 8, 9: 16, 100: 104}
	for in, want := range cases {
		if got := Align8(in); got != want {
			t.Fatalf("Align8(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestAlignDownAndPad(t *testing.T) {
	if got := AlignDown8(1023); got != 1016 {
		t.Fatalf("AlignDown8(1023) = %d", got)
	}
	if got := AlignPad(0x1000); got != 0 {
		t.Fatalf("AlignPad(0x1000) = %d", got)
	}
	if got := AlignPad(0x1003); got != 5 {
		t.Fatalf("AlignPad(0x1003) = %d", got)
	}
	if !IsAligned(16) || IsAligned(12) {
		t.Fatalf("IsAligned mismatch")
	}
}
