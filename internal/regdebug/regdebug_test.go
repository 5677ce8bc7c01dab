package regdebug

import "testing"

func TestParseRangesEmptyAllowsNothing(t *testing.T) {
	rs, err := ParseRanges("")
	if err != nil {
		t.Fatalf("ParseRanges: %v", err)
	}
	if rs.Allows(0x00) || rs.Allows(0xFF) {
		t.Fatal("empty spec should allow nothing")
	}
}

func TestParseRangesSinglesAndRanges(t *testing.T) {
	rs, err := ParseRanges("0x1B-0x1D,0x6B")
	if err != nil {
		t.Fatalf("ParseRanges: %v", err)
	}
	for _, addr := range []byte{0x1B, 0x1C, 0x1D, 0x6B} {
		if !rs.Allows(addr) {
			t.Errorf("expected 0x%02X to be allowed", addr)
		}
	}
	for _, addr := range []byte{0x1A, 0x1E, 0x6A, 0x6C} {
		if rs.Allows(addr) {
			t.Errorf("expected 0x%02X NOT to be allowed", addr)
		}
	}
}

func TestParseRangesReversedBounds(t *testing.T) {
	rs, err := ParseRanges("0x1D-0x1B")
	if err != nil {
		t.Fatalf("ParseRanges: %v", err)
	}
	if !rs.Allows(0x1C) {
		t.Fatal("reversed bounds should still normalize into an allowed range")
	}
}

func TestParseRangesWhitespaceTolerant(t *testing.T) {
	rs, err := ParseRanges(" 0x1B - 0x1D , 0x6B ")
	if err != nil {
		t.Fatalf("ParseRanges: %v", err)
	}
	if !rs.Allows(0x1C) || !rs.Allows(0x6B) {
		t.Fatal("whitespace-padded spec should parse the same as trimmed")
	}
}

func TestParseRangesInvalidHex(t *testing.T) {
	if _, err := ParseRanges("0xZZ"); err == nil {
		t.Fatal("expected error for invalid hex byte")
	}
}

func TestParseRangesInvalidRangeFormat(t *testing.T) {
	if _, err := ParseRanges("0x1B-0x1C-0x1D"); err == nil {
		t.Fatal("expected error for malformed range with two dashes")
	}
}

func TestParseRangesLowercaseAndNoPrefix(t *testing.T) {
	rs, err := ParseRanges("1b-1d,6b")
	if err != nil {
		t.Fatalf("ParseRanges: %v", err)
	}
	if !rs.Allows(0x1C) || !rs.Allows(0x6B) {
		t.Fatal("hex without 0x prefix should parse the same")
	}
}
