package address

import "testing"

func TestParseLeftPads(t *testing.T) {
	a, err := Parse("0xAA")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Address{}
	want[Size-1] = 0xAA
	if a != want {
		t.Fatalf("got %s want %s", a, want)
	}
}

func TestParseNoPrefix(t *testing.T) {
	a, err := Parse("bb")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if a[Size-1] != 0xBB {
		t.Fatalf("got %s", a)
	}
}

func TestParseTooLong(t *testing.T) {
	long := make([]byte, 66)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := Parse("0x" + string(long)); err != ErrTooLong {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestStringRoundTrip(t *testing.T) {
	a, _ := Parse("0x" + "11223344556677889900aabbccddeeff11223344556677889900aabbccddee")
	b, err := Parse(a.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if a != b {
		t.Fatalf("round trip mismatch: %s != %s", a, b)
	}
}

func TestLess(t *testing.T) {
	a, _ := FromBytes([]byte{0x01})
	b, _ := FromBytes([]byte{0x02})
	if !Less(a, b) || Less(b, a) {
		t.Fatalf("Less ordering broken")
	}
}

func TestIsZero(t *testing.T) {
	if !Zero.IsZero() {
		t.Fatalf("Zero should report IsZero")
	}
	a, _ := FromBytes([]byte{0x01})
	if a.IsZero() {
		t.Fatalf("non-zero address reported as zero")
	}
}
