package xid

import (
	"strings"
	"testing"
)

func TestSequentialPadding(t *testing.T) {
	cases := map[string]string{
		Sequential("ORD", 7, 3):    "ORD-007",
		Sequential("ORD", 1234, 3): "ORD-1234",
		Sequential("CUST", 3, 0):   "CUST-3",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}

func TestSuffix(t *testing.T) {
	n, digits, ok := Suffix("RTN-1714563200123", "RTN")
	if !ok || n != 1714563200123 || digits != "1714563200123" {
		t.Fatalf("unexpected suffix parse: %d %q %t", n, digits, ok)
	}
	if _, _, ok := Suffix("PO-001", "RTN"); ok {
		t.Fatalf("expected prefix mismatch to fail")
	}
	if _, _, ok := Suffix("RTN-abc", "RTN"); ok {
		t.Fatalf("expected non-numeric suffix to fail")
	}
}

func TestNewCarriesPrefix(t *testing.T) {
	if id := New("act"); !strings.HasPrefix(id, "act-") {
		t.Fatalf("expected act- prefix, got %s", id)
	}
}
