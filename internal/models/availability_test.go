package models

import (
	"testing"
)

func TestMapAvailabilityBucket(t *testing.T) {
	cases := []struct {
		raw  string
		want AvailabilityState
	}{
		{"1H-high", AvailabilityAvailable},
		{"low", AvailabilityAvailable},
		{"unavailable", AvailabilityUnavailable},
		{"UNAVAILABLE", AvailabilityUnavailable},
		{"", AvailabilityUnavailable},
		{"unknown", AvailabilityUnknown},
	}
	for _, c := range cases {
		if got := MapAvailabilityBucket(c.raw); got != c.want {
			t.Errorf("MapAvailabilityBucket(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestFingerprintIsOrderIndependent(t *testing.T) {
	a := Fingerprint([]string{"ram-64g", "raid-1"})
	b := Fingerprint([]string{"raid-1", "ram-64g"})
	if a != b {
		t.Fatalf("fingerprints differ for reordered options: %s vs %s", a, b)
	}
}

func TestFingerprintDiffersForDifferentOptions(t *testing.T) {
	a := Fingerprint([]string{"ram-64g"})
	b := Fingerprint([]string{"ram-128g"})
	if a == b {
		t.Fatal("expected distinct fingerprints for distinct option sets")
	}
}

func TestFingerprintDoesNotMutateInput(t *testing.T) {
	options := []string{"z-opt", "a-opt"}
	_ = Fingerprint(options)
	if options[0] != "z-opt" || options[1] != "a-opt" {
		t.Fatal("Fingerprint must not sort the caller's slice in place")
	}
}
