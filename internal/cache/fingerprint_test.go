package cache

import "testing"

func TestFingerprint_OrderIndependent(t *testing.T) {
	t.Parallel()

	a := Fingerprint(map[string]any{"status": "passed", "limit": 100})
	b := Fingerprint(map[string]any{"limit": 100, "status": "passed"})
	if a != b {
		t.Errorf("order-dependent fingerprints: %q vs %q", a, b)
	}
}

func TestFingerprint_ValueSensitive(t *testing.T) {
	t.Parallel()

	passed := Fingerprint(map[string]any{"status": "passed"})
	failed := Fingerprint(map[string]any{"status": "failed"})
	if passed == failed {
		t.Error("differing filter values produced the same fingerprint")
	}
}

func TestFingerprint_KeySensitive(t *testing.T) {
	t.Parallel()

	a := Fingerprint(map[string]any{"status": "passed"})
	b := Fingerprint(map[string]any{"status": "passed", "limit": 10})
	if a == b {
		t.Error("extra filter key did not change the fingerprint")
	}
}

func TestFingerprint_Empty(t *testing.T) {
	t.Parallel()

	if got := Fingerprint(nil); got != "none" {
		t.Errorf("Fingerprint(nil) = %q, want \"none\"", got)
	}
	if got := Fingerprint(map[string]any{}); got != "none" {
		t.Errorf("Fingerprint(empty) = %q, want \"none\"", got)
	}
}

func TestFingerprint_Stable(t *testing.T) {
	t.Parallel()

	filters := map[string]any{"search": "login", "severity": "critical", "limit": 50}
	first := Fingerprint(filters)
	for range 10 {
		if got := Fingerprint(filters); got != first {
			t.Fatalf("unstable fingerprint: %q vs %q", got, first)
		}
	}
}
