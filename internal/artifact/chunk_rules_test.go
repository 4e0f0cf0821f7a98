package artifact

import "testing"

func TestCheckSingleImplementing(t *testing.T) {
	if err := CheckSingleImplementing("alpha", ""); err != nil {
		t.Fatalf("no current implementing chunk should allow any target: %v", err)
	}
	if err := CheckSingleImplementing("alpha", "alpha"); err != nil {
		t.Fatalf("target re-entering its own implementing state should be allowed: %v", err)
	}
	if err := CheckSingleImplementing("alpha", "beta"); err == nil {
		t.Fatal("expected error when a different chunk is already implementing")
	}
}
