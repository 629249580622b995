package security

import "testing"

func TestAllowList(t *testing.T) {
	al := NewAllowList([]string{" 1001 ", "@Alice", "", "alice"})

	if al.Empty() {
		t.Fatalf("expected non-empty allow list")
	}
	if !al.Allows(1001, "") {
		t.Fatalf("expected id 1001 to be allowed")
	}
	if !al.Allows(7, "ALICE") {
		t.Fatalf("expected username match to be case-insensitive")
	}
	if al.Allows(7, "bob") {
		t.Fatalf("expected bob to be rejected")
	}
	if al.Allows(7, "") {
		t.Fatalf("expected unknown id without username to be rejected")
	}
}

func TestEmptyAllowListAllowsEveryone(t *testing.T) {
	var nilList *AllowList
	if !nilList.Allows(1, "x") {
		t.Fatalf("nil allow list should allow everyone")
	}
	if !NewAllowList(nil).Allows(1, "x") {
		t.Fatalf("empty allow list should allow everyone")
	}
}
