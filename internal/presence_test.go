package internal

import "testing"

func TestPresenceRegisterAndSnapshot(t *testing.T) {
	table := NewPresenceTable()

	table.Register("conn-1", "alice")
	table.Register("conn-2", "bob")

	snapshot := table.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(snapshot))
	}
	if snapshot[0].Username != "alice" || snapshot[1].Username != "bob" {
		t.Errorf("snapshot should keep join order, got %s then %s", snapshot[0].Username, snapshot[1].Username)
	}
}

func TestPresenceFallbackName(t *testing.T) {
	table := NewPresenceTable()

	participant := table.Register("abcdef12", "   ")
	if participant.Username != "User_abcd" {
		t.Errorf("expected fallback name User_abcd, got %s", participant.Username)
	}

	short := table.Register("ab", "")
	if short.Username != "User_ab" {
		t.Errorf("expected fallback name User_ab, got %s", short.Username)
	}
}

func TestPresenceReregisterKeepsPosition(t *testing.T) {
	table := NewPresenceTable()
	table.Register("conn-1", "alice")
	table.Register("conn-2", "bob")

	// a second join on the same connection renames in place
	table.Register("conn-1", "alicia")

	snapshot := table.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(snapshot))
	}
	if snapshot[0].Username != "alicia" {
		t.Errorf("expected renamed participant first, got %s", snapshot[0].Username)
	}
}

func TestPresenceRemove(t *testing.T) {
	table := NewPresenceTable()
	table.Register("conn-1", "alice")

	participant, ok := table.Remove("conn-1")
	if !ok {
		t.Fatal("expected removal of registered participant")
	}
	if participant.Username != "alice" {
		t.Errorf("expected removed participant alice, got %s", participant.Username)
	}
	if table.Len() != 0 {
		t.Errorf("expected empty table, got %d", table.Len())
	}

	if _, ok := table.Remove("conn-1"); ok {
		t.Error("second removal should report absence")
	}
}

func TestPresenceSnapshotIsCopy(t *testing.T) {
	table := NewPresenceTable()
	table.Register("conn-1", "alice")

	snapshot := table.Snapshot()
	snapshot[0].Username = "mallory"

	fresh := table.Snapshot()
	if fresh[0].Username != "alice" {
		t.Error("mutating a snapshot should not affect the table")
	}
}
