package internal

import (
	"fmt"
	"testing"
)

func TestChatLogAppendAndReplay(t *testing.T) {
	log := NewChatLog(10)

	log.Append(newChatMessage("u1", "alice", "first"))
	log.Append(newChatMessage("u2", "bob", "second"))

	replay := log.Replay()
	if len(replay) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(replay))
	}
	if replay[0].Body != "first" || replay[1].Body != "second" {
		t.Errorf("replay should be oldest first, got %q then %q", replay[0].Body, replay[1].Body)
	}
}

func TestChatLogEvictsOldest(t *testing.T) {
	log := NewChatLog(3)

	for i := 0; i < 5; i++ {
		log.Append(newChatMessage("u1", "alice", fmt.Sprintf("msg-%d", i)))
	}

	replay := log.Replay()
	if len(replay) != 3 {
		t.Fatalf("expected log capped at 3, got %d", len(replay))
	}
	if replay[0].Body != "msg-2" {
		t.Errorf("expected oldest surviving message msg-2, got %q", replay[0].Body)
	}
	if replay[2].Body != "msg-4" {
		t.Errorf("expected newest message msg-4, got %q", replay[2].Body)
	}
}

func TestChatLogReplayIsCopy(t *testing.T) {
	log := NewChatLog(10)
	log.Append(newChatMessage("u1", "alice", "original"))

	replay := log.Replay()
	replay[0].Body = "tampered"

	if log.Replay()[0].Body != "original" {
		t.Error("mutating a replay should not affect the log")
	}
}

func TestChatMessageIDsDiffer(t *testing.T) {
	a := newChatMessage("u1", "alice", "hi")
	b := newChatMessage("u1", "alice", "hi")
	if a.ID == b.ID {
		t.Errorf("expected distinct message ids, both were %s", a.ID)
	}
}
