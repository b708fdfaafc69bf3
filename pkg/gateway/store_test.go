package gateway

import "testing"

func TestMemoryResumeStore(t *testing.T) {
	store := NewMemoryResumeStore()

	if _, ok := store.Load(0); ok {
		t.Fatal("Load on an empty store reported ok")
	}

	rs0 := ResumeState{SessionID: "s0", Sequence: 10, GatewayURL: "wss://a.test"}
	rs1 := ResumeState{SessionID: "s1", Sequence: 99, GatewayURL: "wss://b.test"}
	if err := store.Save(0, rs0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(1, rs1); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok := store.Load(0)
	if !ok || got != rs0 {
		t.Fatalf("Load(0) = %+v, %v", got, ok)
	}
	got, ok = store.Load(1)
	if !ok || got != rs1 {
		t.Fatalf("Load(1) = %+v, %v", got, ok)
	}

	// Clearing one shard leaves the others alone.
	if err := store.Clear(0); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := store.Load(0); ok {
		t.Fatal("Load(0) ok after Clear")
	}
	if _, ok := store.Load(1); !ok {
		t.Fatal("Clear(0) wiped shard 1")
	}

	// Clearing an absent shard is not an error.
	if err := store.Clear(7); err != nil {
		t.Fatalf("Clear(7) = %v", err)
	}

	// Saving again overwrites.
	rs0b := ResumeState{SessionID: "s0b", Sequence: 11}
	if err := store.Save(0, rs0b); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ = store.Load(0)
	if got != rs0b {
		t.Fatalf("Load after overwrite = %+v", got)
	}
}
