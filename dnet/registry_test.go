package dnet

import (
	"errors"
	"testing"
)

func nop(*Response) {}

func TestRegistry_RegisterRejectsBadInput(t *testing.T) {
	reg := NewRegistry(NewIDGenerator(nil), nil)

	tests := []struct {
		name    string
		action  string
		handler HandlerFunc
		wantErr error
	}{
		{"empty action", "", nop, ErrEmptyAction},
		{"nil handler", "ping", nil, ErrNilHandler},
		{"valid", "ping", nop, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Register(tt.action, tt.handler, Persistent, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistry_PersistentIgnoresAsyncID(t *testing.T) {
	reg := NewRegistry(NewIDGenerator(nil), nil)
	_ = reg.Register("ping", nop, Persistent, "id-1")
	if got := reg.snapshot()[0].asyncID; got != "" {
		t.Errorf("persistent entry kept asyncID %q", got)
	}
}

func TestRegistry_RemoveAllResetsIDs(t *testing.T) {
	ids := NewIDGenerator(nil)
	reg := NewRegistry(ids, nil)
	id := ids.Generate()
	_ = reg.Register("a", nop, Persistent, "")
	_ = reg.Register("b", nop, OneShot, id)

	reg.RemoveAll()

	if reg.Len() != 0 {
		t.Errorf("Len() = %d after RemoveAll", reg.Len())
	}
	if ids.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d after RemoveAll", ids.Outstanding())
	}
}

func TestRegistry_Forget(t *testing.T) {
	ids := NewIDGenerator(nil)
	reg := NewRegistry(ids, nil)
	id := ids.Generate()
	_ = reg.Register("a", nop, OneShot, id)
	_ = reg.Register("a", nop, Persistent, "")

	if !reg.Forget(id) {
		t.Fatal("Forget() = false, want true")
	}
	if reg.Forget(id) {
		t.Error("second Forget() = true, want false")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
	if ids.Outstanding() != 0 {
		t.Errorf("id still outstanding after Forget")
	}
}

func TestRegistry_DropMatchesEntryNotID(t *testing.T) {
	ids := NewIDGenerator(func() string { return "same" })
	reg := NewRegistry(ids, nil)
	stale, _ := reg.add("a", nop, OneShot, ids.Generate())
	reg.RemoveAll()
	live, _ := reg.add("a", nop, OneShot, ids.Generate())

	if reg.drop(stale) {
		t.Fatal("drop() of a removed entry = true")
	}
	if reg.Len() != 1 || ids.Outstanding() != 1 {
		t.Fatalf("Len=%d outstanding=%d, want 1 and 1", reg.Len(), ids.Outstanding())
	}
	if !reg.drop(live) {
		t.Fatal("drop() of the live entry = false")
	}
	if reg.Len() != 0 || ids.Outstanding() != 0 {
		t.Errorf("Len=%d outstanding=%d, want 0 and 0", reg.Len(), ids.Outstanding())
	}
}

func TestRegistry_RemoveIsOnce(t *testing.T) {
	reg := NewRegistry(NewIDGenerator(nil), nil)
	_ = reg.Register("a", nop, OneShot, "x")
	e := reg.snapshot()[0]

	if !reg.remove(e) {
		t.Fatal("first remove() = false")
	}
	if reg.remove(e) {
		t.Fatal("second remove() = true")
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
	reg.compact()
	if len(reg.entries) != 0 {
		t.Errorf("compact left %d entries", len(reg.entries))
	}
}
