package chessdto

import "testing"

func TestOngoingGamesSymmetricLookup(t *testing.T) {
	d := OngoingGames{}
	d.Put("alice", "bob", "#c", []string{"e2e4"})

	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		mv, owner, ok := d.Lookup(pair[0], pair[1], "#c")
		if !ok || owner != "alice" || len(mv) != 1 {
			t.Fatalf("lookup %v: moves=%v owner=%q ok=%v", pair, mv, owner, ok)
		}
	}

	// Updating with reversed names keeps the original orientation.
	d.Put("bob", "alice", "#c", []string{"e2e4", "e7e5"})
	if _, ok := d["bob"]; ok {
		t.Fatalf("reversed put must not create a second entry: %v", d)
	}
	if got := d["alice"]["#c"]["bob"]; len(got) != 2 {
		t.Fatalf("expected updated history, got %v", got)
	}
	if d.Count() != 1 {
		t.Fatalf("count=%d want 1", d.Count())
	}
}

func TestOngoingGamesDeletePrunes(t *testing.T) {
	d := OngoingGames{}
	d.Put("alice", "bob", "#c", nil)
	d.Put("alice", "carol", "#d", nil)

	if !d.Delete("bob", "alice", "#c") {
		t.Fatalf("delete by reversed names should succeed")
	}
	if _, ok := d["alice"]["#c"]; ok {
		t.Fatalf("empty channel map should be pruned")
	}
	if d.Delete("bob", "alice", "#c") {
		t.Fatalf("second delete must report false")
	}
	d.Delete("alice", "carol", "#d")
	if len(d) != 0 {
		t.Fatalf("expected empty document, got %v", d)
	}
}
