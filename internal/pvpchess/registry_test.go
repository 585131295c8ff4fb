package pvpchess

import (
    "testing"
    "time"
)

func TestRegistrySharedAndSymmetric(t *testing.T) {
    r := NewRegistry()
    now := time.Now()
    ab := NewGame("alice", "bob", "#c", now)
    ac := NewGame("alice", "carol", "#c", now.Add(time.Second))
    r.Add(ab)
    r.Add(ac)

    if r.HasGameWith("bob", "alice", "#c") != ab || r.HasGameWith("alice", "bob", "#c") != ab {
        t.Fatalf("game must be reachable from both players")
    }
    if r.HasGameWith("alice", "bob", "#other") != nil {
        t.Fatalf("games are per channel")
    }
    if r.SelectedGame("alice", "#c") != ac {
        t.Fatalf("newest game should be selected")
    }
    if r.Count() != 2 || len(r.All()) != 2 {
        t.Fatalf("unique count mismatch: %d", r.Count())
    }

    if !r.EndGame("bob", "alice", "#c") {
        t.Fatalf("end should succeed")
    }
    if r.EndGame("alice", "bob", "#c") {
        t.Fatalf("end must be idempotent")
    }
    if r.HasGameWith("alice", "bob", "#c") != nil || len(r.Games("bob", "#c")) != 0 {
        t.Fatalf("game must be gone for both players")
    }
}

func TestRegistrySelectionSurvivesRemoval(t *testing.T) {
    r := NewRegistry()
    now := time.Now()
    g1 := NewGame("alice", "bob", "#c", now)
    g2 := NewGame("alice", "carol", "#c", now)
    g3 := NewGame("alice", "dave", "#c", now)
    r.Add(g1)
    r.Add(g2)
    r.Add(g3)

    if r.SelectGame("alice", "carol", "#c") != g2 {
        t.Fatalf("select carol")
    }
    r.EndGame("alice", "bob", "#c")
    if r.SelectedGame("alice", "#c") != g2 {
        t.Fatalf("removing an earlier game must keep the selection")
    }
    r.EndGame("alice", "carol", "#c")
    if r.SelectedGame("alice", "#c") != g3 {
        t.Fatalf("removing the selected game falls back to the latest")
    }
    if r.SelectGame("alice", "zed", "#c") != nil {
        t.Fatalf("selecting an unknown opponent must return nil")
    }
    if got := r.AllGames("alice"); len(got) != 1 || got[0] != g3 {
        t.Fatalf("AllGames=%v", got)
    }
}
