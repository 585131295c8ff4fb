package pvpchess

import (
    "errors"
    "testing"
    "time"
)

func TestGameParityAndReplay(t *testing.T) {
    g := NewGame("alice", "bob", "#c", time.Now())
    moves := []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5"}
    for i, mv := range moves {
        want := "alice"
        if i%2 == 1 { want = "bob" }
        if g.Who() != want { t.Fatalf("ply %d: who=%s want %s", i, g.Who(), want) }
        if _, err := g.Push(mv); err != nil { t.Fatalf("push %s: %v", mv, err) }
    }
    r, err := Replay("alice", "bob", "#c", g.History(), time.Now())
    if err != nil { t.Fatalf("replay: %v", err) }
    if r.FEN() != g.FEN() { t.Fatalf("replay FEN %q != %q", r.FEN(), g.FEN()) }
    if r.Who() != "bob" { t.Fatalf("replayed turn=%s", r.Who()) }
    if g.Other("alice") != "bob" || g.Other("bob") != "alice" { t.Fatalf("other mismatch") }
}

func TestGamePopRestoresPosition(t *testing.T) {
    g := NewGame("alice", "bob", "#c", time.Now())
    _, _ = g.Push("d2d4")
    before := g.FEN()
    _, _ = g.Push("d7d5")
    n, err := g.Pop(1)
    if err != nil || n != 1 { t.Fatalf("pop: n=%d err=%v", n, err) }
    if g.FEN() != before { t.Fatalf("pop did not restore FEN") }
    if n, _ := g.Pop(5); n != 1 { t.Fatalf("pop is capped by history, got %d", n) }
    if _, err := g.Pop(1); !errors.Is(err, ErrNothingToUndo) { t.Fatalf("want ErrNothingToUndo, got %v", err) }
}

func TestGameRejectsIllegal(t *testing.T) {
    g := NewGame("alice", "bob", "#c", time.Now())
    for _, mv := range []string{"", "e2e5", "zz", "Ke2"} {
        if _, err := g.Push(mv); !errors.Is(err, ErrIllegalMove) {
            t.Fatalf("%q: want ErrIllegalMove, got %v", mv, err)
        }
    }
    if g.Len() != 0 { t.Fatalf("history must be untouched") }
    if len(g.LegalMoves()) != 20 { t.Fatalf("start position has 20 moves, got %d", len(g.LegalMoves())) }
    if _, err := Replay("a", "b", "#c", []string{"e2e4", "e2e4"}, time.Now()); err == nil {
        t.Fatalf("invalid history must not replay")
    }
}

func TestGameResultStalemate(t *testing.T) {
    // Shortest known stalemate (Sam Loyd, 10 moves).
    moves := []string{
        "e2e3", "a7a5", "d1h5", "a8a6", "h5a5", "h7h5", "h2h4", "a6h6",
        "a5c7", "f7f6", "c7d7", "e8f7", "d7b7", "d8d3", "b7b8", "d3h7",
        "b8c8", "f7g6", "c8e6",
    }
    g, err := Replay("alice", "bob", "#c", moves, time.Now())
    if err != nil { t.Fatalf("replay: %v", err) }
    if res, method := g.Result(); res != ResultStalemate {
        t.Fatalf("want stalemate, got %s (%s)", res, method)
    }
}
