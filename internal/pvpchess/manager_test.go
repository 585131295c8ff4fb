package pvpchess

import (
    "context"
    "errors"
    "os"
    "path/filepath"
    "sort"
    "testing"
    "time"

    nchess "github.com/corentings/chess/v2"
    "github.com/park285/irc-chessbot/internal/pvp"
    svcchess "github.com/park285/irc-chessbot/internal/service/chess"
)

const botNick = "chessbot"

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// firstLegal answers with the first legal move of the replayed position,
// or with the queued replies when present.
type firstLegal struct {
    queue []string
    calls int
    err   error
}

func (o *firstLegal) BestMove(ctx context.Context, moves []string, think time.Duration) (string, error) {
    o.calls++
    if o.err != nil { return "", o.err }
    if len(o.queue) > 0 {
        mv := o.queue[0]
        o.queue = o.queue[1:]
        return mv, nil
    }
    game, err := reconstruct(moves)
    if err != nil { return "", err }
    valid := game.ValidMoves()
    if len(valid) == 0 { return "", errors.New("no legal moves") }
    return valid[0].String(), nil
}

type fixture struct {
    m      *Manager
    clock  *testClock
    oracle *firstLegal
    store  *FileStore
    repo   svcchess.Repository
}

func newFixture(t *testing.T) *fixture {
    t.Helper()
    store, err := NewFileStore(filepath.Join(t.TempDir(), "chessbot_ongoing_games.json"))
    if err != nil { t.Fatalf("store: %v", err) }
    return newFixtureWithStore(t, store)
}

func newFixtureWithStore(t *testing.T, store *FileStore) *fixture {
    t.Helper()
    clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
    oracle := &firstLegal{}
    repo := svcchess.NewMemoryRepository()
    m, err := NewManager(
        Options{BotNick: botNick, Now: clock.Now},
        pvp.NewManager(60*time.Second, 15*time.Second),
        repo, store, oracle, nil,
    )
    if err != nil { t.Fatalf("NewManager: %v", err) }
    return &fixture{m: m, clock: clock, oracle: oracle, store: store, repo: repo}
}

func (f *fixture) startPvP(t *testing.T, a, b, channel string) *Game {
    t.Helper()
    ctx := context.Background()
    res, err := f.m.Challenge(ctx, a, b, channel)
    if err != nil || !res.Invited { t.Fatalf("challenge: res=%+v err=%v", res, err) }
    g, err := f.m.Accept(ctx, b, a, channel)
    if err != nil { t.Fatalf("accept: %v", err) }
    return g
}

func (f *fixture) play(t *testing.T, nick, channel string, moves ...string) *MoveResult {
    t.Helper()
    var res *MoveResult
    for _, mv := range moves {
        var err error
        res, err = f.m.Move(context.Background(), nick, channel, mv)
        if err != nil { t.Fatalf("%s %s: %v", nick, mv, err) }
        if res.Terminal == nil && res.Game != nil {
            nick = res.Game.Who()
        }
    }
    return res
}

func (f *fixture) counters(t *testing.T, nick string) (checkmates, stalemates, draws, games, losses int) {
    t.Helper()
    rec, err := f.repo.GetPlayer(context.Background(), nick)
    if err != nil { t.Fatalf("get player: %v", err) }
    if rec == nil { return }
    return rec.Checkmates, rec.Stalemates, rec.Draws, rec.Games, rec.Losses
}

func TestAliceBobScenario(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()

    if _, err := f.m.Accept(ctx, "bob", "alice", "#c"); !errors.Is(err, ErrNoInvitation) {
        t.Fatalf("accept without invite: want ErrNoInvitation, got %v", err)
    }

    g := f.startPvP(t, "alice", "bob", "#c")
    if g.P1 != "alice" || g.P2 != "bob" || g.Who() != "alice" {
        t.Fatalf("unexpected game: p1=%s p2=%s who=%s", g.P1, g.P2, g.Who())
    }
    if f.m.SelectedGame("alice", "#c") != g || f.m.SelectedGame("bob", "#c") != g {
        t.Fatalf("game must be selected for both players")
    }

    res, err := f.m.Move(ctx, "alice", "#c", "e2e4")
    if err != nil || res.Played != "e2e4" { t.Fatalf("alice move: %+v %v", res, err) }
    if g.Who() != "bob" || g.Len() != 1 { t.Fatalf("after e2e4: who=%s len=%d", g.Who(), g.Len()) }

    if _, err := f.m.Move(ctx, "alice", "#c", "d2d4"); !errors.Is(err, ErrNotYourTurn) {
        t.Fatalf("want ErrNotYourTurn, got %v", err)
    }
    if _, err := f.m.Move(ctx, "bob", "#c", "e7e6e5"); !errors.Is(err, ErrIllegalMove) {
        t.Fatalf("want ErrIllegalMove, got %v", err)
    }
    if g.Len() != 1 { t.Fatalf("illegal move must not change history") }

    doc, err := f.store.Load(ctx)
    if err != nil { t.Fatalf("load: %v", err) }
    if mv := doc["alice"]["#c"]["bob"]; len(mv) != 1 || mv[0] != "e2e4" {
        t.Fatalf("ledger not updated: %v", doc)
    }
    for _, nick := range []string{"alice", "bob"} {
        if _, _, _, games, _ := f.counters(t, nick); games != 1 {
            t.Fatalf("%s games=%d want 1", nick, games)
        }
    }
}

func TestChallengeRules(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    if _, err := f.m.Challenge(ctx, "alice", "alice", "#c"); !errors.Is(err, ErrSelfChallenge) {
        t.Fatalf("want ErrSelfChallenge, got %v", err)
    }
    if _, err := f.m.Challenge(ctx, "alice", "bob", "#c"); err != nil { t.Fatalf("challenge: %v", err) }
    if _, err := f.m.Challenge(ctx, "alice", "bob", "#c"); !errors.Is(err, ErrAlreadyInvited) {
        t.Fatalf("want ErrAlreadyInvited, got %v", err)
    }
    if _, err := f.m.Accept(ctx, "bob", "alice", "#c"); err != nil { t.Fatalf("accept: %v", err) }
    if _, err := f.m.Challenge(ctx, "bob", "alice", "#c"); !errors.Is(err, ErrAlreadyPlaying) {
        t.Fatalf("want ErrAlreadyPlaying, got %v", err)
    }

    // expired invitations can be renewed
    if _, err := f.m.Challenge(ctx, "alice", "carol", "#c"); err != nil { t.Fatalf("challenge carol: %v", err) }
    f.clock.Advance(61 * time.Second)
    expired := f.m.SweepInvites(f.clock.Now())
    if len(expired) != 1 || expired[0].Target != "carol" { t.Fatalf("unexpected sweep: %+v", expired) }
    if _, err := f.m.Challenge(ctx, "alice", "carol", "#c"); err != nil { t.Fatalf("re-challenge: %v", err) }
}

func TestCPUGameRoundTrip(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()

    res, err := f.m.Challenge(ctx, "alice", botNick, "#c")
    if err != nil || res.Game == nil || res.Invited {
        t.Fatalf("cpu challenge should start at once: %+v %v", res, err)
    }
    mr, err := f.m.Move(ctx, "alice", "#c", "e2e4")
    if err != nil { t.Fatalf("move: %v", err) }
    if mr.Engine == "" || mr.EngineErr != nil { t.Fatalf("expected engine reply: %+v", mr) }
    if got := res.Game.Len(); got != 2 { t.Fatalf("history len=%d want 2", got) }
    if res.Game.Who() != "alice" { t.Fatalf("turn should return to alice") }

    doc, _ := f.store.Load(ctx)
    if mv := doc["alice"]["#c"][botNick]; len(mv) != 2 { t.Fatalf("ledger=%v", doc) }

    u, err := f.m.Undo(ctx, "alice", "#c")
    if err != nil || u.Outcome != UndoApplied || u.Popped != 2 { t.Fatalf("cpu undo: %+v %v", u, err) }
    if res.Game.Len() != 0 { t.Fatalf("cpu undo should pop two half-moves") }
    if _, err := f.m.Undo(ctx, "alice", "#c"); !errors.Is(err, ErrNothingToUndo) {
        t.Fatalf("want ErrNothingToUndo, got %v", err)
    }
}

func TestCPUEngineFailureKeepsPlayerMove(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    f.oracle.err = errors.New("broken pipe")
    res, _ := f.m.Challenge(ctx, "alice", botNick, "#c")
    mr, err := f.m.Move(ctx, "alice", "#c", "e2e4")
    if err != nil { t.Fatalf("move: %v", err) }
    if !errors.Is(mr.EngineErr, ErrEngineUnavailable) { t.Fatalf("want engine error, got %v", mr.EngineErr) }
    if res.Game.Len() != 1 { t.Fatalf("player move must stand") }
    doc, _ := f.store.Load(ctx)
    if mv := doc["alice"]["#c"][botNick]; len(mv) != 1 { t.Fatalf("player move must be persisted: %v", doc) }

    f.oracle.err = nil
    mr, err = f.m.Move(ctx, "alice", "#c", "d2d4")
    if err != nil { t.Fatalf("resume: %v", err) }
    if mr.Played != "" || mr.Engine == "" { t.Fatalf("expected engine to catch up: %+v", mr) }
    if res.Game.Len() != 2 || res.Game.Who() != "alice" { t.Fatalf("unexpected state after resume: %v", res.Game.History()) }
}

func TestCPUUndoAfterEngineFailure(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    f.oracle.err = errors.New("broken pipe")
    res, _ := f.m.Challenge(ctx, "alice", botNick, "#c")
    if _, err := f.m.Move(ctx, "alice", "#c", "e2e4"); err != nil { t.Fatalf("move: %v", err) }
    ur, err := f.m.Undo(ctx, "alice", "#c")
    if err != nil { t.Fatalf("undo: %v", err) }
    if ur.Popped != 1 || res.Game.Len() != 0 { t.Fatalf("expected only the player move popped: %+v", ur) }
}

func TestFoolsMate(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    g := f.startPvP(t, "alice", "bob", "#c")

    res := f.play(t, "alice", "#c", "f2f3", "e7e5", "g2g4", "d8h4")
    if res.Terminal == nil || res.Terminal.Result != ResultCheckmate {
        t.Fatalf("expected checkmate, got %+v", res.Terminal)
    }
    if res.Terminal.Mover != "bob" || res.Terminal.Other != "alice" {
        t.Fatalf("unexpected attribution: %+v", res.Terminal)
    }
    if !res.Check { t.Fatalf("mating move gives check") }

    if f.m.HasGameWith("alice", "bob", "#c") != nil || f.m.HasGameWith("bob", "alice", "#c") != nil {
        t.Fatalf("finished game must leave the registry")
    }
    if f.m.SelectedGame("alice", "#c") != nil { t.Fatalf("no game should remain selected") }
    doc, _ := f.store.Load(ctx)
    if doc.Count() != 0 { t.Fatalf("finished game must leave the store: %v", doc) }

    if cm, _, _, _, _ := f.counters(t, "bob"); cm != 1 { t.Fatalf("bob checkmates=%d", cm) }
    if _, _, _, _, losses := f.counters(t, "alice"); losses != 1 { t.Fatalf("alice losses=%d", losses) }
    if g.Len() != 4 { t.Fatalf("history len=%d", g.Len()) }
}

func TestStalemateCreditsMover(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    f.startPvP(t, "alice", "bob", "#c")

    // Sam Loyd's ten move stalemate
    res := f.play(t, "alice", "#c",
        "e2e3", "a7a5", "d1h5", "a8a6", "h5a5", "h7h5", "h2h4", "a6h6", "a5c7", "f7f6",
        "c7d7", "e8f7", "d7b7", "d8d3", "b7b8", "d3h7", "b8c8", "f7g6", "c8e6",
    )
    if res.Terminal == nil || res.Terminal.Result != ResultStalemate {
        t.Fatalf("expected stalemate, got %+v", res.Terminal)
    }
    if res.Terminal.Mover != "alice" || res.Terminal.Other != "bob" {
        t.Fatalf("unexpected attribution: %+v", res.Terminal)
    }
    if f.m.HasGameWith("alice", "bob", "#c") != nil { t.Fatalf("finished game must leave the registry") }
    doc, _ := f.store.Load(ctx)
    if doc.Count() != 0 { t.Fatalf("finished game must leave the store: %v", doc) }

    if _, sm, draws, games, losses := f.counters(t, "alice"); sm != 1 || draws != 0 || losses != 0 || games != 1 {
        t.Fatalf("alice stalemates=%d draws=%d losses=%d games=%d", sm, draws, losses, games)
    }
    if cm, sm, draws, _, losses := f.counters(t, "bob"); losses != 1 || cm != 0 || sm != 0 || draws != 0 {
        t.Fatalf("bob checkmates=%d stalemates=%d draws=%d losses=%d", cm, sm, draws, losses)
    }
}

func TestRulesDrawCreditsBothSides(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    f.startPvP(t, "alice", "bob", "#c")

    var moves []string
    for i := 0; i < 4; i++ {
        moves = append(moves, "g1f3", "g8f6", "f3g1", "f6g8")
    }
    res := f.play(t, "alice", "#c", moves...)
    if res.Terminal == nil || res.Terminal.Result != ResultDraw {
        t.Fatalf("expected fivefold repetition draw, got %+v", res.Terminal)
    }
    if res.Terminal.Method != nchess.FivefoldRepetition.String() {
        t.Fatalf("method=%q", res.Terminal.Method)
    }
    if res.Terminal.Mover != "bob" || res.Terminal.Other != "alice" {
        t.Fatalf("unexpected attribution: %+v", res.Terminal)
    }
    if f.m.HasGameWith("alice", "bob", "#c") != nil { t.Fatalf("drawn game must leave the registry") }
    doc, _ := f.store.Load(ctx)
    if doc.Count() != 0 { t.Fatalf("drawn game must leave the store: %v", doc) }

    for _, nick := range []string{"alice", "bob"} {
        cm, sm, draws, games, losses := f.counters(t, nick)
        if draws != 1 || cm != 0 || sm != 0 || losses != 0 || games != 1 {
            t.Fatalf("%s checkmates=%d stalemates=%d draws=%d losses=%d games=%d", nick, cm, sm, draws, losses, games)
        }
    }
}

func TestUndoHandshake(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    g := f.startPvP(t, "alice", "bob", "#c")
    f.play(t, "alice", "#c", "e2e4")

    if _, err := f.m.Undo(ctx, "bob", "#c"); !errors.Is(err, ErrUndoNotYourMove) {
        t.Fatalf("bob has not moved: want ErrUndoNotYourMove, got %v", err)
    }

    u, err := f.m.Undo(ctx, "alice", "#c")
    if err != nil || u.Outcome != UndoRequested || u.Opponent != "bob" { t.Fatalf("request: %+v %v", u, err) }
    if g.Len() != 1 { t.Fatalf("request must not pop") }

    f.clock.Advance(10 * time.Second)
    u, err = f.m.Undo(ctx, "bob", "#c")
    if err != nil || u.Outcome != UndoApplied || u.Popped != 1 { t.Fatalf("accept: %+v %v", u, err) }
    if g.Len() != 0 || g.FEN() != nchess.NewGame().FEN() { t.Fatalf("undo must restore the start position") }

    f.play(t, "alice", "#c", "d2d4")
    if _, err := f.m.Undo(ctx, "alice", "#c"); err != nil { t.Fatalf("request 2: %v", err) }
    f.clock.Advance(16 * time.Second)
    u, err = f.m.Undo(ctx, "bob", "#c")
    if err != nil || u.Outcome != UndoExpired { t.Fatalf("want expired, got %+v %v", u, err) }
    if g.Len() != 1 { t.Fatalf("expired request must not pop") }
}

func TestSquareQueryListsMoves(t *testing.T) {
    f := newFixture(t)
    f.startPvP(t, "alice", "bob", "#c")
    res, err := f.m.Move(context.Background(), "alice", "#c", "E2")
    if err != nil || !res.IsHint() { t.Fatalf("square query: %+v %v", res, err) }
    sort.Strings(res.Hints)
    if len(res.Hints) != 2 || res.Hints[0] != "e2e3" || res.Hints[1] != "e2e4" {
        t.Fatalf("unexpected hints: %v", res.Hints)
    }
    if res.Game.Len() != 0 { t.Fatalf("square query must not move") }

    res, err = f.m.Move(context.Background(), "alice", "#c", "Nf3")
    if err != nil || res.Played != "g1f3" { t.Fatalf("SAN fallback: %+v %v", res, err) }
}

func TestEndAndForfeit(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    f.startPvP(t, "alice", "bob", "#c")
    f.startPvP(t, "alice", "carol", "#c")

    if _, err := f.m.End(ctx, "bob", "", "#c"); err != nil { t.Fatalf("end: %v", err) }
    if f.m.HasGameWith("alice", "bob", "#c") != nil { t.Fatalf("cancelled game still registered") }
    if _, err := f.m.End(ctx, "bob", "alice", "#c"); !errors.Is(err, ErrNoSuchGame) {
        t.Fatalf("second end: want ErrNoSuchGame, got %v", err)
    }
    if _, _, _, _, losses := f.counters(t, "bob"); losses != 0 { t.Fatalf("cancel must not count") }

    if _, err := f.m.Forfeit(ctx, "carol", "alice", "#c"); err != nil { t.Fatalf("forfeit: %v", err) }
    if _, _, _, _, losses := f.counters(t, "carol"); losses != 1 { t.Fatalf("carol losses=%d", losses) }
    if _, sm, _, _, _ := f.counters(t, "alice"); sm != 1 { t.Fatalf("alice stalemates=%d", sm) }
    if len(f.m.AllGames("alice")) != 0 { t.Fatalf("alice should have no games left") }
}

func TestRestoreFromStore(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    g := f.startPvP(t, "alice", "bob", "#c")
    f.play(t, "alice", "#c", "e2e4", "e7e5")
    fen := g.FEN()

    // a history that no longer replays is skipped
    doc, _ := f.store.Load(ctx)
    doc.Put("dave", "erin", "#d", []string{"e2e5"})
    if err := f.store.Save(ctx, doc); err != nil { t.Fatalf("save: %v", err) }

    f2 := newFixtureWithStore(t, f.store)
    n, err := f2.m.Restore(ctx)
    if err != nil || n != 1 { t.Fatalf("restore: n=%d err=%v", n, err) }
    rg := f2.m.SelectedGame("bob", "#c")
    if rg == nil || rg.FEN() != fen || rg.Who() != "alice" {
        t.Fatalf("restored game mismatch: %+v", rg)
    }
    if f2.m.SelectedGame("alice", "#c") != rg { t.Fatalf("restored game must be shared") }
}

func TestCorruptStoreIsReset(t *testing.T) {
    path := filepath.Join(t.TempDir(), "ongoing.json")
    if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil { t.Fatalf("write: %v", err) }
    store, _ := NewFileStore(path)
    f := newFixtureWithStore(t, store)
    n, err := f.m.Restore(context.Background())
    if err != nil || n != 0 { t.Fatalf("restore corrupt: n=%d err=%v", n, err) }
    raw, _ := os.ReadFile(path)
    if string(raw) != "{}" { t.Fatalf("store should be reset to {}, got %q", raw) }
}
