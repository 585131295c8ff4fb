package msgcat

import (
    "os"
    "path/filepath"
    "strings"
    "testing"
    "text/template"
)

func TestEmbeddedCatalogRenders(t *testing.T) {
    c, err := New("")
    if err != nil { t.Fatalf("New: %v", err) }
    got, err := c.Render("start.challenge", map[string]any{
        "Nick": "alice", "Target": "bob", "Prefix": ";", "Seconds": 60,
    })
    if err != nil { t.Fatalf("render: %v", err) }
    want := "<bob> alice is challenging you to a chess game. Use `;accept alice` to accept within the next 60 seconds."
    if got != want { t.Fatalf("got %q", got) }
}

func TestMissingFieldIsAnError(t *testing.T) {
    c := MustDefault()
    if _, err := c.Render("move.turn", map[string]any{}); err == nil {
        t.Fatalf("expected missing key error")
    }
    if got := c.Text("move.turn", map[string]any{}); got != "move.turn" {
        t.Fatalf("Text should fall back to the key, got %q", got)
    }
    if _, err := c.Render("no.such.key", nil); err == nil {
        t.Fatalf("expected unknown key error")
    }
}

func TestOverrideDir(t *testing.T) {
    dir := t.TempDir()
    body := "move:\n  check: \"CHECK!!\"\n"
    if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(body), 0o644); err != nil {
        t.Fatalf("write: %v", err)
    }
    c, err := New(dir)
    if err != nil { t.Fatalf("New: %v", err) }
    if got := c.Text("move.check", nil); got != "CHECK!!" { t.Fatalf("override not applied: %q", got) }
    if !c.Has("move.turn") { t.Fatalf("defaults must survive overrides") }
}

func TestOverrideRejectsDuplicatesAndUnknownKeys(t *testing.T) {
    dir := t.TempDir()
    _ = os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("move:\n  check: a\n"), 0o644)
    _ = os.WriteFile(filepath.Join(dir, "b.yml"), []byte("move:\n  check: b\n"), 0o644)
    if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate") {
        t.Fatalf("expected duplicate error, got %v", err)
    }

    dir = t.TempDir()
    _ = os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("nope:\n  x: y\n"), 0o644)
    if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "unknown") {
        t.Fatalf("expected unknown key error, got %v", err)
    }
}

func TestLinesSplitsMultiline(t *testing.T) {
    c := &Catalog{data: map[string]string{"x": "one\n\ntwo {{.N}}\n"}, templates: nil}
    c.templates = make(map[string]*template.Template)
    if err := c.compile(); err != nil { t.Fatalf("compile: %v", err) }
    got := c.Lines("x", map[string]int{"N": 2})
    if len(got) != 2 || got[1] != "two 2" { t.Fatalf("got %q", got) }
}
