package msgcat

import (
    "embed"
    "errors"
    "fmt"
    "io/fs"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "sync"
    "text/template"

    yaml "gopkg.in/yaml.v3"
)

const embeddedFile = "messages.en.yaml"

//go:embed messages.en.yaml
var defaultFiles embed.FS

// Catalog holds reply templates keyed by flattened dot paths ("move.turn").
// Templates are parsed once and rendered with missingkey=error.
type Catalog struct {
    mu        sync.RWMutex
    data      map[string]string
    templates map[string]*template.Template
}

// New loads the embedded messages and then applies overrides from dir if provided.
func New(overrideDir string) (*Catalog, error) {
    c := &Catalog{data: make(map[string]string), templates: make(map[string]*template.Template)}

    if err := c.loadEmbedded(); err != nil {
        return nil, err
    }
    if strings.TrimSpace(overrideDir) != "" {
        if err := c.applyDir(overrideDir); err != nil {
            return nil, err
        }
    }
    if err := c.compile(); err != nil {
        return nil, err
    }
    return c, nil
}

// MustDefault returns the embedded catalog and panics if it does not parse.
func MustDefault() *Catalog {
    c, err := New("")
    if err != nil { panic(err) }
    return c
}

func (c *Catalog) loadEmbedded() error {
    raw, err := fs.ReadFile(defaultFiles, embeddedFile)
    if err != nil {
        return fmt.Errorf("read embedded messages: %w", err)
    }
    flat, err := parseYAMLToFlat(raw)
    if err != nil { return fmt.Errorf("parse embedded messages: %w", err) }
    for k, v := range flat { c.data[k] = v }
    return nil
}

func (c *Catalog) applyDir(dir string) error {
    entries, err := os.ReadDir(dir)
    if err != nil {
        return fmt.Errorf("read template dir: %w", err)
    }
    files := make([]string, 0, len(entries))
    for _, e := range entries {
        if e.IsDir() { continue }
        n := e.Name()
        ext := strings.ToLower(filepath.Ext(n))
        if ext == ".yaml" || ext == ".yml" { files = append(files, n) }
    }
    sort.Strings(files)
    seen := make(map[string]string)
    for _, name := range files {
        b, err := os.ReadFile(filepath.Join(dir, name))
        if err != nil { return fmt.Errorf("read %s: %w", name, err) }
        flat, err := parseYAMLToFlat(b)
        if err != nil { return fmt.Errorf("parse %s: %w", name, err) }
        for k := range flat {
            if prev, ok := seen[k]; ok {
                return fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
            }
            if _, known := c.data[k]; !known {
                return fmt.Errorf("unknown message key %q in %s", k, name)
            }
            seen[k] = name
        }
        for k, v := range flat { c.data[k] = v }
    }
    return nil
}

func (c *Catalog) compile() error {
    for k, v := range c.data {
        t, err := template.New(k).Option("missingkey=error").Parse(v)
        if err != nil { return fmt.Errorf("template %s: %w", k, err) }
        c.templates[k] = t
    }
    return nil
}

func parseYAMLToFlat(b []byte) (map[string]string, error) {
    var m map[string]any
    if err := yaml.Unmarshal(b, &m); err != nil {
        return nil, err
    }
    flat := make(map[string]string)
    if err := flattenStrings(m, "", flat); err != nil {
        return nil, err
    }
    return flat, nil
}

func flattenStrings(src any, prefix string, out map[string]string) error {
    switch v := src.(type) {
    case map[string]any:
        for k, vv := range v {
            key := k
            if prefix != "" { key = prefix + "." + k }
            if err := flattenStrings(vv, key, out); err != nil { return err }
        }
        return nil
    case string:
        if prefix == "" { return errors.New("string value without key prefix") }
        out[prefix] = v
        return nil
    case nil:
        return nil
    default:
        return fmt.Errorf("unsupported value at %s: %T", prefix, v)
    }
}

// Has reports whether key is defined.
func (c *Catalog) Has(key string) bool {
    c.mu.RLock()
    defer c.mu.RUnlock()
    _, ok := c.templates[key]
    return ok
}

// Keys lists every defined key in order.
func (c *Catalog) Keys() []string {
    c.mu.RLock()
    keys := make([]string, 0, len(c.templates))
    for k := range c.templates { keys = append(keys, k) }
    c.mu.RUnlock()
    sort.Strings(keys)
    return keys
}

// Render executes the template for key. Missing keys or fields are errors.
func (c *Catalog) Render(key string, data any) (string, error) {
    c.mu.RLock()
    t, ok := c.templates[strings.TrimSpace(key)]
    c.mu.RUnlock()
    if !ok {
        return "", fmt.Errorf("template not found: %s", key)
    }
    var b strings.Builder
    if err := t.Execute(&b, data); err != nil { return "", err }
    return b.String(), nil
}

// Text renders key and falls back to the key itself on error, so a broken
// override degrades to a visible marker instead of silence.
func (c *Catalog) Text(key string, data any) string {
    s, err := c.Render(key, data)
    if err != nil { return key }
    return s
}

// Lines renders key and splits the result into non-empty lines.
func (c *Catalog) Lines(key string, data any) []string {
    raw := c.Text(key, data)
    out := make([]string, 0, 1)
    for _, ln := range strings.Split(raw, "\n") {
        if strings.TrimSpace(ln) != "" { out = append(out, ln) }
    }
    return out
}
