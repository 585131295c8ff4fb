package pvpchess

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "strings"
    "sync"

    svcchess "github.com/park285/irc-chessbot/internal/service/chess"
    "github.com/park285/irc-chessbot/pkg/chessdto"
)

// ErrCorruptDocument is returned by a Store whose document cannot be decoded.
var ErrCorruptDocument = errors.New("ongoing games document is corrupt")

// Store reads and writes the whole ongoing-games document.
type Store interface {
    Load(ctx context.Context) (chessdto.OngoingGames, error)
    Save(ctx context.Context, doc chessdto.OngoingGames) error
}

// FileStore keeps the document as a JSON file. Writes go through a temp
// file in the same directory and are renamed into place.
type FileStore struct {
    mu   sync.Mutex
    path string
}

func NewFileStore(path string) (*FileStore, error) {
    if strings.TrimSpace(path) == "" {
        return nil, fmt.Errorf("ongoing games path required")
    }
    return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (chessdto.OngoingGames, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    raw, err := os.ReadFile(s.path)
    if errors.Is(err, os.ErrNotExist) {
        return chessdto.OngoingGames{}, nil
    }
    if err != nil {
        return nil, fmt.Errorf("read %s: %w", s.path, err)
    }
    return decodeDocument(raw)
}

func (s *FileStore) Save(ctx context.Context, doc chessdto.OngoingGames) error {
    raw, err := encodeDocument(doc)
    if err != nil {
        return err
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    return svcchess.WriteFileAtomic(s.path, raw)
}

func decodeDocument(raw []byte) (chessdto.OngoingGames, error) {
    if len(strings.TrimSpace(string(raw))) == 0 {
        return chessdto.OngoingGames{}, nil
    }
    var doc chessdto.OngoingGames
    if err := json.Unmarshal(raw, &doc); err != nil {
        return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
    }
    if doc == nil {
        doc = chessdto.OngoingGames{}
    }
    return doc, nil
}

func encodeDocument(doc chessdto.OngoingGames) ([]byte, error) {
    if doc == nil {
        doc = chessdto.OngoingGames{}
    }
    raw, err := json.MarshalIndent(doc, "", "  ")
    if err != nil {
        return nil, fmt.Errorf("marshal ongoing games: %w", err)
    }
    return raw, nil
}
