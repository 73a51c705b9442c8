package store

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// IndexFile is the name of the replay index inside a replay directory.
const IndexFile = "sessions.log"

// Index lists the sessions that have a replay in a directory, oldest first.
// On disk it is one session ID per line; duplicates and blank lines are
// dropped when read.
type Index struct {
	mu   sync.Mutex
	f    *os.File
	ids  []string
	seen map[string]bool
}

// OpenIndex loads the index at path, creating it if needed, and keeps it
// open for appends.
func OpenIndex(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("index path is required")
	}
	ids, err := ReadIndex(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	x := &Index{f: f, ids: ids, seen: make(map[string]bool, len(ids))}
	for _, id := range ids {
		x.seen[id] = true
	}
	return x, nil
}

// ReadIndex returns the session IDs in path in first-written order.
func ReadIndex(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	seen := make(map[string]bool)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		id := strings.TrimSpace(sc.Text())
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return ids, nil
}

func (x *Index) Contains(sessionID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.seen[sessionID]
}

func (x *Index) IDs() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.ids...)
}

// Add records sessionID and reports whether it was new. New IDs are synced
// to disk before Add returns.
func (x *Index) Add(sessionID string) (bool, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, "\r\n") {
		return false, fmt.Errorf("invalid session id %q", sessionID)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	switch {
	case x.seen[sessionID]:
		return false, nil
	case x.f == nil:
		return false, fmt.Errorf("index is closed")
	}

	if _, err := fmt.Fprintln(x.f, sessionID); err != nil {
		return false, fmt.Errorf("append %s: %w", sessionID, err)
	}
	if err := x.f.Sync(); err != nil {
		return false, fmt.Errorf("sync index: %w", err)
	}
	x.seen[sessionID] = true
	x.ids = append(x.ids, sessionID)
	return true, nil
}

// Close is safe to call more than once.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.f == nil {
		return nil
	}
	err := x.f.Close()
	x.f = nil
	return err
}
