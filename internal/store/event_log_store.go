package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/MatthewUtzig/lightcode/internal/types"
)

// EventLogStore mirrors session events into durable append-only logs. The
// live engine log stays authoritative; this copy survives restarts.
type EventLogStore interface {
	Append(ctx context.Context, sessionID uint64, event types.EventRecord) error
	List(ctx context.Context, sessionID uint64) ([]types.EventRecord, error)
}

type FileEventLogStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileEventLogStore(dir string) *FileEventLogStore {
	return &FileEventLogStore{dir: dir}
}

func (s *FileEventLogStore) Append(ctx context.Context, sessionID uint64, event types.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(s.logPath(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (s *FileEventLogStore) List(ctx context.Context, sessionID uint64) ([]types.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.logPath(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []types.EventRecord{}, nil
		}
		return nil, err
	}
	out := make([]types.EventRecord, 0)
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var event types.EventRecord
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("decode event log line %d: %w", i+1, err)
		}
		out = append(out, event)
	}
	return out, nil
}

func (s *FileEventLogStore) logPath(sessionID uint64) string {
	return filepath.Join(s.dir, strconv.FormatUint(sessionID, 10)+".jsonl")
}
