package store

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"

	"github.com/MatthewUtzig/lightcode/internal/types"
)

var ErrSessionRecordNotFound = errors.New("session record not found")

const sessionRecordSchemaVersion = 1

type SessionRecordStore interface {
	List(ctx context.Context) ([]*types.SessionRecord, error)
	Get(ctx context.Context, id uint64) (*types.SessionRecord, bool, error)
	Put(ctx context.Context, record *types.SessionRecord) error
	Delete(ctx context.Context, id uint64) error
}

type FileSessionRecordStore struct {
	path string
	mu   sync.Mutex
}

type sessionRecordFile struct {
	Version  int                    `json:"version"`
	Sessions []*types.SessionRecord `json:"sessions"`
}

func NewFileSessionRecordStore(path string) *FileSessionRecordStore {
	return &FileSessionRecordStore{path: path}
}

func (s *FileSessionRecordStore) List(ctx context.Context) ([]*types.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*types.SessionRecord{}, nil
		}
		return nil, err
	}
	out := make([]*types.SessionRecord, 0, len(file.Sessions))
	for _, record := range file.Sessions {
		out = append(out, cloneSessionRecord(record))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *FileSessionRecordStore) Get(ctx context.Context, id uint64) (*types.SessionRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	for _, record := range file.Sessions {
		if record.ID == id {
			return cloneSessionRecord(record), true, nil
		}
	}
	return nil, false, nil
}

func (s *FileSessionRecordStore) Put(ctx context.Context, record *types.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record == nil || record.ID == 0 {
		return errors.New("session record requires an id")
	}

	file, err := s.load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if file == nil {
		file = newSessionRecordFile()
	}

	stored := cloneSessionRecord(record)
	updated := false
	for i, existing := range file.Sessions {
		if existing.ID == record.ID {
			file.Sessions[i] = stored
			updated = true
			break
		}
	}
	if !updated {
		file.Sessions = append(file.Sessions, stored)
	}
	return s.save(file)
}

func (s *FileSessionRecordStore) Delete(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrSessionRecordNotFound
		}
		return err
	}
	filtered := file.Sessions[:0]
	found := false
	for _, record := range file.Sessions {
		if record.ID == id {
			found = true
			continue
		}
		filtered = append(filtered, record)
	}
	file.Sessions = filtered
	if !found {
		return ErrSessionRecordNotFound
	}
	return s.save(file)
}

func (s *FileSessionRecordStore) load() (*sessionRecordFile, error) {
	file := newSessionRecordFile()
	if err := readJSON(s.path, file); err != nil {
		return nil, err
	}
	if file.Version == 0 {
		file.Version = sessionRecordSchemaVersion
	}
	return file, nil
}

func (s *FileSessionRecordStore) save(file *sessionRecordFile) error {
	file.Version = sessionRecordSchemaVersion
	return writeJSONAtomic(s.path, file)
}

func newSessionRecordFile() *sessionRecordFile {
	return &sessionRecordFile{
		Version:  sessionRecordSchemaVersion,
		Sessions: []*types.SessionRecord{},
	}
}

func cloneSessionRecord(record *types.SessionRecord) *types.SessionRecord {
	if record == nil {
		return nil
	}
	out := *record
	if record.ClosedAt != nil {
		ts := *record.ClosedAt
		out.ClosedAt = &ts
	}
	return &out
}
