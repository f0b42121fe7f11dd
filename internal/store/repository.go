// Package store persists session records and mirrored event logs behind a
// Repository that can run on flat JSON files or a bbolt database.
package store

import (
	"errors"
	"strings"
)

const (
	RepositoryBackendFile  = "file"
	RepositoryBackendBbolt = "bbolt"
)

type Repository interface {
	Sessions() SessionRecordStore
	Events() EventLogStore
	Backend() string
	Close() error
}

type RepositoryPaths struct {
	SessionsPath string
	EventsDir    string
	DBPath       string
}

type fileRepository struct {
	sessions SessionRecordStore
	events   EventLogStore
}

func NewFileRepository(paths RepositoryPaths) Repository {
	return &fileRepository{
		sessions: NewFileSessionRecordStore(paths.SessionsPath),
		events:   NewFileEventLogStore(paths.EventsDir),
	}
}

func (r *fileRepository) Sessions() SessionRecordStore {
	return r.sessions
}

func (r *fileRepository) Events() EventLogStore {
	return r.events
}

func (r *fileRepository) Backend() string {
	return RepositoryBackendFile
}

func (r *fileRepository) Close() error {
	return nil
}

func OpenRepository(paths RepositoryPaths, backend string) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", RepositoryBackendBbolt:
		if strings.TrimSpace(paths.DBPath) == "" {
			return nil, errors.New("db path is required for bbolt repository")
		}
		return NewBboltRepository(paths.DBPath)
	case RepositoryBackendFile:
		return NewFileRepository(paths), nil
	default:
		return nil, errors.New("unsupported repository backend: " + backend)
	}
}
