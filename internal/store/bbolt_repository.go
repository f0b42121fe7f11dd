package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/MatthewUtzig/lightcode/internal/types"
)

var (
	bucketSessions = []byte("sessions")
	bucketEvents   = []byte("events")
)

type bboltRepository struct {
	db       *bolt.DB
	sessions SessionRecordStore
	events   EventLogStore
}

func NewBboltRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:       db,
		sessions: &bboltSessionRecordStore{db: db},
		events:   &bboltEventLogStore{db: db},
	}, nil
}

func (r *bboltRepository) Sessions() SessionRecordStore {
	return r.sessions
}

func (r *bboltRepository) Events() EventLogStore {
	return r.events
}

func (r *bboltRepository) Backend() string {
	return RepositoryBackendBbolt
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSessions); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketEvents); err != nil {
			return err
		}
		return nil
	})
}

type bboltSessionRecordStore struct {
	db *bolt.DB
}

func (s *bboltSessionRecordStore) List(ctx context.Context) ([]*types.SessionRecord, error) {
	// Big-endian keys keep ForEach in ascending id order.
	out := make([]*types.SessionRecord, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var record types.SessionRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			out = append(out, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *bboltSessionRecordStore) Get(ctx context.Context, id uint64) (*types.SessionRecord, bool, error) {
	var (
		out *types.SessionRecord
		ok  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if b == nil {
			return nil
		}
		v := b.Get(u64Key(id))
		if v == nil {
			return nil
		}
		var record types.SessionRecord
		if err := json.Unmarshal(v, &record); err != nil {
			return err
		}
		out = &record
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, ok, nil
}

func (s *bboltSessionRecordStore) Put(ctx context.Context, record *types.SessionRecord) error {
	if record == nil || record.ID == 0 {
		return errors.New("session record requires an id")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Put(u64Key(record.ID), data)
	})
}

func (s *bboltSessionRecordStore) Delete(ctx context.Context, id uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if b.Get(u64Key(id)) == nil {
			return ErrSessionRecordNotFound
		}
		return b.Delete(u64Key(id))
	})
}

type bboltEventLogStore struct {
	db *bolt.DB
}

func (s *bboltEventLogStore) Append(ctx context.Context, sessionID uint64, event types.EventRecord) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEvents).Put(eventKey(sessionID, event.Seq), data)
	})
}

func (s *bboltEventLogStore) List(ctx context.Context, sessionID uint64) ([]types.EventRecord, error) {
	out := make([]types.EventRecord, 0)
	prefix := u64Key(sessionID)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var event types.EventRecord
			if err := json.Unmarshal(v, &event); err != nil {
				return err
			}
			out = append(out, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func u64Key(v uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], v)
	return key[:]
}

func eventKey(sessionID, seq uint64) []byte {
	var key [16]byte
	binary.BigEndian.PutUint64(key[:8], sessionID)
	binary.BigEndian.PutUint64(key[8:], seq)
	return key[:]
}
