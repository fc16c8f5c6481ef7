// Package storage is the durable message store collaborator. The relay
// core never calls it; the write-path bridge does, before pushing into
// the live fan-out.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/avelark/parley/internal/domain"
)

var ErrNotFound = errors.New("message not found")

// StoredEnvelope is an envelope plus the cursor under which it sorts.
type StoredEnvelope struct {
	domain.Envelope
	Cursor string `json:"cursor"`
}

type Messages struct {
	db       *badger.DB
	pageSize int
}

func Open(dir string, pageSize int) (*Messages, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("open message store: %w", err)
	}
	return &Messages{db: db, pageSize: pageSize}, nil
}

func (m *Messages) Close() error { return m.db.Close() }

// messageKey is "msg:{room}:{timestamp padded}:{id}". The 19-digit zero
// padding makes lexicographic order chronological; the uuid tail keeps
// two same-nanosecond messages from colliding.
func messageKey(room domain.RoomKey, at time.Time, id string) []byte {
	return fmt.Appendf(nil, "msg:%s:%019d:%s", room, at.UnixNano(), id)
}

func indexKey(id string) []byte {
	return fmt.Appendf(nil, "idx:%s", id)
}

// Append persists the envelope and returns it with its cursor.
func (m *Messages) Append(env domain.Envelope) (StoredEnvelope, error) {
	key := messageKey(env.Room, env.SentAt, env.ID)
	value, err := json.Marshal(env)
	if err != nil {
		return StoredEnvelope{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(indexKey(env.ID), key)
	})
	if err != nil {
		return StoredEnvelope{}, err
	}
	prefixLen := len(fmt.Sprintf("msg:%s:", env.Room))
	return StoredEnvelope{Envelope: env, Cursor: string(key[prefixLen:])}, nil
}

// History pages a room newest-first with a reverse prefix scan. cursor
// is the Cursor of the last message of the previous page; nil starts
// from the newest.
func (m *Messages) History(room domain.RoomKey, cursor *string) ([]domain.Envelope, *string, error) {
	var values [][]byte
	var lastKey string

	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", room)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		if cursor == nil {
			// Past any padded timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		} else {
			seekKey = append(prefix, []byte(*cursor)...)
		}
		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(values) == m.pageSize {
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			if err := item.Value(func(v []byte) error {
				values = append(values, slices.Clone(v))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	out := make([]domain.Envelope, 0, len(values))
	for _, v := range values {
		var env domain.Envelope
		if err := json.Unmarshal(v, &env); err != nil {
			return nil, nil, err
		}
		out = append(out, env)
	}
	return out, &lastKey, nil
}

// Edit replaces the message content and marks it edited.
func (m *Messages) Edit(id, content string) (domain.Envelope, error) {
	return m.mutate(id, func(env *domain.Envelope) {
		env.Content = content
		env.Edited = true
	})
}

// React toggles who's reaction under the given emoji.
func (m *Messages) React(id, emoji string, who domain.UserID) (domain.Envelope, error) {
	return m.mutate(id, func(env *domain.Envelope) {
		if env.Reactions == nil {
			env.Reactions = make(map[string][]domain.UserID)
		}
		if i := slices.Index(env.Reactions[emoji], who); i >= 0 {
			env.Reactions[emoji] = slices.Delete(env.Reactions[emoji], i, i+1)
			if len(env.Reactions[emoji]) == 0 {
				delete(env.Reactions, emoji)
			}
			return
		}
		env.Reactions[emoji] = append(env.Reactions[emoji], who)
	})
}

func (m *Messages) mutate(id string, apply func(*domain.Envelope)) (domain.Envelope, error) {
	var env domain.Envelope
	err := m.db.Update(func(txn *badger.Txn) error {
		idx, err := txn.Get(indexKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		key, err := idx.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(v []byte) error {
			return json.Unmarshal(v, &env)
		}); err != nil {
			return err
		}
		apply(&env)
		value, err := json.Marshal(env)
		if err != nil {
			return err
		}
		return txn.Set(key, value)
	})
	if err != nil {
		return domain.Envelope{}, err
	}
	return env, nil
}
