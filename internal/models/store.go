package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

var storeBucket = []byte("gowatcharr")

// Store is the persistent key-value store backing every tracker component:
// string keys to JSON values, synchronous get/set/delete, no transactions
// spanning multiple keys.
type Store struct {
	db     *bbolt.DB
	logger *logrus.Logger
}

// NewStore opens the key-value store at the given path.
func NewStore(path string, logger *logrus.Logger) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(storeBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw value for a key, or false if the key is absent.
func (s *Store) Get(key string) ([]byte, bool) {
	var value []byte
	s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(storeBucket).Get([]byte(key))
		if v != nil {
			value = make([]byte, len(v))
			copy(value, v)
		}
		return nil
	})
	return value, value != nil
}

// Set stores a raw value under a key.
func (s *Store) Set(key string, value []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(storeBucket).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(storeBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// Keys returns all keys starting with the given prefix.
func (s *Store) Keys(prefix string) []string {
	var keys []string
	s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(storeBucket).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys
}

// GetJSON unmarshals the value for a key into v. A missing key returns
// false. A corrupted value self-heals: the key is deleted, a warning is
// logged, and false is returned so the caller falls back to its default.
func (s *Store) GetJSON(key string, v any) bool {
	raw, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Corrupted value in store, resetting key")
		s.Delete(key)
		return false
	}
	return true
}

// SetJSON marshals v and stores it under a key.
func (s *Store) SetJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %q: %w", key, err)
	}
	return s.Set(key, raw)
}
