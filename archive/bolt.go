package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

var recordsBucket = []byte("records")

// BoltArchiver is an Archiver backed by a single-file embedded bbolt
// database, one bucket keyed by Record.Key().
type BoltArchiver struct {
	db *bbolt.DB
}

// OpenBoltArchiver opens (creating if necessary) a bbolt database at path
// and ensures its records bucket exists.
func OpenBoltArchiver(path string) (*BoltArchiver, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: open bbolt: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: create bucket: %w", err)
	}

	return &BoltArchiver{db: db}, nil
}

var _ Archiver = (*BoltArchiver)(nil)

// Store writes rec under its Key, overwriting any prior record with the
// same key (a retry that lands the same timestamp+transactionId).
func (a *BoltArchiver) Store(_ context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("archive: marshal record: %w", err)
	}

	return a.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(recordsBucket).Put([]byte(rec.Key()), data)
	})
}

// Load returns the record stored under key, if any.
func (a *BoltArchiver) Load(_ context.Context, key string) (Record, bool, error) {
	var rec Record
	var found bool

	err := a.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(recordsBucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return Record{}, false, fmt.Errorf("archive: load record: %w", err)
	}

	return rec, found, nil
}

// List returns every stored record, in key order.
func (a *BoltArchiver) List(_ context.Context) ([]Record, error) {
	var out []Record

	err := a.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("archive: list records: %w", err)
	}

	return out, nil
}

// Close releases the underlying database file.
func (a *BoltArchiver) Close() error {
	return a.db.Close()
}
