// Package results persists trial outcomes so separate tools can write and
// analyze them without sharing a process.
package results

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/nocfab/nocsim/ctrl/trial"
)

var trialsBucket = []byte("trials")

// Record is one stored trial: the options it ran with and what came out.
type Record struct {
	ID      string
	When    time.Time
	Options trial.Options
	Result  trial.Result
}

type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "opening results store %q", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(trialsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating trials bucket")
	}
	return &Store{db: db}, nil
}

func (s *Store) Put(rec Record) error {
	if rec.ID == "" {
		return errors.New("record must carry an ID")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encoding trial record")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(trialsBucket).Put([]byte(rec.ID), data)
	})
}

// Each visits every stored record; iteration stops on the first error.
func (s *Store) Each(fn func(Record) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(trialsBucket).ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return errors.Wrapf(err, "decoding trial record %q", string(k))
			}
			return fn(rec)
		})
	})
}

func (s *Store) Count() (count int) {
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(trialsBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0
	}
	return count
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
