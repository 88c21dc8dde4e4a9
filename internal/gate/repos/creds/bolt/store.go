// Package bolt persists vault credentials in a bbolt bucket.
package bolt

import (
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/sitegate/internal/gate/repos/creds"
)

var (
	bucketCreds = []byte("credentials")
	keySalt     = []byte("salt")
	keyVerifier = []byte("verifier")
)

type credStore struct {
	db *bbolt.DB
}

// New opens (or creates) a Bolt database at path for credential storage.
func New(path string) (creds.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCreds)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &credStore{db: db}, nil
}

func (s *credStore) Close() error { return s.db.Close() }

func (s *credStore) Load() (creds.Credentials, bool, error) {
	var c creds.Credentials
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCreds)
		if v := b.Get(keySalt); v != nil {
			c.Salt = append([]byte(nil), v...)
		}
		if v := b.Get(keyVerifier); v != nil {
			c.Verifier = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return creds.Credentials{}, false, err
	}
	return c, len(c.Salt) > 0 && len(c.Verifier) > 0, nil
}

func (s *credStore) Save(c creds.Credentials) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCreds)
		if err := b.Put(keySalt, c.Salt); err != nil {
			return err
		}
		return b.Put(keyVerifier, c.Verifier)
	})
}

var _ creds.Store = (*credStore)(nil)
