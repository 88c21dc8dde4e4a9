// Package bolt persists the rule set in a bbolt database with one bucket
// per rule kind. Values are JSON so the on-disk shape matches the
// interchange format for schedules and timers.
package bolt

import (
	"encoding/json"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/sitegate/internal/gate/common/log"
	"github.com/haukened/sitegate/internal/gate/domain"
	"github.com/haukened/sitegate/internal/gate/repos/rules"
)

var (
	bucketInstant   = []byte("instant")
	bucketSchedules = []byte("schedules")
	bucketTimers    = []byte("timers")
)

// ruleStore implements rules.Store using bbolt.
type ruleStore struct {
	db     *bbolt.DB
	logger log.Logger
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string, logger log.Logger) (rules.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketInstant, bucketSchedules, bucketTimers} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &ruleStore{db: db, logger: logger}, nil
}

func (s *ruleStore) Close() error { return s.db.Close() }

// Load materializes the full rule set. Corrupt per-origin values are
// logged and skipped so one bad entry cannot block the rest.
func (s *ruleStore) Load() (domain.RuleSet, error) {
	rs := domain.NewRuleSet()
	err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketInstant); b != nil {
			if err := b.ForEach(func(k, _ []byte) error {
				rs.Instant[string(k)] = struct{}{}
				return nil
			}); err != nil {
				return err
			}
		}
		if b := tx.Bucket(bucketSchedules); b != nil {
			if err := b.ForEach(func(k, v []byte) error {
				var list []domain.ScheduleRule
				if err := json.Unmarshal(v, &list); err != nil {
					s.logger.Warn(map[string]any{
						"origin": string(k),
						"error":  err.Error(),
					}, "Skipping corrupt schedule entry")
					return nil
				}
				if len(list) > 0 {
					rs.Schedules[string(k)] = list
				}
				return nil
			}); err != nil {
				return err
			}
		}
		if b := tx.Bucket(bucketTimers); b != nil {
			if err := b.ForEach(func(k, v []byte) error {
				var t domain.TimerRule
				if err := json.Unmarshal(v, &t); err != nil {
					s.logger.Warn(map[string]any{
						"origin": string(k),
						"error":  err.Error(),
					}, "Skipping corrupt timer entry")
					return nil
				}
				rs.Timers[string(k)] = t
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.RuleSet{}, err
	}
	return rs, nil
}

// Save rewrites all three buckets from the snapshot in one transaction.
func (s *ruleStore) Save(rs domain.RuleSet) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketInstant, bucketSchedules, bucketTimers} {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}

		b := tx.Bucket(bucketInstant)
		for origin := range rs.Instant {
			if err := b.Put([]byte(origin), []byte{1}); err != nil {
				return err
			}
		}

		b = tx.Bucket(bucketSchedules)
		for origin, list := range rs.Schedules {
			v, err := json.Marshal(list)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(origin), v); err != nil {
				return err
			}
		}

		b = tx.Bucket(bucketTimers)
		for origin, t := range rs.Timers {
			v, err := json.Marshal(t)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(origin), v); err != nil {
				return err
			}
		}
		return nil
	})
}

var _ rules.Store = (*ruleStore)(nil)
