package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/gyaneshwarpardhi/formplugins/internal/form"
)

var (
	ErrAlreadySubmitted = errors.New("you have already filled in this form")
	ErrNotFound         = errors.New("submission not found")
)

const (
	submissionsPrefix = "submissions:"
	usersPrefix       = "users:"
)

// Store persists submissions in a bbolt file. Each form gets a bucket of
// submissions keyed by their index, and a bucket mapping user logins to the
// index of their submission.
type Store struct {
	filename string
	db       *bolt.DB
}

// Open opens (or creates) the database file.
func Open(filename string) (*Store, error) {
	db, err := bolt.Open(filename, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open submission store %s", filename)
	}
	return &Store{filename: filename, db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores sub under its form and sets sub.Index to the next index of
// that form, starting at 1. When unique is set and sub.User already
// submitted the form, nothing is written and ErrAlreadySubmitted is returned.
func (s *Store) Save(ctx context.Context, sub *form.Submission, unique bool) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		subs, err := tx.CreateBucketIfNotExists([]byte(submissionsPrefix + sub.FormSlug))
		if err != nil {
			return err
		}
		users, err := tx.CreateBucketIfNotExists([]byte(usersPrefix + sub.FormSlug))
		if err != nil {
			return err
		}
		if unique && sub.User != "" && users.Get([]byte(sub.User)) != nil {
			return ErrAlreadySubmitted
		}

		seq, err := subs.NextSequence()
		if err != nil {
			return err
		}
		sub.Index = seq
		js, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		key := itob(seq)
		if err := subs.Put(key, js); err != nil {
			return err
		}
		if sub.User != "" {
			return users.Put([]byte(sub.User), key)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "save submission of %s", sub.FormSlug)
	}
	return sub.Index, nil
}

// HasUser reports whether login already submitted the form.
func (s *Store) HasUser(ctx context.Context, formSlug, login string) (bool, error) {
	if login == "" {
		return false, nil
	}
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(usersPrefix + formSlug)); b != nil {
			found = b.Get([]byte(login)) != nil
		}
		return nil
	})
	return found, err
}

// Get loads the submission with the given index.
func (s *Store) Get(ctx context.Context, formSlug string, index uint64) (*form.Submission, error) {
	var sub form.Submission
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(submissionsPrefix + formSlug))
		if b == nil {
			return ErrNotFound
		}
		js := b.Get(itob(index))
		if js == nil {
			return ErrNotFound
		}
		return json.Unmarshal(js, &sub)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get submission %s#%d", formSlug, index)
	}
	return &sub, nil
}

// Count returns the number of stored submissions of a form.
func (s *Store) Count(ctx context.Context, formSlug string) (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(submissionsPrefix + formSlug)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
