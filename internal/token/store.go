package token

import (
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 60 * time.Minute

var (
	ErrInvalidToken = errors.New("this token is not valid")
	ErrInvalidEmail = errors.New("this e-mail is not valid")
)

// Store holds validation tokens and the time they were issued.
// It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	issued map[string]time.Time
}

// NewStore returns an empty store. A non-positive ttl means DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{ttl: ttl, now: time.Now, issued: make(map[string]time.Time)}
}

// WithClock replaces the clock used when issuing tokens.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Issue creates a token for email: the base64 encoded address, a dash and a
// random UUID.
func (s *Store) Issue(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrInvalidEmail
	}
	tok := base64.StdEncoding.EncodeToString([]byte(email)) + "-" + uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[tok] = s.now()
	return tok, nil
}

// Valid reports whether tok was issued and not yet swept or consumed.
func (s *Store) Valid(tok string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.issued[tok]
	return ok
}

// Consume removes tok and returns the e-mail address it carries.
func (s *Store) Consume(tok string) (string, error) {
	s.mu.Lock()
	_, ok := s.issued[tok]
	delete(s.issued, tok)
	s.mu.Unlock()
	if !ok {
		return "", ErrInvalidToken
	}
	return Email(tok)
}

// Sweep removes tokens older than the TTL at now and returns how many were
// removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for tok, at := range s.issued {
		if now.Sub(at) > s.ttl {
			delete(s.issued, tok)
			removed++
		}
	}
	return removed
}

// Len returns the number of live tokens.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issued)
}

// Email decodes the address carried by tok.
func Email(tok string) (string, error) {
	encoded, _, ok := strings.Cut(tok, "-")
	if !ok {
		return "", errors.Wrap(ErrInvalidToken, "missing separator")
	}
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "decode token"), ErrInvalidToken)
	}
	return string(b), nil
}
