package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/PaulFidika/otpkit/otp"
)

// ChallengeStore is an in-memory otp.ChallengeStore. Entries expire at the
// challenge's own ExpiresAt.
type ChallengeStore struct {
	mu   sync.Mutex
	data map[string]otp.Challenge
	now  func() time.Time
}

// NewChallengeStore creates an empty store. Expired entries are dropped on
// read and by Sweep.
func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{data: make(map[string]otp.Challenge), now: time.Now}
}

// WithNow overrides the clock used for expiry checks.
func (s *ChallengeStore) WithNow(now func() time.Time) *ChallengeStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *ChallengeStore) Put(ctx context.Context, ch otp.Challenge) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[ch.Phone] = ch
	return nil
}

func (s *ChallengeStore) Get(ctx context.Context, phone string) (otp.Challenge, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.data[phone]
	if !ok {
		return otp.Challenge{}, false, nil
	}
	if s.now().After(ch.ExpiresAt) {
		delete(s.data, phone)
		return otp.Challenge{}, false, nil
	}
	return ch, true, nil
}

// IncrAttempts counts one verification attempt against the challenge for
// phone under the store lock.
func (s *ChallengeStore) IncrAttempts(ctx context.Context, phone string) (otp.Challenge, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.data[phone]
	if !ok {
		return otp.Challenge{}, false, nil
	}
	if s.now().After(ch.ExpiresAt) {
		delete(s.data, phone)
		return otp.Challenge{}, false, nil
	}
	ch.Attempts++
	s.data[phone] = ch
	return ch, true, nil
}

func (s *ChallengeStore) Del(ctx context.Context, phone string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, phone)
	return nil
}

// Sweep removes every challenge expired at now and reports how many.
func (s *ChallengeStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, v := range s.data {
		if now.After(v.ExpiresAt) {
			delete(s.data, k)
			n++
		}
	}
	return n
}

// Len reports the number of stored challenges, expired or not.
func (s *ChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
