package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/PaulFidika/otpkit/otp"
	"github.com/redis/go-redis/v9"
)

// ChallengeStore keeps one hash per phone. Keys expire with the challenge;
// the attempt counter is bumped in place so its TTL is never touched.
type ChallengeStore struct {
	rdb   redis.UniversalClient
	keyNS string
}

func NewChallengeStore(rdb redis.UniversalClient, keyPrefix string) *ChallengeStore {
	if keyPrefix == "" {
		keyPrefix = "otp:"
	}
	return &ChallengeStore{rdb: rdb, keyNS: keyPrefix + "challenge:"}
}

func (s *ChallengeStore) key(phone string) string { return s.keyNS + phone }

// Put replaces any pending challenge for the phone.
func (s *ChallengeStore) Put(ctx context.Context, ch otp.Challenge) error {
	key := s.key(ch.Phone)
	if !time.Now().Before(ch.ExpiresAt) {
		return s.rdb.Del(ctx, key).Err()
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, toFields(ch)...)
		pipe.PExpireAt(ctx, key, ch.ExpiresAt)
		return nil
	})
	return err
}

func (s *ChallengeStore) Get(ctx context.Context, phone string) (otp.Challenge, bool, error) {
	m, err := s.rdb.HGetAll(ctx, s.key(phone)).Result()
	if err != nil {
		return otp.Challenge{}, false, err
	}
	if len(m) == 0 {
		return otp.Challenge{}, false, nil
	}
	ch, err := fromFields(m)
	if err != nil {
		return otp.Challenge{}, false, err
	}
	return ch, true, nil
}

var incrAttempts = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return false
end
redis.call("HINCRBY", KEYS[1], "attempts", 1)
return redis.call("HGETALL", KEYS[1])
`)

// IncrAttempts bumps the attempt counter and reads the challenge back in
// one script run.
func (s *ChallengeStore) IncrAttempts(ctx context.Context, phone string) (otp.Challenge, bool, error) {
	vals, err := incrAttempts.Run(ctx, s.rdb, []string{s.key(phone)}).StringSlice()
	if err == redis.Nil {
		return otp.Challenge{}, false, nil
	}
	if err != nil {
		return otp.Challenge{}, false, err
	}
	m := make(map[string]string, len(vals)/2)
	for i := 0; i+1 < len(vals); i += 2 {
		m[vals[i]] = vals[i+1]
	}
	ch, err := fromFields(m)
	if err != nil {
		return otp.Challenge{}, false, err
	}
	return ch, true, nil
}

func (s *ChallengeStore) Del(ctx context.Context, phone string) error {
	return s.rdb.Del(ctx, s.key(phone)).Err()
}

func toFields(ch otp.Challenge) []interface{} {
	return []interface{}{
		"id", ch.ID,
		"phone", ch.Phone,
		"code_hash", ch.CodeHash,
		"attempts", strconv.Itoa(ch.Attempts),
		"created_at", ch.CreatedAt.Format(time.RFC3339Nano),
		"expires_at", ch.ExpiresAt.Format(time.RFC3339Nano),
	}
}

func fromFields(m map[string]string) (otp.Challenge, error) {
	attempts, err := strconv.Atoi(m["attempts"])
	if err != nil {
		return otp.Challenge{}, fmt.Errorf("redisstore: attempts: %w", err)
	}
	created, err := time.Parse(time.RFC3339Nano, m["created_at"])
	if err != nil {
		return otp.Challenge{}, fmt.Errorf("redisstore: created_at: %w", err)
	}
	expires, err := time.Parse(time.RFC3339Nano, m["expires_at"])
	if err != nil {
		return otp.Challenge{}, fmt.Errorf("redisstore: expires_at: %w", err)
	}
	return otp.Challenge{
		ID:        m["id"],
		Phone:     m["phone"],
		CodeHash:  m["code_hash"],
		Attempts:  attempts,
		CreatedAt: created,
		ExpiresAt: expires,
	}, nil
}
