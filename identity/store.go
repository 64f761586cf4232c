// Package identity records verified phone numbers in Postgres.
package identity

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store writes the phone_verifications table.
type Store struct {
	pg     *pgxpool.Pool
	schema string
}

func NewStore(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "profiles"
	}
	return &Store{pg: pg, schema: s}
}

func (s *Store) table() string { return s.schema + ".phone_verifications" }

// MarkPhoneVerified upserts phone with the verification time, counting
// repeat verifications.
func (s *Store) MarkPhoneVerified(ctx context.Context, phone string, at time.Time) error {
	if s.pg == nil {
		return nil
	}
	_, err := s.pg.Exec(ctx, `INSERT INTO `+s.table()+` (phone_number, verified_at)
		VALUES ($1, $2)
		ON CONFLICT (phone_number) DO UPDATE
		SET verified_at = EXCLUDED.verified_at,
		    verify_count = `+s.table()+`.verify_count + 1`, phone, at.UTC())
	return err
}
