package migrations

import (
	"strings"
	"testing"
)

func TestMigrations_Discovered(t *testing.T) {
	sorted := Migrations.Sorted()
	if len(sorted) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(sorted))
	}
	m := sorted[0]
	if m.Name != "20251019000000" || m.Comment != "phone_verifications" {
		t.Fatalf("unexpected migration %s_%s", m.Name, m.Comment)
	}
	if m.Up == nil || m.Down == nil {
		t.Fatalf("expected both up and down registered")
	}
}

func TestMigrations_UpIsSplit(t *testing.T) {
	b, err := migrationFS.ReadFile("20251019000000_phone_verifications.up.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := strings.Count(string(b), "--bun:split"); n != 2 {
		t.Fatalf("expected statements separated by 2 bun:split markers, got %d", n)
	}
}
