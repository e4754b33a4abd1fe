package pricing

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestStoreActiveRate exercises the rates schema/scan contract against a real
// database: inserted rows scan cleanly and the newest active row wins.
func TestStoreActiveRate(t *testing.T) {
	store, db := setupRateStore(t)
	ctx := context.Background()

	if _, err := store.ActiveRate(ctx); !errors.Is(err, ErrNoRate) {
		t.Fatalf("expected ErrNoRate on empty table, got %v", err)
	}

	if _, err := db.Exec(ctx, `
        INSERT INTO rates (base_fare, per_km, currency, active) VALUES
            (10000, 1500, 'INR', TRUE),
            (12000, 1800, 'INR', FALSE),
            (20000, 2000, 'INR', TRUE)`); err != nil {
		t.Fatalf("seed rates: %v", err)
	}

	r, err := store.ActiveRate(ctx)
	if err != nil {
		t.Fatalf("active rate: %v", err)
	}
	if r.BaseFare != 20000 || r.PerKm != 2000 {
		t.Fatalf("expected newest active rate (20000/2000), got %+v", r)
	}
	if !r.Active || r.Currency != "INR" {
		t.Fatalf("unexpected rate fields: %+v", r)
	}
	if r.ID == 0 {
		t.Fatal("expected generated id to scan")
	}
}

func setupRateStore(t *testing.T) (*Store, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("PHLEBO_TEST_DSN")
	if dsn == "" {
		t.Skip("PHLEBO_TEST_DSN not set; skipping DB-backed rate tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyRateMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	if _, err := db.Exec(ctx, "TRUNCATE TABLE rates"); err != nil {
		t.Fatalf("truncate rates: %v", err)
	}

	return NewStore(db), db
}

func applyRateMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := rateRepoRoot()
	if err != nil {
		return err
	}
	path := filepath.Join(root, "migrations", "0001_init.up.sql")
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	for _, stmt := range splitRateSQL(stripRateSQLComments(string(content))) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func rateRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripRateSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitRateSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
