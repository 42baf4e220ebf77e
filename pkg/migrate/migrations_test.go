package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations failed validation: %v", err)
	}
}

func TestLeadsMigrationContainsSchema(t *testing.T) {
	content := readMigration(t, "*_create_leads.sql")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS leads",
		"quiz_data jsonb NOT NULL",
		"plan_data jsonb",
		"DROP TABLE IF EXISTS leads",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestProcessedIntentsMigrationIsUniquePerScope(t *testing.T) {
	content := readMigration(t, "*_create_processed_intents.sql")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS processed_intents",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_processed_intents_scope_intent ON processed_intents (scope, intent_id)",
		"DROP TABLE IF EXISTS processed_intents",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestProcessedIntentsAllowPermanentClaims(t *testing.T) {
	content := readMigration(t, "*_processed_intents_permanent_claims.sql")
	if !strings.Contains(content, "ALTER COLUMN expires_at DROP NOT NULL") {
		t.Errorf("expected expires_at to become nullable")
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embedded, err := fs.Glob(embeddedMigrations, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embedded) != len(onDisk) || len(onDisk) == 0 {
		t.Fatalf("embedded=%d disk=%d", len(embedded), len(onDisk))
	}
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "leads.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail validation")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Lead Source!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "_add_lead_source.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
