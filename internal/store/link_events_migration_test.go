package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLinkEventsMigrationUsesBlockingTriggers(t *testing.T) {
	migrationPath := filepath.Join("..", "..", "db", "migrations", "0002_investor_link_events.up.sql")
	sqlBytes, err := os.ReadFile(migrationPath)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sqlText := string(sqlBytes)

	expectedSnippets := []string{
		"investor_link_events_immutable_guard",
		"RAISE EXCEPTION",
		"CREATE TRIGGER trg_link_events_block_update",
		"CREATE TRIGGER trg_link_events_block_delete",
	}
	for _, snippet := range expectedSnippets {
		if !strings.Contains(sqlText, snippet) {
			t.Fatalf("expected migration to contain %q", snippet)
		}
	}
}

func TestInitMigrationConstrainsMatchType(t *testing.T) {
	sqlBytes, err := os.ReadFile(filepath.Join("..", "..", "db", "migrations", "0001_init.up.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(sqlBytes), "client_company_match_type IN ('manual', 'exact', 'normalized')") {
		t.Fatal("expected a CHECK constraint on client_company_match_type")
	}
}
