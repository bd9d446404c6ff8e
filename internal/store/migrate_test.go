package store

import (
	"reflect"
	"testing"
	"testing/fstest"

	"roadmap/api/db/migrations"
)

func TestMigrationVersionsOrderAndFilter(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_user_votes.up.sql":      {Data: []byte("CREATE TABLE user_votes ();")},
		"0001_roadmap_state.up.sql":   {Data: []byte("CREATE TABLE roadmap_state ();")},
		"0003_later.up.sql":           {Data: []byte("SELECT 1;")},
		"0001_roadmap_state.down.sql": {Data: []byte("DROP TABLE roadmap_state;")},
		"README.md":                   {Data: []byte("notes")},
	}

	versions, err := migrationVersions(fsys)
	if err != nil {
		t.Fatalf("migrationVersions failed: %v", err)
	}
	want := []string{"0001_roadmap_state.up.sql", "0002_user_votes.up.sql", "0003_later.up.sql"}
	if !reflect.DeepEqual(versions, want) {
		t.Errorf("unexpected versions: got %v, want %v", versions, want)
	}
}

func TestMigrationVersionsEmpty(t *testing.T) {
	versions, err := migrationVersions(fstest.MapFS{})
	if err != nil {
		t.Fatalf("migrationVersions failed: %v", err)
	}
	if len(versions) != 0 {
		t.Errorf("expected no versions, got %v", versions)
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	versions, err := migrationVersions(migrations.Files)
	if err != nil {
		t.Fatalf("migrationVersions failed: %v", err)
	}
	if len(versions) < 2 {
		t.Fatalf("expected at least two embedded migrations, got %v", versions)
	}
	if versions[0] != "0001_roadmap_state.up.sql" {
		t.Errorf("expected roadmap_state migration first, got %q", versions[0])
	}
}
