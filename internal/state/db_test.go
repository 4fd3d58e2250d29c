package state

import (
	"os"
	"testing"
	"time"

	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "fmts-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM fingerprints`).Scan(&count); err != nil {
		t.Fatalf("fingerprints table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM stamps`).Scan(&count); err != nil {
		t.Fatalf("stamps table missing: %v", err)
	}
}

func TestUpsertAndGetFingerprint(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertFingerprint("hello.md", "abc123"); err != nil {
		t.Fatalf("UpsertFingerprint: %v", err)
	}
	d, err := db.GetFingerprint("hello.md")
	if err != nil {
		t.Fatalf("GetFingerprint: %v", err)
	}
	if d != "abc123" {
		t.Errorf("digest = %q, want %q", d, "abc123")
	}

	// Upsert overwrites.
	_ = db.UpsertFingerprint("hello.md", "def456")
	d, _ = db.GetFingerprint("hello.md")
	if d != "def456" {
		t.Errorf("digest after upsert = %q, want %q", d, "def456")
	}
}

func TestGetFingerprint_Unknown(t *testing.T) {
	db := testDB(t)
	d, err := db.GetFingerprint("never-seen.md")
	if err != nil {
		t.Fatalf("GetFingerprint: %v", err)
	}
	if d != "" {
		t.Errorf("digest = %q, want empty", d)
	}
}

func TestGetFingerprint_ErrorPropagated(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertFingerprint("a.md", "abc"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := db.GetFingerprint("a.md"); err == nil {
		t.Error("closed database must surface an error, not read as unseen")
	}
}

func TestAllFingerprintsAndDelete(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertFingerprint("a.md", "1")
	_ = db.UpsertFingerprint("b.md", "2")

	all, err := db.AllFingerprints()
	if err != nil {
		t.Fatalf("AllFingerprints: %v", err)
	}
	if len(all) != 2 || all["a.md"] != "1" || all["b.md"] != "2" {
		t.Errorf("all = %v", all)
	}

	if err := db.DeletePath("a.md"); err != nil {
		t.Fatalf("DeletePath: %v", err)
	}
	all, _ = db.AllFingerprints()
	if _, ok := all["a.md"]; ok {
		t.Error("a.md should be gone")
	}
}

func TestStampLog(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC().Truncate(time.Second)
	events := []models.StampEvent{
		{Path: "a.md", Field: "created", Value: "T0", StampedAt: now},
		{Path: "a.md", Field: "modified", Value: "T1", StampedAt: now},
		{Path: "b.md", Field: "modified", Value: "T2", StampedAt: now},
	}
	for _, ev := range events {
		if err := db.RecordStamp(ev); err != nil {
			t.Fatalf("RecordStamp: %v", err)
		}
	}

	got, err := db.RecentStamps(10)
	if err != nil {
		t.Fatalf("RecentStamps: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Newest first.
	if got[0].Path != "b.md" || got[0].Value != "T2" {
		t.Errorf("got[0] = %+v", got[0])
	}

	limited, _ := db.RecentStamps(1)
	if len(limited) != 1 {
		t.Errorf("limit not applied: %d", len(limited))
	}
}
