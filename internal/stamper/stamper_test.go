package stamper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/apperr"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/fingerprint"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/frontmatter"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/state"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/storage"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/testutil"
)

var fixedNow = func() time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	svc    *Service
	store  storage.Provider
	db     *state.DB
	events []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)

	f := &fixture{store: store, db: db}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = New(store, db, frontmatter.TextMerger{}, Options{
		CreatedKey:  "created",
		ModifiedKey: "modified",
		DateFormat:  "2006-01-02T15:04:05Z07:00",
		UTC:         true,
		Now:         fixedNow,
	}, func(kind, path string) {
		f.events = append(f.events, kind+":"+path)
	}, logger)
	return f
}

func TestStampModified_UpdatesField(t *testing.T) {
	f := newFixture(t)
	_ = f.store.Write("note.md", []byte("---\ntitle: A\nmodified: old\n---\nbody\n"))

	if err := f.svc.StampModified(context.Background(), "note.md"); err != nil {
		t.Fatalf("StampModified: %v", err)
	}

	data, _ := f.store.Read("note.md")
	want := "---\ntitle: A\nmodified: 2024-06-01T00:00:00Z\n---\nbody\n"
	if string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}
	if len(f.events) != 1 || f.events[0] != "stamped:note.md" {
		t.Errorf("events = %v", f.events)
	}
}

func TestStampModified_AppendsMissingField(t *testing.T) {
	f := newFixture(t)
	_ = f.store.Write("note.md", []byte("---\ncreated: 2024-01-01T00:00:00Z\n---\nbody"))

	if err := f.svc.StampModified(context.Background(), "note.md"); err != nil {
		t.Fatalf("StampModified: %v", err)
	}

	data, _ := f.store.Read("note.md")
	want := "---\ncreated: 2024-01-01T00:00:00Z\nmodified: 2024-06-01T00:00:00Z\n---\nbody"
	if string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}
}

func TestStampModified_UpdatesBaselineAndAudit(t *testing.T) {
	f := newFixture(t)
	_ = f.store.Write("note.md", []byte("---\ntitle: A\n---\n"))

	if err := f.svc.StampModified(context.Background(), "note.md"); err != nil {
		t.Fatalf("StampModified: %v", err)
	}

	data, _ := f.store.Read("note.md")
	digest, err := f.db.GetFingerprint("note.md")
	if err != nil {
		t.Fatalf("GetFingerprint: %v", err)
	}
	if digest != fingerprint.Sum(data) {
		t.Error("baseline fingerprint does not match stamped content")
	}

	stamps, err := f.db.RecentStamps(10)
	if err != nil {
		t.Fatalf("RecentStamps: %v", err)
	}
	if len(stamps) != 1 || stamps[0].Field != "modified" {
		t.Errorf("stamps = %+v", stamps)
	}
}

func TestStampModified_NoHeaderIsNoOp(t *testing.T) {
	f := newFixture(t)
	original := "no front matter here\n"
	_ = f.store.Write("plain.md", []byte(original))

	if err := f.svc.StampModified(context.Background(), "plain.md"); err != nil {
		t.Fatalf("StampModified: %v", err)
	}

	data, _ := f.store.Read("plain.md")
	if string(data) != original {
		t.Errorf("headerless file modified: %q", data)
	}
	if len(f.events) != 0 {
		t.Errorf("no events expected, got %v", f.events)
	}
	stamps, _ := f.db.RecentStamps(10)
	if len(stamps) != 0 {
		t.Errorf("no audit entries expected, got %+v", stamps)
	}
}

func TestStampModified_MissingFile(t *testing.T) {
	f := newFixture(t)
	err := f.svc.StampModified(context.Background(), "gone.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStampModified_SameValueSkipsWrite(t *testing.T) {
	f := newFixture(t)
	content := "---\nmodified: 2024-06-01T00:00:00Z\n---\nbody\n"
	_ = f.store.Write("note.md", []byte(content))

	if err := f.svc.StampModified(context.Background(), "note.md"); err != nil {
		t.Fatalf("StampModified: %v", err)
	}
	if len(f.events) != 0 {
		t.Errorf("idempotent stamp should not notify, got %v", f.events)
	}
}

func TestSelfWrote_TracksWriteBacks(t *testing.T) {
	f := newFixture(t)
	_ = f.store.Write("note.md", []byte("---\ntitle: A\n---\nbody\n"))

	if f.svc.SelfWrote("note.md") {
		t.Fatal("SelfWrote true before any stamp")
	}
	if err := f.svc.StampModified(context.Background(), "note.md"); err != nil {
		t.Fatalf("StampModified: %v", err)
	}
	if !f.svc.SelfWrote("note.md") {
		t.Error("SelfWrote false right after a stamp write")
	}
	if f.svc.SelfWrote("other.md") {
		t.Error("SelfWrote true for a path that was never written")
	}
}

func TestSelfWrote_NoOpStampDoesNotMark(t *testing.T) {
	f := newFixture(t)
	// Content without a front matter block is skipped without a write.
	_ = f.store.Write("plain.md", []byte("just text\n"))

	if err := f.svc.StampModified(context.Background(), "plain.md"); err != nil {
		t.Fatalf("StampModified: %v", err)
	}
	if f.svc.SelfWrote("plain.md") {
		t.Error("skipped document marked as self-write")
	}
}

func TestStampNew_SetsCreatedAndModified(t *testing.T) {
	f := newFixture(t)
	_ = f.store.Write("new.md", []byte("---\ntitle: Fresh\n---\n"))

	if err := f.svc.StampNew(context.Background(), "new.md"); err != nil {
		t.Fatalf("StampNew: %v", err)
	}

	data, _ := f.store.Read("new.md")
	want := "---\ntitle: Fresh\ncreated: 2024-06-01T00:00:00Z\nmodified: 2024-06-01T00:00:00Z\n---\n"
	if string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}
	if len(f.events) != 1 || f.events[0] != "created:new.md" {
		t.Errorf("events = %v", f.events)
	}
}

func TestStampNew_KeepsExistingCreated(t *testing.T) {
	f := newFixture(t)
	_ = f.store.Write("tmpl.md", []byte("---\ncreated: 2020-01-01T00:00:00Z\n---\n"))

	if err := f.svc.StampNew(context.Background(), "tmpl.md"); err != nil {
		t.Fatalf("StampNew: %v", err)
	}

	data, _ := f.store.Read("tmpl.md")
	want := "---\ncreated: 2020-01-01T00:00:00Z\nmodified: 2024-06-01T00:00:00Z\n---\n"
	if string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}
}

func TestStampNew_YAMLMerger(t *testing.T) {
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(store, db, frontmatter.YAMLMerger{}, Options{
		CreatedKey:  "created",
		ModifiedKey: "modified",
		DateFormat:  "2006-01-02T15:04:05Z07:00",
		UTC:         true,
		Now:         fixedNow,
	}, nil, logger)

	_ = store.Write("note.md", []byte("---\ntitle: A\n---\nbody\n"))
	if err := svc.StampNew(context.Background(), "note.md"); err != nil {
		t.Fatalf("StampNew: %v", err)
	}

	data, _ := store.Read("note.md")
	for _, key := range []string{"created", "modified"} {
		v, ok := frontmatter.Get(data, key)
		if !ok || v == "" {
			t.Errorf("field %q missing after structured merge: %q", key, data)
		}
	}
}
