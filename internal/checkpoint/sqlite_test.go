package checkpoint

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoad(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	state := []byte(`{"iteration":3}`)
	if err := store.Save(ctx, "sess-1", state); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !bytes.Equal(got, state) {
		t.Fatalf("loaded state %q, want %q", got, state)
	}
}

func TestLoadMissingSessionReturnsNil(t *testing.T) {
	store := openStore(t)

	got, err := store.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("load of missing session errored: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil state, got %q", got)
	}
}

func TestSaveOverwritesPrevious(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "sess-1", []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, "sess-1", []byte("second")); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Fatalf("expected latest state, got %q", got)
	}
}

func TestDeleteAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := store.Save(ctx, id, []byte(id)); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := store.Sessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(ids))
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("deleted checkpoint still loads")
	}
}
