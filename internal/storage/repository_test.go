package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_PutGetList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	err := repo.Put(ctx, Properties,
		Document{ID: "p2", Body: json.RawMessage(`{"id":"p2","name":"B"}`)},
		Document{ID: "p1", Body: json.RawMessage(`{"id":"p1","name":"A"}`)},
	)
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	// Replacing keeps insertion order.
	if err := repo.Put(ctx, Properties, Document{ID: "p2", Body: json.RawMessage(`{"id":"p2","name":"B2"}`)}); err != nil {
		t.Fatalf("Put() replace error: %v", err)
	}

	docs, err := repo.List(ctx, Properties)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "p2" || docs[1].ID != "p1" {
		t.Fatalf("List() = %+v, want p2 then p1", docs)
	}
	if string(docs[0].Body) != `{"id":"p2","name":"B2"}` {
		t.Errorf("body not replaced: %s", docs[0].Body)
	}

	body, err := repo.Get(ctx, Properties, "p1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(body) != `{"id":"p1","name":"A"}` {
		t.Errorf("Get() = %s", body)
	}

	other, err := repo.List(ctx, Tenants)
	if err != nil || len(other) != 0 {
		t.Errorf("collections leak: %+v, %v", other, err)
	}
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.Get(ctx, Alerts, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, Alerts, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.Put(ctx, Alerts, Document{ID: "a1", Body: json.RawMessage(`{}`)}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, Alerts, "a1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := repo.Get(ctx, Alerts, "a1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("document still present: %v", err)
	}
}

func TestSQLiteRepository_UnknownCollection(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.List(ctx, "documents"); !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("List() error = %v", err)
	}
	if err := repo.Put(ctx, "x", Document{ID: "1"}); !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("Put() error = %v", err)
	}
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Put(ctx, Tenants, Document{ID: "tn1", Body: json.RawMessage(`{"id":"tn1"}`)}); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	if _, err := repo.Get(ctx, Tenants, "tn1"); err != nil {
		t.Errorf("Get() after reopen: %v", err)
	}
}
