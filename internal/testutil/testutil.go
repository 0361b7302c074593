// Package testutil provides shared test helpers for setting up stores and inbox directories.
package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/edital/internal/apperr"
	"github.com/starford/edital/internal/models"
	"github.com/starford/edital/internal/store"
)

// TestStore creates a temporary SQLite gateway that is automatically cleaned up.
func TestStore(t *testing.T) *store.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "edital-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestInbox creates a temporary inbox directory seeded with files.
func TestInbox(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// ErrInjected is returned by a FlakyStore with failing writes.
var ErrInjected = errors.New("injected failure: " + apperr.ErrUnavailable.Error())

// FlakyStore wraps a Gateway and can be told to fail writes or reads.
type FlakyStore struct {
	store.Gateway

	mu         sync.Mutex
	failWrites bool
	failReads  bool
	writes     int
}

// NewFlakyStore wraps g.
func NewFlakyStore(g store.Gateway) *FlakyStore {
	return &FlakyStore{Gateway: g}
}

// FailWrites toggles failure of Create, Replace, Merge and Delete.
func (f *FlakyStore) FailWrites(v bool) {
	f.mu.Lock()
	f.failWrites = v
	f.mu.Unlock()
}

// FailReads toggles failure of List and Get.
func (f *FlakyStore) FailReads(v bool) {
	f.mu.Lock()
	f.failReads = v
	f.mu.Unlock()
}

// Writes returns the number of write attempts seen.
func (f *FlakyStore) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *FlakyStore) write() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failWrites {
		return ErrInjected
	}
	return nil
}

func (f *FlakyStore) read() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return ErrInjected
	}
	return nil
}

func (f *FlakyStore) CreateSubject(ctx context.Context, ownerID, name string, topics []*models.Topic) (string, error) {
	if err := f.write(); err != nil {
		return "", err
	}
	return f.Gateway.CreateSubject(ctx, ownerID, name, topics)
}

func (f *FlakyStore) ReplaceSubject(ctx context.Context, id string, s models.Subject) error {
	if err := f.write(); err != nil {
		return err
	}
	return f.Gateway.ReplaceSubject(ctx, id, s)
}

func (f *FlakyStore) MergeSubject(ctx context.Context, id string, fields models.Fields) error {
	if err := f.write(); err != nil {
		return err
	}
	return f.Gateway.MergeSubject(ctx, id, fields)
}

func (f *FlakyStore) DeleteSubject(ctx context.Context, id string) error {
	if err := f.write(); err != nil {
		return err
	}
	return f.Gateway.DeleteSubject(ctx, id)
}

func (f *FlakyStore) ListSubjects(ctx context.Context, ownerID string) ([]models.Subject, error) {
	if err := f.read(); err != nil {
		return nil, err
	}
	return f.Gateway.ListSubjects(ctx, ownerID)
}

func (f *FlakyStore) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	if err := f.read(); err != nil {
		return nil, err
	}
	return f.Gateway.GetSubject(ctx, id)
}
