package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/starford/edital/internal/apperr"
	"github.com/starford/edital/internal/models"
	"github.com/starford/edital/internal/outline"
)

func testDB(t *testing.T) *SQLite {
	t.Helper()
	f, err := os.CreateTemp("", "edital-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := OpenSQLite(f.Name())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM subjects`).Scan(&count); err != nil {
		t.Fatalf("subjects table missing: %v", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	topics := outline.Parse("Direito\n- Constitucional\nPortuguês")

	id, err := db.CreateSubject(ctx, "u1", "Concurso", topics)
	if err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	if id == "" {
		t.Fatal("empty id")
	}
	s, err := db.GetSubject(ctx, id)
	if err != nil {
		t.Fatalf("GetSubject: %v", err)
	}
	if s.OwnerID != "u1" || s.Name != "Concurso" {
		t.Errorf("subject = %+v", s)
	}
	if len(s.Topics) != 2 || s.Topics[0].Children[0].Name != "Constitucional" {
		t.Errorf("topics not round-tripped: %+v", s.Topics)
	}
	if s.Revision == "" || s.CreatedAt.IsZero() {
		t.Errorf("revision = %q, created_at = %v", s.Revision, s.CreatedAt)
	}
}

func TestListFiltersByOwnerInOrder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C"} {
		if _, err := db.CreateSubject(ctx, "u1", name, nil); err != nil {
			t.Fatal(err)
		}
	}
	_, _ = db.CreateSubject(ctx, "u2", "Other", nil)

	list, err := db.ListSubjects(ctx, "u1")
	if err != nil {
		t.Fatalf("ListSubjects: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, want := range []string{"A", "B", "C"} {
		if list[i].Name != want {
			t.Errorf("list[%d] = %q, want %q", i, list[i].Name, want)
		}
		if list[i].Topics == nil {
			t.Errorf("list[%d] topics is nil", i)
		}
	}

	empty, err := db.ListSubjects(ctx, "nobody")
	if err != nil || len(empty) != 0 {
		t.Errorf("unknown owner: %v, %v", empty, err)
	}
}

func TestReplaceOverwritesTopics(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	id, _ := db.CreateSubject(ctx, "u1", "Old", outline.Parse("A\n- B"))
	before, _ := db.GetSubject(ctx, id)

	err := db.ReplaceSubject(ctx, id, models.Subject{Name: "New", Topics: outline.Parse("X")})
	if err != nil {
		t.Fatalf("ReplaceSubject: %v", err)
	}
	s, _ := db.GetSubject(ctx, id)
	if s.Name != "New" || len(s.Topics) != 1 || s.Topics[0].Name != "X" {
		t.Errorf("subject = %+v", s)
	}
	if s.OwnerID != "u1" {
		t.Errorf("owner changed to %q", s.OwnerID)
	}
	if s.Revision == before.Revision {
		t.Error("revision should change on replace")
	}
}

func TestMergeOnlyTouchesSetFields(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	id, _ := db.CreateSubject(ctx, "u1", "Keep", outline.Parse("A\nB"))

	topics := outline.Parse("A\nB")
	topics[1].Done = true
	if err := db.MergeSubject(ctx, id, models.Fields{Topics: topics}); err != nil {
		t.Fatalf("MergeSubject: %v", err)
	}
	s, _ := db.GetSubject(ctx, id)
	if s.Name != "Keep" {
		t.Errorf("name = %q, want Keep", s.Name)
	}
	if !s.Topics[1].Done || s.Topics[0].Done {
		t.Errorf("topics = %+v", s.Topics)
	}

	name := "Renamed"
	if err := db.MergeSubject(ctx, id, models.Fields{Name: &name}); err != nil {
		t.Fatalf("MergeSubject name: %v", err)
	}
	s, _ = db.GetSubject(ctx, id)
	if s.Name != "Renamed" || !s.Topics[1].Done {
		t.Errorf("subject = %+v", s)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	id, _ := db.CreateSubject(ctx, "u1", "Gone", nil)
	if err := db.DeleteSubject(ctx, id); err != nil {
		t.Fatalf("DeleteSubject: %v", err)
	}
	if _, err := db.GetSubject(ctx, id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
}

func TestUnknownIDIsNotFound(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	name := "x"
	checks := map[string]error{
		"replace": db.ReplaceSubject(ctx, "nope", models.Subject{Name: "x"}),
		"merge":   db.MergeSubject(ctx, "nope", models.Fields{Name: &name}),
		"delete":  db.DeleteSubject(ctx, "nope"),
	}
	for op, err := range checks {
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("%s err = %v, want ErrNotFound", op, err)
		}
	}
}
