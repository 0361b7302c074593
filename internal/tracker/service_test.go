package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/starford/edital/internal/apperr"
	"github.com/starford/edital/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) SubjectChanged(kind, ownerID, subjectID string) {
	r.mu.Lock()
	r.events = append(r.events, kind+":"+ownerID)
	r.mu.Unlock()
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func setup(t *testing.T) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	return NewService(testutil.TestStore(t), rec, nil), rec
}

func TestService_CreateParsesOutline(t *testing.T) {
	svc, rec := setup(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, "u1", "Concurso", "Direito\n- Constitucional\n- Administrativo\nPortuguês")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.Name != "Concurso" {
		t.Errorf("name = %q, want %q", d.Name, "Concurso")
	}
	if len(d.Topics) != 2 {
		t.Fatalf("topics = %d, want 2", len(d.Topics))
	}
	if d.Items != 4 {
		t.Errorf("items = %d, want 4", d.Items)
	}
	if d.Percentage != 0 {
		t.Errorf("percentage = %v, want 0", d.Percentage)
	}
	if d.Revision == "" {
		t.Error("empty revision")
	}
	if got := rec.kinds(); len(got) != 1 || got[0] != "created:u1" {
		t.Errorf("events = %v", got)
	}
}

func TestService_CreateEditedKeepsDoneMarks(t *testing.T) {
	svc, _ := setup(t)
	d, err := svc.CreateEdited(context.Background(), "u1", "Direito", "A (lido)\n- a1 (lido)\nB")
	if err != nil {
		t.Fatalf("CreateEdited: %v", err)
	}
	if len(d.Topics) != 2 {
		t.Fatalf("topics = %d, want 2", len(d.Topics))
	}
	a := d.Topics[0]
	if a.Name != "A" || !a.Done {
		t.Errorf("topic = %q done=%v, want %q done=true", a.Name, a.Done, "A")
	}
	if len(a.Children) != 1 || !a.Children[0].Done || a.Children[0].Name != "a1" {
		t.Errorf("child = %+v", a.Children)
	}
	if d.Percentage != 50 {
		t.Errorf("percentage = %v, want 50", d.Percentage)
	}
}

func TestService_OwnerRequired(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.Create(context.Background(), " ", "X", "a")
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestService_OtherOwnerIsNotFound(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, "u1", "X", "a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, "u2", d.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get as other owner: err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "u2", d.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Delete as other owner: err = %v, want ErrNotFound", err)
	}
	list, err := svc.List(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("u2 sees %d subjects", len(list))
	}
}

func TestService_ToggleAndPercentage(t *testing.T) {
	svc, rec := setup(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, "u1", "X", "A\nB")
	if err != nil {
		t.Fatal(err)
	}

	d, err = svc.Toggle(ctx, "u1", d.ID, []int{1})
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !d.Topics[1].Done || d.Topics[0].Done {
		t.Errorf("done = %v/%v, want false/true", d.Topics[0].Done, d.Topics[1].Done)
	}
	if d.Percentage != 50 {
		t.Errorf("percentage = %v, want 50", d.Percentage)
	}

	d, err = svc.Toggle(ctx, "u1", d.ID, []int{1})
	if err != nil {
		t.Fatal(err)
	}
	if d.Topics[1].Done {
		t.Error("second toggle did not clear done")
	}
	got := rec.kinds()
	if got[len(got)-1] != "toggled:u1" {
		t.Errorf("last event = %q", got[len(got)-1])
	}
}

func TestService_ToggleNested(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	d, _ := svc.Create(ctx, "u1", "X", "A\n- a1\n- a2")

	d, err := svc.Toggle(ctx, "u1", d.ID, []int{0, 1})
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !d.Topics[0].Children[1].Done {
		t.Error("nested topic not done")
	}
	if d.Percentage != 0 {
		t.Errorf("nested toggle changed percentage: %v", d.Percentage)
	}
	if d.Done != 1 {
		t.Errorf("done count = %d, want 1", d.Done)
	}
}

func TestService_ToggleOutOfRange(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	d, _ := svc.Create(ctx, "u1", "X", "A")
	if _, err := svc.Toggle(ctx, "u1", d.ID, []int{3}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestService_UpdateReplacesWholesale(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	d, _ := svc.Create(ctx, "u1", "X", "A\nB")
	d, _ = svc.Toggle(ctx, "u1", d.ID, []int{0})

	text, err := svc.EditText(ctx, "u1", d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if text != "A (lido)\nB" {
		t.Errorf("edit text = %q, want %q", text, "A (lido)\nB")
	}

	d, err = svc.Update(ctx, "u1", d.ID, "Y", text+"\nC\n- c1", d.Revision)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if d.Name != "Y" || len(d.Topics) != 3 {
		t.Fatalf("updated = %+v", d)
	}
	if !d.Topics[0].Done || d.Topics[0].Name != "A" {
		t.Errorf("done mark lost: %+v", d.Topics[0])
	}
	if len(d.Topics[2].Children) != 1 {
		t.Errorf("C children = %d, want 1", len(d.Topics[2].Children))
	}
}

func TestService_UpdateStaleRevision(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	d, _ := svc.Create(ctx, "u1", "X", "A")
	stale := d.Revision
	if _, err := svc.Toggle(ctx, "u1", d.ID, []int{0}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Update(ctx, "u1", d.ID, "X", "B", stale); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestService_ToggleWriteFailureReported(t *testing.T) {
	flaky := testutil.NewFlakyStore(testutil.TestStore(t))
	rec := &recorder{}
	svc := NewService(flaky, rec, nil)
	ctx := context.Background()
	d, err := svc.Create(ctx, "u1", "X", "A")
	if err != nil {
		t.Fatal(err)
	}

	flaky.FailWrites(true)
	if _, err := svc.Toggle(ctx, "u1", d.ID, []int{0}); !errors.Is(err, testutil.ErrInjected) {
		t.Fatalf("err = %v, want injected failure", err)
	}
	flaky.FailWrites(false)

	got, err := svc.Get(ctx, "u1", d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Topics[0].Done {
		t.Error("failed toggle was persisted")
	}
	if n := len(rec.kinds()); n != 1 {
		t.Errorf("events = %d, want only the create", n)
	}
}
