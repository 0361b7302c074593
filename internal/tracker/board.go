package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/edital/internal/apperr"
	"github.com/starford/edital/internal/models"
	"github.com/starford/edital/internal/outline"
	"github.com/starford/edital/internal/progress"
)

// Board is one user's working view of their subjects: the list as last
// loaded plus every change made through it. Completion state lives only in
// the topics; checked positions are derived on demand.
//
// A Board is not safe for concurrent use.
type Board struct {
	svc      *Service
	owner    string
	logger   *slog.Logger
	subjects []models.Subject
}

// NewBoard creates an empty board for owner.
func NewBoard(svc *Service, owner string, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{svc: svc, owner: owner, logger: logger}
}

// Load replaces the board with the owner's stored subjects. A failed load is
// logged and leaves the board empty.
func (b *Board) Load(ctx context.Context) {
	subjects, err := b.svc.store.ListSubjects(ctx, b.owner)
	if err != nil {
		b.logger.Error("board: load subjects failed",
			slog.String("owner", b.owner),
			slog.String("error", err.Error()))
		b.subjects = nil
		return
	}
	b.subjects = subjects
}

// Len returns the number of subjects on the board.
func (b *Board) Len() int {
	return len(b.subjects)
}

// Subjects returns the board's subjects in display order.
func (b *Board) Subjects() []models.Subject {
	out := make([]models.Subject, len(b.subjects))
	copy(out, b.subjects)
	return out
}

// Subject returns the subject at index i.
func (b *Board) Subject(i int) (models.Subject, error) {
	if err := b.check(i); err != nil {
		return models.Subject{}, err
	}
	return b.subjects[i], nil
}

// Checked returns the positions of done top-level topics.
func (b *Board) Checked() []models.Ref {
	return progress.Checked(b.subjects)
}

// Percentage returns the completion percentage of subject i.
func (b *Board) Percentage(i int) (float64, error) {
	if err := b.check(i); err != nil {
		return 0, err
	}
	return progress.Percentage(b.subjects[i].Topics), nil
}

// EditText renders subject i for editing.
func (b *Board) EditText(i int) (string, error) {
	if err := b.check(i); err != nil {
		return "", err
	}
	return outline.Format(b.subjects[i].Topics), nil
}

// Add creates a subject from outline text and appends it to the board.
func (b *Board) Add(ctx context.Context, name, outlineText string) error {
	d, err := b.svc.Create(ctx, b.owner, name, outlineText)
	if err != nil {
		return b.fail("add", err)
	}
	b.subjects = append(b.subjects, d.Model(b.owner))
	return nil
}

// SaveEdit replaces subject i with the parsed edit text.
func (b *Board) SaveEdit(ctx context.Context, i int, name, editText string) error {
	if err := b.check(i); err != nil {
		return err
	}
	d, err := b.svc.Update(ctx, b.owner, b.subjects[i].ID, name, editText, "")
	if err != nil {
		return b.fail("save edit", err)
	}
	b.subjects[i] = d.Model(b.owner)
	return nil
}

// Delete removes subject i from the store and the board.
func (b *Board) Delete(ctx context.Context, i int) error {
	if err := b.check(i); err != nil {
		return err
	}
	if err := b.svc.Delete(ctx, b.owner, b.subjects[i].ID); err != nil {
		return b.fail("delete", err)
	}
	b.subjects = append(b.subjects[:i], b.subjects[i+1:]...)
	return nil
}

// Toggle flips the top-level topic topicIndex of subject subjectIndex.
func (b *Board) Toggle(ctx context.Context, subjectIndex, topicIndex int) error {
	return b.ToggleNested(ctx, subjectIndex, []int{topicIndex})
}

// ToggleNested flips the topic at path within subject subjectIndex. The
// store is written first; the board changes only if that write succeeds.
func (b *Board) ToggleNested(ctx context.Context, subjectIndex int, path []int) error {
	if err := b.check(subjectIndex); err != nil {
		return err
	}
	next, err := b.svc.toggle(ctx, b.subjects[subjectIndex], path)
	if err != nil {
		return b.fail("toggle", err)
	}
	b.subjects[subjectIndex] = next
	return nil
}

func (b *Board) check(i int) error {
	if i < 0 || i >= len(b.subjects) {
		return fmt.Errorf("board: subject index %d: %w", i, apperr.ErrNotFound)
	}
	return nil
}

func (b *Board) fail(op string, err error) error {
	b.logger.Error("board: "+op+" failed",
		slog.String("owner", b.owner),
		slog.String("error", err.Error()))
	return err
}
