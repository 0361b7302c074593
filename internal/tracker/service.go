// Package tracker coordinates outline parsing, completion state and the
// document store.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/starford/edital/internal/apperr"
	"github.com/starford/edital/internal/metrics"
	"github.com/starford/edital/internal/models"
	"github.com/starford/edital/internal/outline"
	"github.com/starford/edital/internal/progress"
	"github.com/starford/edital/internal/store"
)

// Event kinds passed to a Notifier.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
	EventToggled = "toggled"
)

// Notifier is told about every successful mutation.
type Notifier interface {
	SubjectChanged(kind, ownerID, subjectID string)
}

// SubjectDetail is a subject enriched with its completion figures.
type SubjectDetail struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Topics     []*models.Topic `json:"topics"`
	Percentage float64         `json:"percentage"`
	Items      int             `json:"items"`
	Done       int             `json:"done"`
	Revision   string          `json:"revision"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Service implements subject operations on top of a store.Gateway.
type Service struct {
	store   store.Gateway
	notify  Notifier
	metrics *metrics.Metrics
}

// NewService creates a new tracker service. n and m may be nil.
func NewService(g store.Gateway, n Notifier, m *metrics.Metrics) *Service {
	return &Service{store: g, notify: n, metrics: m}
}

// List returns the owner's subjects with percentages, in creation order.
func (s *Service) List(ctx context.Context, ownerID string) ([]SubjectDetail, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	subjects, err := s.store.ListSubjects(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]SubjectDetail, len(subjects))
	for i := range subjects {
		out[i] = Detail(subjects[i])
	}
	return out, nil
}

// Get returns one of the owner's subjects.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*SubjectDetail, error) {
	subj, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	d := Detail(*subj)
	return &d, nil
}

// Create parses outlineText and stores it as a new subject.
func (s *Service) Create(ctx context.Context, ownerID, name, outlineText string) (*SubjectDetail, error) {
	return s.create(ctx, ownerID, name, outline.Parse(outlineText))
}

// CreateEdited stores a new subject from edit text, as written by
// outline.Format. Lines ending in "(lido)" start out done.
func (s *Service) CreateEdited(ctx context.Context, ownerID, name, editText string) (*SubjectDetail, error) {
	return s.create(ctx, ownerID, name, outline.ParseEdited(editText))
}

func (s *Service) create(ctx context.Context, ownerID, name string, topics []*models.Topic) (*SubjectDetail, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	id, err := s.store.CreateSubject(ctx, ownerID, name, topics)
	if err != nil {
		return nil, err
	}
	s.publish(EventCreated, ownerID, id)
	return s.Get(ctx, ownerID, id)
}

// Update replaces a subject wholesale from edit text. A trailing "(lido)"
// on a line keeps that topic done. A non-empty ifMatch must equal the
// stored revision.
func (s *Service) Update(ctx context.Context, ownerID, id, name, editText, ifMatch string) (*SubjectDetail, error) {
	cur, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != cur.Revision {
		return nil, apperr.ErrConflict
	}
	next := models.Subject{
		ID:      id,
		OwnerID: ownerID,
		Name:    name,
		Topics:  outline.ParseEdited(editText),
	}
	if err := s.store.ReplaceSubject(ctx, id, next); err != nil {
		return nil, err
	}
	s.publish(EventUpdated, ownerID, id)
	return s.Get(ctx, ownerID, id)
}

// Delete removes one of the owner's subjects.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.store.DeleteSubject(ctx, id); err != nil {
		return err
	}
	s.publish(EventDeleted, ownerID, id)
	return nil
}

// Toggle flips the topic at path and writes the whole topic array back.
func (s *Service) Toggle(ctx context.Context, ownerID, id string, path []int) (*SubjectDetail, error) {
	cur, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	next, err := s.toggle(ctx, *cur, path)
	if err != nil {
		return nil, err
	}
	d := Detail(next)
	return &d, nil
}

// EditText renders a subject's topics for editing.
func (s *Service) EditText(ctx context.Context, ownerID, id string) (string, error) {
	subj, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return "", err
	}
	return outline.Format(subj.Topics), nil
}

// toggle persists the toggled forest and returns the subject as stored.
// Nothing is returned unless the store accepted the write.
func (s *Service) toggle(ctx context.Context, subj models.Subject, path []int) (models.Subject, error) {
	next, done, err := progress.Toggle(subj.Topics, path)
	if err != nil {
		return models.Subject{}, err
	}
	if err := s.store.MergeSubject(ctx, subj.ID, models.Fields{Topics: next}); err != nil {
		return models.Subject{}, err
	}
	s.metrics.ObserveToggle(done)
	s.publish(EventToggled, subj.OwnerID, subj.ID)

	stored, err := s.store.GetSubject(ctx, subj.ID)
	if err != nil {
		// The write went through; only the new revision is unknown.
		subj.Topics = next
		subj.Revision = ""
		return subj, nil
	}
	return *stored, nil
}

func (s *Service) owned(ctx context.Context, ownerID, id string) (*models.Subject, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	subj, err := s.store.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	// Other owners' subjects are reported as missing.
	if subj.OwnerID != ownerID {
		return nil, fmt.Errorf("tracker: subject %s: %w", id, apperr.ErrNotFound)
	}
	return subj, nil
}

func (s *Service) publish(kind, ownerID, id string) {
	if s.notify != nil {
		s.notify.SubjectChanged(kind, ownerID, id)
	}
}

// Detail computes the completion figures of a subject.
func Detail(subj models.Subject) SubjectDetail {
	topics := subj.Topics
	if topics == nil {
		topics = []*models.Topic{}
	}
	return SubjectDetail{
		ID:         subj.ID,
		Name:       subj.Name,
		Topics:     topics,
		Percentage: progress.Percentage(topics),
		Items:      progress.CountItems(topics),
		Done:       progress.CountDone(topics),
		Revision:   subj.Revision,
		CreatedAt:  subj.CreatedAt,
		UpdatedAt:  subj.UpdatedAt,
	}
}

// Model converts d back into the stored subject shape.
func (d *SubjectDetail) Model(ownerID string) models.Subject {
	return models.Subject{
		ID:        d.ID,
		OwnerID:   ownerID,
		Name:      d.Name,
		Topics:    d.Topics,
		Revision:  d.Revision,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return fmt.Errorf("tracker: owner id is required: %w", apperr.ErrInvalid)
	}
	return nil
}
