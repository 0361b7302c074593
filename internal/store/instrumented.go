package store

import (
	"context"
	"time"

	"github.com/starford/edital/internal/metrics"
	"github.com/starford/edital/internal/models"
)

// Instrumented wraps a Gateway and records every call in m.
type Instrumented struct {
	next Gateway
	m    *metrics.Metrics
}

var _ Gateway = (*Instrumented)(nil)

// Instrument returns g decorated with metrics.
func Instrument(g Gateway, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: g, m: m}
}

func (i *Instrumented) CreateSubject(ctx context.Context, ownerID, name string, topics []*models.Topic) (string, error) {
	start := time.Now()
	id, err := i.next.CreateSubject(ctx, ownerID, name, topics)
	i.m.ObserveStore("create", start, err)
	return id, err
}

func (i *Instrumented) ReplaceSubject(ctx context.Context, id string, s models.Subject) error {
	start := time.Now()
	err := i.next.ReplaceSubject(ctx, id, s)
	i.m.ObserveStore("replace", start, err)
	return err
}

func (i *Instrumented) MergeSubject(ctx context.Context, id string, f models.Fields) error {
	start := time.Now()
	err := i.next.MergeSubject(ctx, id, f)
	i.m.ObserveStore("merge", start, err)
	return err
}

func (i *Instrumented) DeleteSubject(ctx context.Context, id string) error {
	start := time.Now()
	err := i.next.DeleteSubject(ctx, id)
	i.m.ObserveStore("delete", start, err)
	return err
}

func (i *Instrumented) ListSubjects(ctx context.Context, ownerID string) ([]models.Subject, error) {
	start := time.Now()
	out, err := i.next.ListSubjects(ctx, ownerID)
	i.m.ObserveStore("list", start, err)
	return out, err
}

func (i *Instrumented) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	start := time.Now()
	s, err := i.next.GetSubject(ctx, id)
	i.m.ObserveStore("get", start, err)
	return s, err
}

func (i *Instrumented) Close() error {
	return i.next.Close()
}
