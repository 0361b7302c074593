// Package store persists subjects in a document store keyed by subject id.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/edital/internal/checksum"
	"github.com/starford/edital/internal/models"
)

// Gateway is the document-store contract used by the tracker.
// Replace, Merge, Delete and Get return apperr.ErrNotFound for unknown ids.
type Gateway interface {
	// CreateSubject stores a new subject and returns its assigned id.
	CreateSubject(ctx context.Context, ownerID, name string, topics []*models.Topic) (string, error)
	// ReplaceSubject overwrites name and topics of an existing subject.
	ReplaceSubject(ctx context.Context, id string, s models.Subject) error
	// MergeSubject patches only the fields set in f.
	MergeSubject(ctx context.Context, id string, f models.Fields) error
	// DeleteSubject removes a subject.
	DeleteSubject(ctx context.Context, id string) error
	// ListSubjects returns the owner's subjects in creation order.
	ListSubjects(ctx context.Context, ownerID string) ([]models.Subject, error)
	// GetSubject returns a single subject.
	GetSubject(ctx context.Context, id string) (*models.Subject, error)
	Close() error
}

// revision derives the content revision of a subject.
func revision(name string, topics []*models.Topic) string {
	return checksum.Of(struct {
		Name   string          `json:"name"`
		Topics []*models.Topic `json:"topics"`
	}{name, nonNil(topics)})
}

func nonNil(topics []*models.Topic) []*models.Topic {
	if topics == nil {
		return []*models.Topic{}
	}
	return topics
}

func now() time.Time {
	return time.Now().UTC()
}

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Open returns the Gateway for driver; dsn is a file path for sqlite and a
// redis:// URL for redis.
func Open(ctx context.Context, driver, dsn string) (Gateway, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(dsn)
	case DriverRedis:
		return OpenRedis(ctx, dsn)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}
