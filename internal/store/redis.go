package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/starford/edital/internal/apperr"
	"github.com/starford/edital/internal/models"
)

// Redis is a Gateway that keeps each subject in a hash and indexes the
// owner's subjects in a sorted set scored by creation time.
type Redis struct {
	client *redis.Client
}

var _ Gateway = (*Redis)(nil)

// OpenRedis connects to the Redis server at url.
func OpenRedis(ctx context.Context, url string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("store: invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("store: connect to redis: %w", err)
	}
	return &Redis{client: client}, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

func subjectKey(id string) string {
	return fmt.Sprintf("subject:%s", id)
}

func ownerKey(ownerID string) string {
	return fmt.Sprintf("owner:%s:subjects", ownerID)
}

// seqKey counts subject creations. Its value orders the owner sets.
const seqKey = "subjects:seq"

// CreateSubject stores the hash and indexes it under the owner.
func (r *Redis) CreateSubject(ctx context.Context, ownerID, name string, topics []*models.Topic) (string, error) {
	topicsJSON, err := json.Marshal(nonNil(topics))
	if err != nil {
		return "", fmt.Errorf("store: encode topics: %w", err)
	}
	seq, err := r.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return "", fmt.Errorf("store: next sequence: %w", err)
	}
	id := uuid.NewString()
	ts := now()

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, subjectKey(id), map[string]any{
		"id":         id,
		"owner_id":   ownerID,
		"name":       name,
		"topics":     string(topicsJSON),
		"revision":   revision(name, topics),
		"created_at": ts.UnixNano(),
		"updated_at": ts.UnixNano(),
	})
	pipe.ZAdd(ctx, ownerKey(ownerID), redis.Z{Score: float64(seq), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store: save subject: %w", err)
	}
	return id, nil
}

// ReplaceSubject overwrites name and topics of an existing subject.
func (r *Redis) ReplaceSubject(ctx context.Context, id string, s models.Subject) error {
	topics := s.Topics
	return r.update(ctx, id, func(cur *models.Subject) {
		cur.Name = s.Name
		cur.Topics = nonNil(topics)
	})
}

// MergeSubject patches the set fields.
func (r *Redis) MergeSubject(ctx context.Context, id string, f models.Fields) error {
	return r.update(ctx, id, func(cur *models.Subject) {
		if f.Name != nil {
			cur.Name = *f.Name
		}
		if f.Topics != nil {
			cur.Topics = f.Topics
		}
	})
}

// update applies fn under WATCH so concurrent writers to the same subject
// cannot interleave between the read and the write.
func (r *Redis) update(ctx context.Context, id string, fn func(*models.Subject)) error {
	key := subjectKey(id)
	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("store: read subject: %w", err)
		}
		if len(fields) == 0 {
			return fmt.Errorf("store: subject %s: %w", id, apperr.ErrNotFound)
		}
		cur, err := decodeHash(fields)
		if err != nil {
			return err
		}
		fn(cur)
		topicsJSON, err := json.Marshal(cur.Topics)
		if err != nil {
			return fmt.Errorf("store: encode topics: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]any{
				"name":       cur.Name,
				"topics":     string(topicsJSON),
				"revision":   revision(cur.Name, cur.Topics),
				"updated_at": now().UnixNano(),
			})
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("store: subject %s changed concurrently: %w", id, apperr.ErrConflict)
}

// DeleteSubject removes the hash and its owner index entry.
func (r *Redis) DeleteSubject(ctx context.Context, id string) error {
	ownerID, err := r.client.HGet(ctx, subjectKey(id), "owner_id").Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("store: subject %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("store: read owner: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, subjectKey(id))
	pipe.ZRem(ctx, ownerKey(ownerID), id)
	_, err = pipe.Exec(ctx)
	return err
}

// ListSubjects returns the owner's subjects ordered by creation time.
func (r *Redis) ListSubjects(ctx context.Context, ownerID string) ([]models.Subject, error) {
	ids, err := r.client.ZRange(ctx, ownerKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: list subjects: %w", err)
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, subjectKey(id))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("store: load subjects: %w", err)
		}
	}

	out := make([]models.Subject, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// Index entry outlived its hash.
			continue
		}
		s, err := decodeHash(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

// GetSubject returns one subject by id.
func (r *Redis) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	fields, err := r.client.HGetAll(ctx, subjectKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: get subject: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("store: subject %s: %w", id, apperr.ErrNotFound)
	}
	return decodeHash(fields)
}

func decodeHash(fields map[string]string) (*models.Subject, error) {
	s := &models.Subject{
		ID:       fields["id"],
		OwnerID:  fields["owner_id"],
		Name:     fields["name"],
		Revision: fields["revision"],
	}
	if raw := fields["topics"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.Topics); err != nil {
			return nil, fmt.Errorf("store: decode topics of %s: %w", s.ID, err)
		}
	}
	s.Topics = nonNil(s.Topics)
	s.CreatedAt = unixNano(fields["created_at"])
	s.UpdatedAt = unixNano(fields["updated_at"])
	return s, nil
}

func unixNano(v string) time.Time {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
