// Package progress computes completion state over topic forests.
package progress

import (
	"fmt"
	"strings"

	"github.com/starford/edital/internal/apperr"
	"github.com/starford/edital/internal/models"
)

// Percentage returns the share of a subject's top-level, non-blank topics
// that are done, from 0 to 100. Nested topics are not counted.
func Percentage(topics []*models.Topic) float64 {
	valid, done := 0, 0
	for _, t := range topics {
		if isBlank(t) {
			continue
		}
		valid++
		if t.Done {
			done++
		}
	}
	if valid == 0 {
		return 0
	}
	return float64(done) / float64(valid) * 100
}

// CountItems returns the number of non-blank topics at any depth.
func CountItems(topics []*models.Topic) int {
	n := 0
	for _, t := range topics {
		if !isBlank(t) {
			n++
		}
		n += CountItems(t.Children)
	}
	return n
}

// CountDone returns the number of non-blank done topics at any depth.
func CountDone(topics []*models.Topic) int {
	n := 0
	for _, t := range topics {
		if !isBlank(t) && t.Done {
			n++
		}
		n += CountDone(t.Children)
	}
	return n
}

// Checked lists the done top-level topics of every subject, in board order.
// Separators are never listed.
// It is derived from the topics themselves on every call.
func Checked(subjects []models.Subject) []models.Ref {
	var out []models.Ref
	for si, s := range subjects {
		for ti, t := range s.Topics {
			if t.Done && !isBlank(t) {
				out = append(out, models.Ref{SubjectIndex: si, TopicIndex: ti})
			}
		}
	}
	return out
}

// IsChecked reports whether the top-level topic at ref is done.
func IsChecked(subjects []models.Subject, ref models.Ref) bool {
	if ref.SubjectIndex < 0 || ref.SubjectIndex >= len(subjects) {
		return false
	}
	topics := subjects[ref.SubjectIndex].Topics
	if ref.TopicIndex < 0 || ref.TopicIndex >= len(topics) {
		return false
	}
	return topics[ref.TopicIndex].Done && !isBlank(topics[ref.TopicIndex])
}

// Lookup returns the topic addressed by path, where path[0] indexes the
// top-level topics and each further element indexes the children.
func Lookup(topics []*models.Topic, path []int) (*models.Topic, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("progress: empty topic path: %w", apperr.ErrInvalid)
	}
	level := topics
	var t *models.Topic
	for depth, i := range path {
		if i < 0 || i >= len(level) {
			return nil, fmt.Errorf("progress: topic %v (index %d at depth %d): %w", path, i, depth, apperr.ErrNotFound)
		}
		t = level[i]
		level = t.Children
	}
	return t, nil
}

// Toggle returns a copy of topics with the completion flag of the topic at
// path flipped. The input forest is not modified. Separators cannot be toggled.
func Toggle(topics []*models.Topic, path []int) ([]*models.Topic, bool, error) {
	next := models.CloneTopics(topics)
	t, err := Lookup(next, path)
	if err != nil {
		return nil, false, err
	}
	if isBlank(t) {
		return nil, false, fmt.Errorf("progress: topic %v is a separator: %w", path, apperr.ErrInvalid)
	}
	t.Done = !t.Done
	return next, t.Done, nil
}

func isBlank(t *models.Topic) bool {
	return strings.TrimSpace(t.Name) == ""
}
