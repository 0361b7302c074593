// Package models defines the domain types for Edital.
package models

import "time"

// Topic is a node in a subject's outline. A topic with an empty name is a
// visual separator and never counts toward completion.
type Topic struct {
	Name     string   `json:"name"`
	IsRoot   bool     `json:"is_root"`
	IsNested bool     `json:"is_nested"`
	Done     bool     `json:"done"`
	Children []*Topic `json:"children"`
}

// Clone returns a deep copy of t.
func (t *Topic) Clone() *Topic {
	if t == nil {
		return nil
	}
	c := *t
	c.Children = CloneTopics(t.Children)
	return &c
}

// CloneTopics deep-copies a forest. The result is never nil.
func CloneTopics(topics []*Topic) []*Topic {
	out := make([]*Topic, len(topics))
	for i, t := range topics {
		out[i] = t.Clone()
	}
	return out
}

// Subject is a named outline owned by a user.
type Subject struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Topics    []*Topic  `json:"topics"`
	Revision  string    `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fields is a merge-patch for a stored subject; nil fields are left untouched.
type Fields struct {
	Name   *string
	Topics []*Topic
}

// Ref addresses a top-level topic by its position on a board.
type Ref struct {
	SubjectIndex int `json:"subject_index"`
	TopicIndex   int `json:"topic_index"`
}
