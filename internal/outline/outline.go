// Package outline converts dash-marked text outlines into topic forests and back.
//
// Each line of an outline is one topic. A line that starts with one or more
// dashes followed by whitespace is nested; the number of dashes is its depth:
//
//	Direito
//	- Constitucional
//	-- Princípios
//	- Administrativo
//	Português
package outline

import (
	"regexp"
	"strings"

	"github.com/starford/edital/internal/models"
)

// Marker is the character that indicates nesting depth.
const Marker = "-"

// DoneSuffix marks a completed topic in edit text.
const DoneSuffix = "(lido)"

var (
	markedRe = regexp.MustCompile(`^(-*)\s(.*)`)
	editRe   = regexp.MustCompile(`^(-*)\s*(.*)`)
)

// Parse builds a topic forest from raw outline text. It never fails: every
// input line yields exactly one topic, and empty lines become separators.
func Parse(text string) []*models.Topic {
	var b builder
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		m := markedRe.FindStringSubmatch(trimmed)
		if m == nil {
			// Unmarked lines always start a new root, whatever came before.
			b.reset(&models.Topic{Name: trimmed, IsRoot: true})
			continue
		}
		b.add(len(m[1]), m[2], false)
	}
	return b.roots
}

// ParseEdited builds a topic forest from edit text produced by Format or
// FormatFlat. A trailing "(lido)" marks the topic as done and is removed;
// the same text elsewhere in a name is kept.
func ParseEdited(text string) []*models.Topic {
	var b builder
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		done := strings.HasSuffix(trimmed, DoneSuffix)
		if done {
			trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, DoneSuffix))
		}
		m := editRe.FindStringSubmatch(trimmed)
		b.add(len(m[1]), m[2], done)
	}
	return b.roots
}

// builder keeps one open topic per reachable depth.
type builder struct {
	roots []*models.Topic
	stack []*models.Topic
}

func (b *builder) add(depth int, name string, done bool) {
	if len(b.stack) > depth {
		b.stack = b.stack[:depth]
	}
	t := &models.Topic{
		Name:     name,
		IsRoot:   depth == 0,
		IsNested: depth > 0,
		Done:     done,
	}
	if n := len(b.stack); n > 0 {
		parent := b.stack[n-1]
		parent.Children = append(parent.Children, t)
	} else {
		b.roots = append(b.roots, t)
	}
	b.stack = append(b.stack, t)
}

func (b *builder) reset(t *models.Topic) {
	b.roots = append(b.roots, t)
	b.stack = append(b.stack[:0], t)
}

// Walk visits every topic in pre-order with its depth in the tree.
// Returning false from fn skips the topic's children.
func Walk(topics []*models.Topic, fn func(t *models.Topic, depth int) bool) {
	walk(topics, 0, fn)
}

func walk(topics []*models.Topic, depth int, fn func(*models.Topic, int) bool) {
	for _, t := range topics {
		if fn(t, depth) {
			walk(t.Children, depth+1, fn)
		}
	}
}

// Count returns the number of topics in the forest, separators included.
func Count(topics []*models.Topic) int {
	n := 0
	Walk(topics, func(*models.Topic, int) bool {
		n++
		return true
	})
	return n
}

// Depth returns the height of the forest; 0 for an empty forest.
func Depth(topics []*models.Topic) int {
	h := 0
	Walk(topics, func(_ *models.Topic, d int) bool {
		if d+1 > h {
			h = d + 1
		}
		return true
	})
	return h
}
