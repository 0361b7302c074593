package outline

import (
	"strings"

	"github.com/starford/edital/internal/models"
)

// Format renders a forest as edit text. Each topic is prefixed with one
// marker per level of tree depth, so ParseEdited reconstructs the same tree.
func Format(topics []*models.Topic) string {
	var lines []string
	Walk(topics, func(t *models.Topic, depth int) bool {
		lines = append(lines, formatLine(strings.Repeat(Marker, depth), t))
		return true
	})
	return strings.Join(lines, "\n")
}

// FormatFlat renders a forest with a single marker for every nested topic,
// whatever its depth. Re-parsing the result collapses everything below the
// first level onto the preceding root.
func FormatFlat(topics []*models.Topic) string {
	var lines []string
	Walk(topics, func(t *models.Topic, _ int) bool {
		prefix := ""
		if t.IsNested {
			prefix = Marker
		}
		lines = append(lines, formatLine(prefix, t))
		return true
	})
	return strings.Join(lines, "\n")
}

func formatLine(prefix string, t *models.Topic) string {
	var sb strings.Builder
	if prefix != "" {
		sb.WriteString(prefix)
		sb.WriteByte(' ')
	}
	sb.WriteString(t.Name)
	if t.Done {
		sb.WriteString(" " + DoneSuffix)
	}
	return sb.String()
}
