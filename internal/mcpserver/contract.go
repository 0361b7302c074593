package mcpserver

// OutlineFormatContract describes the outline text accepted by
// create_subject and update_subject.
const OutlineFormatContract = `# Edital Outline Format

A subject's topics are written as plain text, one topic per line.

## Structure

` + "```" + `text
Direito Constitucional
- Princípios fundamentais
- Direitos e garantias
-- Remédios constitucionais
Direito Administrativo (lido)
` + "```" + `

## Rules

1. **One topic per line.** Surrounding whitespace is ignored.
2. **Nesting** is written with leading dashes followed by a space. One dash
   is a child of the nearest line above with fewer dashes, two dashes a
   grandchild, and so on.
3. **Lines without the dash-space prefix** start a new top-level topic, even
   if they begin with dashes (` + "`" + `-x` + "`" + ` is a top-level topic named ` + "`" + `-x` + "`" + `).
4. **Blank lines** become separators. They are shown as dividers and never
   count towards completion.
5. **Completion** is computed over top-level topics only: done top-level
   topics divided by non-blank top-level topics.
6. **Done marks.** When updating a subject, a line ending in ` + "`" + `(lido)` + "`" + ` keeps that
   topic done. The marker is ignored when creating a subject.
7. **Updates replace everything.** update_subject rebuilds the whole topic
   tree; read the current text with get_outline first and edit it.

## Toggling

toggle_topic takes a path of zero-based indexes: ` + "`" + `[1]` + "`" + ` is the second
top-level topic, ` + "`" + `[1, 0]` + "`" + ` is its first child.
`
