// Package render produces the HTML study board. Names are always escaped.
package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/starford/edital/internal/models"
	"github.com/starford/edital/internal/progress"
)

const page = `<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>Edital</title></head>
<body>
{{- range .}}
<section class="subject" id="subject-{{.ID}}">
<h2>{{.Name}} <span class="percentage">{{percent .Topics}}%</span></h2>
{{template "topics" .Topics}}
</section>
{{- else}}
<p class="empty">Nenhuma matéria cadastrada.</p>
{{- end}}
</body>
</html>
{{define "topics"}}<ul>
{{- range .}}
{{- if blank .Name}}
<li class="separator"><hr></li>
{{- else}}
<li class="{{if .Done}}read-topic{{else}}topic{{end}}">{{.Name}}
{{- if .Children}}{{template "topics" .Children}}{{end}}</li>
{{- end}}
{{- end}}
</ul>{{end}}`

var tmpl = template.Must(template.New("board").Funcs(template.FuncMap{
	"percent": Percent,
	"blank":   func(s string) bool { return strings.TrimSpace(s) == "" },
}).Parse(page))

// HTML writes the board for subjects to w.
func HTML(w io.Writer, subjects []models.Subject) error {
	return tmpl.Execute(w, subjects)
}

// Percent formats the completion percentage of topics with no decimals.
func Percent(topics []*models.Topic) string {
	return fmt.Sprintf("%.0f", progress.Percentage(topics))
}
