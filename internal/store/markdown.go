package store

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
)

var tableTemplate = template.Must(template.New("activities").Parse(`<h1>Linkareer activities</h1>
<table>
<thead><tr><th>Title</th><th>Categories</th><th>Start</th><th>End</th><th>Homepage</th></tr></thead>
<tbody>
{{- range .}}
<tr>
<td><a href="{{.DetailURL}}">{{if .Title}}{{.Title}}{{else}}{{.DetailURL}}{{end}}</a></td>
<td>{{.Categories}}</td>
<td>{{.Start}}</td>
<td>{{.End}}</td>
<td>{{if .Homepage}}<a href="{{.Homepage}}">{{.Homepage}}</a>{{end}}</td>
</tr>
{{- end}}
</tbody>
</table>`))

type tableRow struct {
	DetailURL  string
	Title      string
	Categories string
	Start      string
	End        string
	Homepage   string
}

// MarkdownSink renders all records as a GitHub flavored Markdown table when
// closed.
type MarkdownSink struct {
	w    io.WriteCloser
	rows []tableRow
}

// NewMarkdownSink creates a MarkdownSink writing to w
func NewMarkdownSink(w io.WriteCloser) *MarkdownSink {
	return &MarkdownSink{w: w}
}

func (s *MarkdownSink) Write(ctx context.Context, rec *models.ActivityRecord) error {
	s.rows = append(s.rows, tableRow{
		DetailURL:  rec.DetailURL,
		Title:      models.Deref(rec.Title),
		Categories: rec.JoinCategories(", "),
		Start:      models.Deref(rec.StartDate),
		End:        models.Deref(rec.EndDate),
		Homepage:   models.Deref(rec.HomepageURL),
	})
	return nil
}

// Close renders the table and closes the writer
func (s *MarkdownSink) Close() error {
	defer s.w.Close()

	var html bytes.Buffer
	if err := tableTemplate.Execute(&html, s.rows); err != nil {
		return fmt.Errorf("failed to render activity table: %w", err)
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	markdown, err := converter.ConvertString(html.String())
	if err != nil {
		return fmt.Errorf("failed to convert activity table: %w", err)
	}

	_, err = io.WriteString(s.w, strings.TrimSpace(markdown)+"\n")
	return err
}
