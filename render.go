package imgdiff

import (
	"html/template"
	"io"

	"github.com/Masterminds/sprig/v3"
)

// Renderer turns a finalized report into a browsable document
type Renderer interface {
	Render(w io.Writer, report *Report) error
}

// FileView is the render-ready form of one outcome
type FileView struct {
	Name         string
	Kind         Kind
	Reasons      []string
	ActualFile   string
	ExpectedFile string
	DiffFile     string
}

// ReportView is the render-ready form of a report
type ReportView struct {
	HasChanges bool
	Summary    Summary
	Kinds      []Kind
	Files      []FileView
}

// View flattens the report for templates
func (r *Report) View() ReportView {
	view := ReportView{
		HasChanges: r.HasChanges,
		Summary:    r.Summary,
		Kinds:      Kinds,
		Files:      make([]FileView, 0, len(r.Files)),
	}

	for _, file := range r.Files {
		entry := file.Base()
		fv := FileView{
			Name:    entry.Name,
			Kind:    file.Kind(),
			Reasons: entry.Reasons,
		}

		switch o := file.(type) {
		case AddedImage:
			fv.ActualFile = o.ActualFile
		case DeletedImage:
		case ChangedImage:
			fv.ActualFile = o.ActualFile
			fv.ExpectedFile = o.ExpectedFile
			fv.DiffFile = o.DiffFile
		case UnchangedImage:
			fv.ActualFile = o.ActualFile
			fv.ExpectedFile = o.ExpectedFile
		}

		view.Files = append(view.Files, fv)
	}

	return view
}

// HTMLRenderer renders index.html
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer returns the renderer for the built-in report page
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		tmpl: template.Must(template.New(IndexFile).Funcs(sprig.HtmlFuncMap()).Parse(indexTemplate)),
	}
}

// NewHTMLRendererFromTemplate parses a custom template. The template receives a ReportView.
func NewHTMLRendererFromTemplate(text string) (*HTMLRenderer, error) {
	tmpl, err := template.New(IndexFile).Funcs(sprig.HtmlFuncMap()).Parse(text)
	if err != nil {
		return nil, err
	}

	return &HTMLRenderer{tmpl: tmpl}, nil
}

func (h *HTMLRenderer) Render(w io.Writer, report *Report) error {
	return h.tmpl.Execute(w, report.View())
}

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Image comparison</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.status-passed { color: #2a7; }
.status-failed { color: #c33; }
.file { border-top: 1px solid #ddd; padding: 1em 0; }
.images { display: flex; gap: 1em; }
.images figure { margin: 0; }
.images img { max-width: 400px; border: 1px solid #ccc; }
.diff img { background: repeating-conic-gradient(#eee 0 25%, #fff 0 50%) 50% / 16px 16px; }
</style>
</head>
<body>
{{- if .HasChanges }}
<h1 class="status-failed">Comparison failed</h1>
{{- else }}
<h1 class="status-passed">Comparison passed</h1>
{{- end }}
<table>
{{- range .Kinds }}
<tr><th>{{ . | toString | title }}</th><td>{{ $.Summary.Count . }}</td></tr>
{{- end }}
</table>
{{- range .Files }}
<div class="file {{ .Kind }}">
<h2>{{ .Name }} <small>{{ .Kind | toString | upper }}</small></h2>
<p>{{ .Reasons | join "; " }}</p>
<div class="images">
{{- if .ExpectedFile }}
<figure><img src="{{ .ExpectedFile }}" alt="expected"><figcaption>Expected</figcaption></figure>
{{- end }}
{{- if .ActualFile }}
<figure><img src="{{ .ActualFile }}" alt="actual"><figcaption>Actual</figcaption></figure>
{{- end }}
{{- if .DiffFile }}
<figure class="diff"><img src="{{ .DiffFile }}" alt="difference"><figcaption>Difference</figcaption></figure>
{{- end }}
</div>
</div>
{{- end }}
</body>
</html>
`
