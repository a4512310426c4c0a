package grid

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
)

var viewTemplates = template.Must(template.New("view").Funcs(template.FuncMap{
	"px": func(v float64) string { return fmt.Sprintf("%.0fpx", v) },
}).Parse(`
{{- define "editable" -}}
<div class="grid-layout" style="position: relative; width: {{px .Width}}; height: {{px .Height}};">
{{- range .Cells}}
<div class="grid-item{{if .Missing}} missing{{end}}" data-block="{{.ID}}" style="position: absolute; left: {{px .Pixels.Left}}; top: {{px .Pixels.Top}}; width: {{px .Pixels.Width}}; height: {{px .Pixels.Height}};">
<div class="retro-window-title">{{.Title}}</div>
<div class="retro-window-content"{{with .Body.Style}} style="{{.}}"{{end}}>{{.Body.HTML}}</div>
</div>
{{- end}}
</div>
{{- end -}}

{{- define "read" -}}
<article class="grid-flow">
{{- range .Cells}}
<section class="flow-item" data-block="{{.ID}}"{{with .Body.Style}} style="{{.}}"{{end}}>{{.Body.HTML}}</section>
{{- end}}
</article>
{{- end -}}
`))

type editableData struct {
	View
	Height float64
}

// WriteHTML writes the view as an HTML fragment.
func (v View) WriteHTML(w io.Writer) error {
	if v.Mode == ModeEditable && !v.isMarkup() {
		return viewTemplates.ExecuteTemplate(w, "editable", editableData{View: v, Height: float64(v.Rows) * RowHeight})
	}
	return viewTemplates.ExecuteTemplate(w, "read", v)
}

// HTML renders the view to a string.
func (v View) HTML() (string, error) {
	var buf bytes.Buffer
	if err := v.WriteHTML(&buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

func (v View) isMarkup() bool {
	return len(v.Cells) == 1 && v.Cells[0].Body.Kind == FragmentMarkup
}
