package report

import (
	"bytes"
	"html/template"
)

// HTMLRenderer turns a Document into a standalone HTML page. It is the
// concrete document-renderer collaborator behind the report export; the
// model itself stays renderer-agnostic.
type HTMLRenderer struct {
	tmpl *template.Template
}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{tmpl: template.Must(template.New("report").Parse(reportTemplate))}
}

func (r *HTMLRenderer) Render(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const reportTemplate = `<!DOCTYPE html>
<html lang="{{.Language}}">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; font-size: 10pt; margin: 20px; }
h1 { text-align: center; font-size: 16pt; }
h2 { font-size: 12pt; background-color: #4472C4; color: white; padding: 5px; margin-top: 15px; }
table { width: 100%; border-collapse: collapse; margin-bottom: 15px; }
th, td { border: 1px solid #000; padding: 5px; text-align: left; }
th { background-color: #D9E1F2; }
.inadmissible { background-color: #FF0000; color: white; font-weight: bold; }
.unacceptable { background-color: #FFC000; }
.tolerable { background-color: #FFFF00; }
.acceptable { background-color: #92D050; }
.signature-box { border: 1px solid #000; padding: 30px 10px 10px 10px; margin: 10px 0; min-height: 60px; }
.note { text-align: center; font-size: 8pt; margin-top: 20px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Sections}}
{{if .Title}}<h2>{{.Title}}</h2>{{end}}
{{if eq .Type "text"}}<p>{{.Text}}</p>{{end}}
{{if eq .Type "note"}}<p class="note">{{.Text}}</p>{{end}}
{{if eq .Type "list"}}<ul>{{range .Items}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if or (eq .Type "table") (eq .Type "header")}}{{with .Table}}
<table>
{{if index .Columns 0}}<tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>{{end}}
{{range .Rows}}<tr class="{{.Class}}">{{range .Cells}}<td>{{.}}</td>{{end}}</tr>{{end}}
</table>
{{end}}{{end}}
{{if eq .Type "checklist"}}
<table>{{range .Checks}}<tr><td>{{if .Checked}}&#9745;{{else}}&#9744;{{end}} {{.Label}}</td></tr>{{end}}</table>
{{end}}
{{if eq .Type "signatures"}}
<table><tr>{{range .Signatures}}<td><div class="signature-box"><strong>{{.Role}}</strong><br>{{.Name}}<br>{{.Email}}</div></td>{{end}}</tr></table>
{{end}}
{{end}}
</body>
</html>`
