package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"

	"fundops/api/internal/reconcile"
)

//go:embed templates/*.html
var templateFS embed.FS

var reportTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"statusLabel": statusLabel,
	}

	templateContent, err := templateFS.ReadFile("templates/report.html")
	if err != nil {
		reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for report template rendering
type TemplateData struct {
	Title       string
	CompanyName string
	GeneratedAt time.Time
	Total       int
	AlreadySet  int
	Matched     int
	NotFound    int
	Ambiguous   int
	Rows        []Row
}

func newTemplateData(report Report) TemplateData {
	preview := report.Preview
	data := TemplateData{
		Title:       "Client company reconciliation",
		CompanyName: report.Company.Name,
		GeneratedAt: report.GeneratedAt,
		Total:       preview.Total,
		AlreadySet:  preview.AlreadySet,
		Matched:     preview.Matched,
		NotFound:    preview.NotFound,
		Ambiguous:   preview.Ambiguous,
		Rows:        make([]Row, 0, len(preview.Results)),
	}
	if data.CompanyName == "" {
		data.CompanyName = report.Company.ID
	}
	for _, result := range preview.Results {
		data.Rows = append(data.Rows, rowFromResult(result))
	}
	return data
}

// RenderReportHTML renders the report template with provided data
func RenderReportHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func statusLabel(status reconcile.Status) string {
	return strings.ReplaceAll(string(status), "_", " ")
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; font-size: 12px; margin: 2rem; }
    table { border-collapse: collapse; width: 100%; }
    td, th { border-bottom: 1px solid #ddd; padding: 4px; text-align: left; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <p>{{.CompanyName}} | {{formatDate .GeneratedAt "Jan 2, 2006"}} | {{.Total}} investors</p>
  <table>
  {{range .Rows}}<tr><td>{{.InvestorName}}</td><td>{{.ClientName}}</td><td>{{statusLabel .Status}}</td><td>{{.MatchedCompanyName}}</td></tr>{{end}}
  </table>
</body>
</html>`
