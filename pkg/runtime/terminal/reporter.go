package terminal

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
)

// Reporter prints attribute metadata to the console in a formatted text form
type Reporter struct {
	writer io.Writer
}

// NewReporter creates a new console reporter
func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

func (c *Reporter) Handle(attributes []domain.AttributeDescriptor) error {
	tmpl := `{{range .}}
=== {{.Name}} ===
Source: {{.Table}}.{{.Column}} ({{.DataType}}, {{.Level}} level)
Method: {{.Method}}, tie break {{.TieBreak}}{{if .Unit}}
Unit: {{.Unit}}{{end}}{{if .DomainName}}
Domain: {{.DomainName}}{{end}}{{if .PrimaryColumn}}
Primary constraint: {{.PrimaryColumn}}{{end}}{{if .SecondaryColumn}}
Secondary constraint: {{.SecondaryColumn}}{{end}}
{{end}}`
	t, err := template.New("attributes").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, attributes)
}
