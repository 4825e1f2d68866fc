package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
)

type TableConfig struct {
	KeyWidth     int
	AreaWidth    int
	RatingWidth  int
	PercentWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		KeyWidth:     12,
		AreaWidth:    10,
		RatingWidth:  30,
		PercentWidth: 8,
	}
}

// Reporter prints a rating table as a fixed-width text table.
type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

func (c *Reporter) Handle(table *domain.RatingTable) error {
	funcMap := template.FuncMap{
		"formatRow": func(key, area, rating, pct string) string {
			return fmt.Sprintf("| %-*s | %-*s | %-*s | %*s |",
				c.config.KeyWidth, key,
				c.config.AreaWidth, area,
				c.config.RatingWidth, rating,
				c.config.PercentWidth, pct)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.KeyWidth+2),
				strings.Repeat("-", c.config.AreaWidth+2),
				strings.Repeat("-", c.config.RatingWidth+2),
				strings.Repeat("-", c.config.PercentWidth+2))
		},
		"rating": func(v domain.RatingValue) string {
			if v.IsMissing() {
				return "-"
			}
			return v.String()
		},
		"percent": func(p *float64) string {
			if p == nil {
				return ""
			}
			return fmt.Sprintf("%.2f", *p)
		},
		"number": func(p *float64) string {
			if p == nil {
				return "-"
			}
			return fmt.Sprintf("%g", *p)
		},
	}

	tmpl := `
{{.Attribute}} ({{.Method}}, tie break {{.TieBreak}}){{if .Unit}} [{{.Unit}}]{{end}}
{{if .NoQualifyingData}}
No map unit has qualifying data.
{{end}}
{{if .Summary.Classes}}Classes: {{range $i, $c := .Summary.Classes}}{{if $i}}, {{end}}{{$c}}{{end}}
{{else}}Range: {{number .Summary.Min}} to {{number .Summary.Max}}
{{end}}Missing: {{.Summary.Missing}}
Warnings: {{.WarningCount}}

{{separator}}
{{formatRow "mukey" "area" "rating" "comppct"}}
{{separator}}
{{range .Rows}}{{formatRow .MapUnitID .AreaSymbol (rating .Rating) (percent .ComponentPercent)}}
{{end}}{{separator}}
`
	t, err := template.New("rating").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, table)
}
