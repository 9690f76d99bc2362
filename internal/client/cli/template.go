package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

var templateFuncs = template.FuncMap{
	"price": formatPrice,
	"date":  formatDate,
}

const profileTemplate = `
=== Profil ===

Nom:       {{.DisplayName}}
Téléphone: {{.PhoneNumber}}
{{- if .Email}}
E-mail:    {{.Email}}
{{- end}}
{{- if .City}}
Ville:     {{.City}}{{if .District}}, {{.District}}{{end}}
{{- end}}
{{- if .IsStorefront}}
Boutique:  {{.StorefrontName}}
{{- end}}
{{- if .CurrentPlan}}
Forfait:   {{.CurrentPlan}}
{{- end}}
{{- if not .CreatedAt.IsZero}}
Inscrit:   {{date .CreatedAt}}
{{- end}}
`

const listingTemplate = `
=== {{.Title}} ===

N°:        {{.ID}}
Prix:      {{price .Price}}{{if .Negotiable}} (négociable){{end}}
{{- if .Category}}
Catégorie: {{.Category.Name}}
{{- end}}
Lieu:      {{.City}}{{if .District}}, {{.District}}{{end}}
{{- if .Condition}}
État:      {{.Condition}}
{{- end}}
{{- if .ContactPhone}}
Contact:   {{.ContactPhone}}
{{- end}}
{{- if not .CreatedAt.IsZero}}
Publié:    {{date .CreatedAt}}
{{- end}}
{{- if .Description}}

{{.Description}}
{{- end}}
`

// render выполняет шаблон в вывод CLI
func (c *Cli) render(text string, data any) error {
	tmpl, err := template.New("view").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	if err := tmpl.Execute(c.io, data); err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}
	c.io.Println()
	return nil
}

// formatPrice печатает цену с разделителем тысяч: 6 500 000 FCFA
func formatPrice(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + " FCFA"
}

func formatDate(t interface{ Format(string) string }) string {
	return t.Format("02/01/2006")
}
