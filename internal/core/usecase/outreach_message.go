package usecase

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"text/template"

	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/phone"
)

// DefaultMessageTemplate - сообщение клиенту о подходящем объекте
const DefaultMessageTemplate = `{{.Salutation}} {{.ClientName}}, abbiamo trovato un immobile in linea con la sua ricerca: {{.Title}}` +
	`{{if .City}} a {{.City}}{{end}}{{if .Zone}} ({{.Zone}}){{end}}, {{.Price}} €{{if .Size}}, {{.Size}} m²{{end}}.` +
	`{{if .URL}} Dettagli: {{.URL}}{{end}}`

type messageData struct {
	Salutation string
	ClientName string
	Title      string
	City       string
	Zone       string
	Price      string
	Size       string
	URL        string
	Score      int
}

type messageRenderer struct {
	tmpl *template.Template
}

func newMessageRenderer(text string) (*messageRenderer, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultMessageTemplate
	}
	tmpl, err := template.New("outreach").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid outreach message template: %w", err)
	}
	return &messageRenderer{tmpl: tmpl}, nil
}

func (r *messageRenderer) Render(client domain.Client, listing domain.Listing, score int) (string, error) {
	salutation := client.Salutation
	if salutation == "" {
		salutation = "Gentile"
	}
	data := messageData{
		Salutation: salutation,
		ClientName: client.Name,
		Title:      listing.Title,
		City:       listing.City,
		Zone:       listing.Zone,
		Price:      formatThousands(listing.Price),
		URL:        listing.URL,
		Score:      score,
	}
	if listing.Size > 0 {
		data.Size = strconv.FormatFloat(listing.Size, 'f', 0, 64)
	}

	var b strings.Builder
	if err := r.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render outreach message: %w", err)
	}
	return b.String(), nil
}

// WhatsAppDeepLink - ссылка, открывающая чат с готовым текстом
func WhatsAppDeepLink(phoneNumber, text string) string {
	return "https://wa.me/" + phone.Normalize(phoneNumber) + "?text=" + url.QueryEscape(text)
}

// formatThousands: 300000 -> "300.000"
func formatThousands(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
