// Package mail sends notification emails about new enquiries.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"github.com/petermazzocco/go-catalog-api/internal/config"
	"github.com/petermazzocco/go-catalog-api/models"
)

type Notifier interface {
	EnquiryReceived(ctx context.Context, enquiry *models.QuickEnquiry) error
}

// New returns an SMTP notifier when cfg has a host and a recipient, and a
// no-op notifier otherwise.
func New(cfg config.MailConfig) Notifier {
	if !cfg.Enabled() {
		return Nop{}
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.Port == 465
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	from := cfg.User
	if from == "" {
		from = cfg.NotifyTo
	}
	return &SMTP{sender: d, from: from, to: cfg.NotifyTo}
}

type Nop struct{}

func (Nop) EnquiryReceived(context.Context, *models.QuickEnquiry) error { return nil }

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTP struct {
	sender sender
	from   string
	to     string
}

func (s *SMTP) EnquiryReceived(ctx context.Context, e *models.QuickEnquiry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := RenderEnquiry(e)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to)
	m.SetHeader("Subject", fmt.Sprintf("New enquiry from %s", e.Name))
	m.SetBody("text/html", body)
	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send enquiry mail: %w", err)
	}
	return nil
}

type enquiryView struct {
	Name         string
	Phoneno      string
	Email        string
	Businessname string
	Price        string
	Reservations string
	Message      string
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var enquiryTmpl = template.Must(template.New("enquiry").Parse(`<h2>New quick enquiry</h2>
<table>
<tr><td>Name</td><td>{{.Name}}</td></tr>
<tr><td>Phone</td><td>{{.Phoneno}}</td></tr>
<tr><td>Email</td><td>{{.Email}}</td></tr>
{{- with .Businessname}}
<tr><td>Business</td><td>{{.}}</td></tr>{{end}}
{{- with .Price}}
<tr><td>Price</td><td>{{.}}</td></tr>{{end}}
{{- with .Reservations}}
<tr><td>Reservations</td><td>{{.}}</td></tr>{{end}}
{{- with .Message}}
<tr><td>Message</td><td>{{.}}</td></tr>{{end}}
</table>
`))

// RenderEnquiry returns the HTML body of the notification for e. Values are
// escaped.
func RenderEnquiry(e *models.QuickEnquiry) (string, error) {
	view := enquiryView{
		Name:         e.Name,
		Phoneno:      e.Phoneno,
		Email:        e.Email,
		Businessname: deref(e.Businessname),
		Price:        deref(e.Price),
		Reservations: deref(e.Reservations),
		Message:      deref(e.Message),
	}
	var buf bytes.Buffer
	if err := enquiryTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render enquiry mail: %w", err)
	}
	return buf.String(), nil
}
