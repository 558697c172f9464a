// Package notifications turns domain events into rendered mail messages.
package notifications

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/campus-seminarios/backend/internal/ics"
	"github.com/campus-seminarios/backend/internal/mail"
	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/pkg/utils"
)

//go:embed templates
var templatesFS embed.FS

// Config carries the deployment values used in subjects, links and invites.
type Config struct {
	AppName     string
	FrontendURL string
	Host        string
	BugReportTo string
}

// Builder renders notification messages. It is safe for concurrent use.
type Builder struct {
	cfg  Config
	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewBuilder parses the embedded templates.
func NewBuilder(cfg Config) (*Builder, error) {
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	html, err := htmltemplate.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templatesFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	return &Builder{cfg: cfg, html: html, text: text}, nil
}

// BugReportSubject is the subject of a forwarded bug report.
func BugReportSubject(subject string) string {
	return "[Bug Report] " + subject
}

// CertificateSubject is the subject of the certificate mail.
func CertificateSubject(seminarName string) string {
	return "Certificado disponível: " + seminarName
}

// EvaluationReminderSubject pluralises on the number of seminars to rate.
func EvaluationReminderSubject(n int, app string) string {
	if n == 1 {
		return "Avalie o seminário que você participou - " + app
	}
	return fmt.Sprintf("Avalie os %d seminários que você participou - %s", n, app)
}

// SeminarReminderSubject pluralises on the number of seminars happening tomorrow.
func SeminarReminderSubject(n int, app string) string {
	if n == 1 {
		return "Lembrete: você tem um seminário amanhã - " + app
	}
	return fmt.Sprintf("Lembrete: você tem %d seminários amanhã - %s", n, app)
}

// PasswordResetSubject is the subject of the password reset mail.
func PasswordResetSubject(app string) string {
	return "Redefinição de senha - " + app
}

// SeminarURL is the public page of a seminar.
func (b *Builder) SeminarURL(slug string) string {
	return b.cfg.FrontendURL + "/seminarios/" + slug
}

// CertificateURL is the public validation page of a certificate.
func (b *Builder) CertificateURL(code string) string {
	return b.cfg.FrontendURL + "/certificados/" + code
}

// EvaluationURL is the page listing the user's pending evaluations.
func (b *Builder) EvaluationURL() string {
	return b.cfg.FrontendURL + "/avaliacoes"
}

// PasswordResetURL is the reset form link carrying token and email.
func (b *Builder) PasswordResetURL(token, email string) string {
	q := url.Values{"token": {token}, "email": {email}}
	return b.cfg.FrontendURL + "/redefinir-senha?" + q.Encode()
}

// ICSOptions returns the invite options of this deployment.
func (b *Builder) ICSOptions() ics.Options {
	return ics.Options{Host: b.cfg.Host, FrontendURL: b.cfg.FrontendURL}
}

type seminarLine struct {
	Name     string
	When     string
	Location string
	RoomLink string
	URL      string
}

func (b *Builder) line(s *models.Seminar) seminarLine {
	l := seminarLine{Name: s.Name, URL: b.SeminarURL(s.Slug)}
	if s.ScheduledAt != nil {
		l.When = utils.FormatDateTime(*s.ScheduledAt)
	}
	if s.Location != nil {
		l.Location = *s.Location
	}
	if s.RoomLink != nil {
		l.RoomLink = *s.RoomLink
	}
	return l
}

func (b *Builder) render(name string, data interface{}) (string, string, error) {
	var html, text bytes.Buffer
	if err := b.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return "", "", fmt.Errorf("render %s.html: %w", name, err)
	}
	if err := b.text.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return "", "", fmt.Errorf("render %s.txt: %w", name, err)
	}
	return html.String(), strings.TrimSpace(text.String()) + "\n", nil
}

func recipient(u *models.User) []mail.Address {
	return []mail.Address{{Name: u.Name, Email: u.Email}}
}

// BugReport is a report submitted through the bug report form.
type BugReport struct {
	Name    string
	Email   string
	Subject string
	Message string
	Files   []mail.Attachment
}

// BugReport builds the mail forwarded to the support inbox, replying to the reporter.
func (b *Builder) BugReport(r BugReport) (*mail.Message, error) {
	names := make([]string, len(r.Files))
	for i, f := range r.Files {
		names[i] = f.Filename
	}
	data := struct {
		App, Name, Email, Subject, Message string
		Files                              []string
	}{b.cfg.AppName, r.Name, r.Email, r.Subject, r.Message, names}
	html, text, err := b.render(models.EmailTypeBugReport, data)
	if err != nil {
		return nil, err
	}
	return &mail.Message{
		Type:        models.EmailTypeBugReport,
		To:          []mail.Address{{Name: b.cfg.AppName, Email: b.cfg.BugReportTo}},
		ReplyTo:     &mail.Address{Name: r.Name, Email: r.Email},
		Subject:     BugReportSubject(r.Subject),
		HTML:        html,
		Text:        text,
		Attachments: r.Files,
	}, nil
}

// CertificatePDFName is the attachment name of a seminar certificate.
func CertificatePDFName(s *models.Seminar) string {
	return "certificado-" + s.Slug + ".pdf"
}

// CertificateGenerated builds the mail delivering a certificate PDF.
func (b *Builder) CertificateGenerated(u *models.User, s *models.Seminar, code string, pdf []byte) (*mail.Message, error) {
	data := struct {
		App, UserName, SeminarName, Date, Code, URL string
	}{App: b.cfg.AppName, UserName: u.Name, SeminarName: s.Name, Code: code, URL: b.CertificateURL(code)}
	if s.ScheduledAt != nil {
		data.Date = utils.FormatDate(*s.ScheduledAt)
	}
	html, text, err := b.render(models.EmailTypeCertificate, data)
	if err != nil {
		return nil, err
	}
	return &mail.Message{
		Type:    models.EmailTypeCertificate,
		To:      recipient(u),
		Subject: CertificateSubject(s.Name),
		HTML:    html,
		Text:    text,
		Attachments: []mail.Attachment{
			{Filename: CertificatePDFName(s), ContentType: "application/pdf", Data: pdf},
		},
	}, nil
}

// EvaluationReminder builds one mail asking u to rate the given seminars.
func (b *Builder) EvaluationReminder(u *models.User, seminars []*models.Seminar) (*mail.Message, error) {
	if len(seminars) == 0 {
		return nil, fmt.Errorf("evaluation reminder for %s: no seminars", u.ID)
	}
	lines := make([]seminarLine, len(seminars))
	for i, s := range seminars {
		lines[i] = b.line(s)
	}
	data := struct {
		App      string
		UserName string
		Seminars []seminarLine
		URL      string
	}{b.cfg.AppName, u.Name, lines, b.EvaluationURL()}
	html, text, err := b.render(models.EmailTypeEvaluationReminder, data)
	if err != nil {
		return nil, err
	}
	return &mail.Message{
		Type:    models.EmailTypeEvaluationReminder,
		To:      recipient(u),
		Subject: EvaluationReminderSubject(len(seminars), b.cfg.AppName),
		HTML:    html,
		Text:    text,
	}, nil
}

// SeminarReminder builds one mail listing tomorrow's seminars, with one invite per
// scheduled seminar. now stamps the invites.
func (b *Builder) SeminarReminder(u *models.User, seminars []*models.Seminar, now time.Time) (*mail.Message, error) {
	if len(seminars) == 0 {
		return nil, fmt.Errorf("seminar reminder for %s: no seminars", u.ID)
	}
	lines := make([]seminarLine, len(seminars))
	var attachments []mail.Attachment
	for i, s := range seminars {
		lines[i] = b.line(s)
		if s.ScheduledAt == nil {
			continue
		}
		invite, err := ics.Generate(s, b.ICSOptions(), now)
		if err != nil {
			return nil, fmt.Errorf("invite for seminar %s: %w", s.ID, err)
		}
		attachments = append(attachments, mail.Attachment{Filename: ics.Filename(s), ContentType: ics.ContentType, Data: invite})
	}
	data := struct {
		App      string
		UserName string
		Seminars []seminarLine
	}{b.cfg.AppName, u.Name, lines}
	html, text, err := b.render(models.EmailTypeSeminarReminder, data)
	if err != nil {
		return nil, err
	}
	return &mail.Message{
		Type:        models.EmailTypeSeminarReminder,
		To:          recipient(u),
		Subject:     SeminarReminderSubject(len(seminars), b.cfg.AppName),
		HTML:        html,
		Text:        text,
		Attachments: attachments,
	}, nil
}

// PasswordReset builds the reset link mail.
func (b *Builder) PasswordReset(u *models.User, token string, ttl time.Duration) (*mail.Message, error) {
	data := struct {
		App              string
		UserName         string
		URL              string
		ExpiresInMinutes int
	}{b.cfg.AppName, u.Name, b.PasswordResetURL(token, u.Email), int(ttl.Minutes())}
	html, text, err := b.render(models.EmailTypePasswordReset, data)
	if err != nil {
		return nil, err
	}
	return &mail.Message{
		Type:    models.EmailTypePasswordReset,
		To:      recipient(u),
		Subject: PasswordResetSubject(b.cfg.AppName),
		HTML:    html,
		Text:    text,
	}, nil
}
