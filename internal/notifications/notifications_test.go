package notifications

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-seminarios/backend/internal/mail"
	"github.com/campus-seminarios/backend/internal/models"
)

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(Config{
		AppName:     "Seminários",
		FrontendURL: "https://seminarios.example.edu/",
		Host:        "seminarios.example.edu",
		BugReportTo: "suporte@example.edu",
	})
	require.NoError(t, err)
	return b
}

func strPtr(s string) *string { return &s }

func seminarAt(name, slug string, at *time.Time) *models.Seminar {
	return &models.Seminar{ID: uuid.New(), Name: name, Slug: slug, ScheduledAt: at}
}

var user = &models.User{ID: uuid.New(), Name: "Ana", Email: "ana@example.com"}

func TestSubjects(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{EvaluationReminderSubject(1, "App"), "Avalie o seminário que você participou - App"},
		{EvaluationReminderSubject(3, "App"), "Avalie os 3 seminários que você participou - App"},
		{SeminarReminderSubject(1, "App"), "Lembrete: você tem um seminário amanhã - App"},
		{SeminarReminderSubject(2, "App"), "Lembrete: você tem 2 seminários amanhã - App"},
		{CertificateSubject("IA na Saúde"), "Certificado disponível: IA na Saúde"},
		{BugReportSubject("Erro no login"), "[Bug Report] Erro no login"},
		{PasswordResetSubject("App"), "Redefinição de senha - App"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.got)
	}
}

func TestSeminarReminderAttachesOneInvitePerScheduledSeminar(t *testing.T) {
	b := newBuilder(t)
	at := time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC)
	now := time.Date(2026, 6, 14, 12, 0, 0, 0, time.UTC)
	s1 := seminarAt("Talk", "talk", &at)
	s1.Location = strPtr("Auditório 1")
	s2 := seminarAt("Sem data", "sem-data", nil)

	msg, err := b.SeminarReminder(user, []*models.Seminar{s1, s2}, now)
	require.NoError(t, err)

	assert.Equal(t, models.EmailTypeSeminarReminder, msg.Type)
	assert.Equal(t, "Lembrete: você tem 2 seminários amanhã - Seminários", msg.Subject)
	assert.Equal(t, "ana@example.com", msg.Recipient())
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "seminario-talk.ics", msg.Attachments[0].Filename)
	assert.Equal(t, "text/calendar", msg.Attachments[0].ContentType)
	assert.Contains(t, string(msg.Attachments[0].Data), "BEGIN:VEVENT")

	assert.Contains(t, msg.Text, "15/06/2026 às 11:00")
	assert.Contains(t, msg.Text, "Auditório 1")
	assert.Contains(t, msg.Text, "https://seminarios.example.edu/seminarios/talk")
	assert.Contains(t, msg.HTML, "Sem data")

	again, err := b.SeminarReminder(user, []*models.Seminar{s1, s2}, now)
	require.NoError(t, err)
	assert.Equal(t, msg.Attachments, again.Attachments)
}

func TestSeminarReminderSingular(t *testing.T) {
	b := newBuilder(t)
	at := time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC)
	msg, err := b.SeminarReminder(user, []*models.Seminar{seminarAt("Talk", "talk", &at)}, at)
	require.NoError(t, err)
	assert.Equal(t, "Lembrete: você tem um seminário amanhã - Seminários", msg.Subject)
	assert.Contains(t, msg.Text, "no seminário abaixo")

	_, err = b.SeminarReminder(user, nil, at)
	assert.Error(t, err)
}

func TestEvaluationReminder(t *testing.T) {
	b := newBuilder(t)
	at := time.Date(2026, 6, 13, 22, 0, 0, 0, time.UTC)
	msg, err := b.EvaluationReminder(user, []*models.Seminar{seminarAt("Talk", "talk", &at), seminarAt("Outro", "outro", &at)})
	require.NoError(t, err)
	assert.Equal(t, "Avalie os 2 seminários que você participou - Seminários", msg.Subject)
	assert.Empty(t, msg.Attachments)
	assert.Contains(t, msg.Text, "https://seminarios.example.edu/avaliacoes")
	assert.Contains(t, msg.HTML, "Outro")
}

func TestCertificateGenerated(t *testing.T) {
	b := newBuilder(t)
	at := time.Date(2026, 6, 15, 1, 0, 0, 0, time.UTC)
	s := seminarAt("IA na Saúde", "ia-na-saude", &at)
	msg, err := b.CertificateGenerated(user, s, "ABC123", []byte("%PDF-1.3"))
	require.NoError(t, err)

	assert.Equal(t, "Certificado disponível: IA na Saúde", msg.Subject)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "certificado-ia-na-saude.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
	// 01:00 UTC is still the previous day in São Paulo.
	assert.Contains(t, msg.Text, "14/06/2026")
	assert.Contains(t, msg.Text, "https://seminarios.example.edu/certificados/ABC123")
}

func TestBugReport(t *testing.T) {
	b := newBuilder(t)
	files := []mail.Attachment{{Filename: "tela.png", ContentType: "image/png", Data: []byte{0x89}}}
	msg, err := b.BugReport(BugReport{Name: "Caio", Email: "caio@example.com", Subject: "Erro", Message: "Botão <b>quebrado</b>", Files: files})
	require.NoError(t, err)

	assert.Equal(t, "[Bug Report] Erro", msg.Subject)
	assert.Equal(t, "suporte@example.edu", msg.Recipient())
	require.NotNil(t, msg.ReplyTo)
	assert.Equal(t, "caio@example.com", msg.ReplyTo.Email)
	assert.Equal(t, files, msg.Attachments)
	assert.Contains(t, msg.HTML, "Botão &lt;b&gt;quebrado&lt;/b&gt;")
	assert.Contains(t, msg.Text, "tela.png")
}

func TestPasswordReset(t *testing.T) {
	b := newBuilder(t)
	msg, err := b.PasswordReset(user, "tok123", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "Redefinição de senha - Seminários", msg.Subject)
	assert.Contains(t, msg.Text, "https://seminarios.example.edu/redefinir-senha?email=ana%40example.com&token=tok123")
	assert.Contains(t, msg.Text, "60 minutos")
	assert.True(t, strings.HasSuffix(msg.Text, "\n"))
}
