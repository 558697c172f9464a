package bugreports

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-seminarios/backend/internal/mail"
	"github.com/campus-seminarios/backend/internal/notifications"
	"github.com/campus-seminarios/backend/internal/validation"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	pdfBytes = []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
)

type upload struct {
	name string
	data []byte
}

func setup(t *testing.T) (*gin.Engine, *mail.Log) {
	t.Helper()
	require.NoError(t, validation.Setup())
	gin.SetMode(gin.TestMode)
	b, err := notifications.NewBuilder(notifications.Config{
		AppName:     "Seminários",
		FrontendURL: "https://seminarios.example.edu",
		BugReportTo: "suporte@example.edu",
	})
	require.NoError(t, err)
	sender := mail.NewLog(nil)
	r := gin.New()
	r.POST("/bug-report", NewHandler(b, sender, nil).Submit)
	return r, sender
}

func post(t *testing.T, r http.Handler, fields map[string]string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("files[]", f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/bug-report", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validFields() map[string]string {
	return map[string]string{
		"name":    "Maria",
		"email":   "maria@example.edu",
		"subject": "Botão não funciona",
		"message": "Ao clicar em inscrever nada acontece.",
	}
}

func TestSubmitSendsWithAttachments(t *testing.T) {
	r, sender := setup(t)
	w := post(t, r, validFields(), upload{"tela.png", pngBytes}, upload{"log.pdf", pdfBytes})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sent := sender.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "[Bug Report] Botão não funciona", msg.Subject)
	assert.Equal(t, "suporte@example.edu", msg.To[0].Email)
	require.NotNil(t, msg.ReplyTo)
	assert.Equal(t, "maria@example.edu", msg.ReplyTo.Email)
	require.Len(t, msg.Attachments, 2)
	assert.Equal(t, "tela.png", msg.Attachments[0].Filename)
	assert.Equal(t, "image/png", msg.Attachments[0].ContentType)
	assert.Equal(t, "application/pdf", msg.Attachments[1].ContentType)
}

func TestSubmitRejectsFiles(t *testing.T) {
	r, sender := setup(t)
	big := append(append([]byte{}, pngBytes...), make([]byte, MaxFileSize)...)

	w := post(t, r, validFields(),
		upload{"a.png", pngBytes},
		upload{"grande.png", big},
		upload{"notas.txt", []byte("apenas texto")},
		upload{"b.png", pngBytes},
	)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, strings.Join([]string{
		"Você pode enviar no máximo 3 arquivos",
		"O arquivo grande.png excede o limite de 1MB",
		"O arquivo notas.txt possui um tipo não permitido",
	}, ". "), body.Message)
	assert.Empty(t, sender.Sent())
}

func TestSubmitValidatesFields(t *testing.T) {
	r, sender := setup(t)
	fields := validFields()
	fields["email"] = "not-an-email"
	delete(fields, "message")

	w := post(t, r, fields)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Errors, "email")
	assert.Contains(t, body.Errors, "message")
	assert.Empty(t, sender.Sent())
}
