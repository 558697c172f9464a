package certificates

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"

	"github.com/campus-seminarios/backend/pkg/utils"
)

const qrImage = "validation-qr"

// Document is what a certificate page shows.
type Document struct {
	AppName     string
	UserName    string
	SeminarName string
	HeldAt      *time.Time
	Code        string
	IssuedAt    time.Time
	ValidateURL string
}

// RenderPDF draws a landscape A4 certificate with a QR code of the validation URL. Output
// depends only on doc, so re-rendering yields the same bytes.
func RenderPDF(doc Document) ([]byte, error) {
	qr, err := qrcode.Encode(doc.ValidateURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.IssuedAt)
	pdf.SetModificationDate(doc.IssuedAt)
	pdf.SetTitle("Certificado "+doc.Code, true)
	pdf.SetAuthor(doc.AppName, true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	w, h := pdf.GetPageSize()

	pdf.SetDrawColor(40, 70, 120)
	pdf.SetLineWidth(1.5)
	pdf.Rect(10, 10, w-20, h-20, "D")

	pdf.SetY(38)
	pdf.SetFont("Helvetica", "B", 34)
	pdf.SetTextColor(40, 70, 120)
	pdf.CellFormat(0, 16, tr("CERTIFICADO"), "", 1, "C", false, 0, "")

	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 16)
	pdf.SetTextColor(30, 30, 30)
	body := fmt.Sprintf("Certificamos que %s participou do seminário \"%s\"", doc.UserName, doc.SeminarName)
	if doc.HeldAt != nil {
		body += ", realizado em " + utils.FormatDate(*doc.HeldAt)
	}
	pdf.MultiCell(0, 9, tr(body+"."), "", "C", false)

	pdf.SetY(h - 62)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr("Emitido em "+utils.FormatDate(doc.IssuedAt)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Código de validação: "+doc.Code), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, tr("Valide em "+doc.ValidateURL), "", 1, "L", false, 0, "")

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(qrImage, opts, bytes.NewReader(qr))
	pdf.ImageOptions(qrImage, w-62, h-68, 40, 40, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
