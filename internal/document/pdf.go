package document

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"strings"

	"transcript-request-service/internal/model"
	apperrors "transcript-request-service/pkg/errors"

	"github.com/go-pdf/fpdf"
)

// US Letter in points.
const (
	pageWidth      = 612.0
	pageHeight     = 792.0
	marginX        = 50.0
	headerHeight   = 60.0
	lineHeight     = 13.0
	sectionGap     = 8.0
	signatureBoxW  = 200.0
	signatureBoxH  = 60.0
	footerTop      = pageHeight - 60
	signatureImage = "signature"
)

var brandColor = [3]int{31, 64, 122}

type pdfField struct {
	label string
	value string
}

// RenderPDF draws the single-page receipt for a request. A signature that
// cannot be decoded is replaced by a placeholder line.
func (g *Generator) RenderPDF(data *model.TranscriptRequestData, requestID string) ([]byte, error) {
	now := g.now()

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCompression(g.compress)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(marginX, marginX, marginX)
	pdf.SetCreationDate(now)
	pdf.SetTitle("Transcript Request Confirmation", false)
	pdf.SetCreator(g.brand, false)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Header band
	pdf.SetFillColor(brandColor[0], brandColor[1], brandColor[2])
	pdf.Rect(0, 0, pageWidth, headerHeight, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Text(marginX, 28, tr(strings.ToUpper(g.brand)))
	pdf.SetFont("Helvetica", "", 11)
	pdf.Text(marginX, 46, "Official Transcript Request Confirmation")

	y := headerHeight + 22
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Text(marginX, y, tr("Request ID: "+requestID))
	y += lineHeight + sectionGap

	y = g.section(pdf, tr, y, "Student Information", []pdfField{
		{"Name", data.StudentFullName()},
		{"Email", data.StudentEmail},
		{"Date of Birth", data.StudentDOB},
		{"SSN (last 4)", maskSSN(data.StudentPartialSSN)},
	})

	y = g.section(pdf, tr, y, "High School Information", []pdfField{
		{"School", data.SchoolName},
		{"CEEB Code", data.SchoolCEEB},
		{"Address", joinAddress(data.SchoolAddress, data.SchoolCity, data.SchoolState, data.SchoolZip)},
		{"Phone", data.SchoolPhone},
		{"Email", data.SchoolEmail},
		{"Enroll Date", data.EnrollDate},
		{"Exit Date", data.ExitDate},
		{"Currently Enrolled", yesNo(data.CurrentEnrollment)},
		{"Graduation Date", data.GraduationDate},
	})

	y = g.section(pdf, tr, y, "Destination School Information", []pdfField{
		{"School", data.DestinationSchool},
		{"CEEB Code", data.DestinationCEEB},
		{"Address", joinAddress(data.DestinationAddress, data.DestinationCity, data.DestinationState, data.DestinationZip)},
	})

	y = g.section(pdf, tr, y, "Request Details", []pdfField{
		{"Document Type", data.DocumentType},
		{"Tracking ID", data.RequestTrackingID},
		{"Submitted", data.SubmittedAt.Format("January 2, 2006 3:04 PM MST")},
	})

	consent := []pdfField{
		{"FERPA Disclosure Read", yesNo(data.FERPADisclosureRead)},
		{"Consent Given", yesNo(data.ConsentGiven)},
	}
	if data.CertifyInformation != nil {
		consent = append(consent, pdfField{"Information Certified", yesNo(*data.CertifyInformation)})
	}
	if data.LiabilityAgreed != nil {
		consent = append(consent, pdfField{"Liability Agreement", yesNo(*data.LiabilityAgreed)})
	}
	consent = append(consent, pdfField{"Release Method", model.ReleaseMethodElectronicSign})
	y = g.section(pdf, tr, y, "Consent & Certification", consent)

	y = g.sectionTitle(pdf, tr, y, "Digital Signature")
	y = g.signature(pdf, tr, y, data.StudentSignature)
	if data.SignatureDate != "" {
		g.field(pdf, tr, y, pdfField{"Signature Date", data.SignatureDate})
	}

	// Footer
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginX, footerTop, pageWidth-marginX, footerTop)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(110, 110, 110)
	pdf.Text(marginX, footerTop+16, tr(g.brand+" - Transcript Request Confirmation"))
	pdf.Text(marginX, footerTop+28, "Generated: "+now.UTC().Format("2006-01-02 15:04:05 MST"))
	pdf.Text(pageWidth-marginX-pdf.GetStringWidth("Page 1 of 1"), footerTop+28, "Page 1 of 1")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: write pdf: %v", apperrors.ErrRendering, err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) sectionTitle(pdf *fpdf.Fpdf, tr func(string) string, y float64, title string) float64 {
	y += sectionGap
	pdf.SetTextColor(brandColor[0], brandColor[1], brandColor[2])
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(marginX, y, tr(title))
	pdf.SetDrawColor(brandColor[0], brandColor[1], brandColor[2])
	pdf.SetLineWidth(0.75)
	pdf.Line(marginX, y+4, pageWidth-marginX, y+4)
	pdf.SetTextColor(0, 0, 0)
	return y + lineHeight + 4
}

func (g *Generator) section(pdf *fpdf.Fpdf, tr func(string) string, y float64, title string, fields []pdfField) float64 {
	y = g.sectionTitle(pdf, tr, y, title)
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		y = g.field(pdf, tr, y, f)
	}
	return y
}

func (g *Generator) field(pdf *fpdf.Fpdf, tr func(string) string, y float64, f pdfField) float64 {
	label := tr(f.label + ": ")
	pdf.SetFont("Helvetica", "B", 9)
	pdf.Text(marginX, y, label)
	labelWidth := pdf.GetStringWidth(label)

	pdf.SetFont("Helvetica", "", 9)
	value := fitText(pdf, tr(f.value), pageWidth-2*marginX-labelWidth)
	pdf.Text(marginX+labelWidth, y, value)
	return y + lineHeight
}

func (g *Generator) signature(pdf *fpdf.Fpdf, tr func(string) string, y float64, encoded string) float64 {
	placeholder := func(text string) float64 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.Text(marginX, y, tr(text))
		return y + lineHeight
	}

	if encoded == "" {
		return placeholder("No signature provided")
	}

	pngData, width, height, err := normalizeSignature(encoded)
	if err != nil {
		g.log.Warn().Err(err).Msg("Signature could not be decoded, drawing placeholder")
		return placeholder("Signature on file (image could not be rendered)")
	}

	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(signatureImage, opts, bytes.NewReader(pngData))
	if !pdf.Ok() {
		g.log.Warn().Err(pdf.Error()).Msg("Signature could not be embedded, drawing placeholder")
		pdf.ClearError()
		return placeholder("Signature on file (image could not be rendered)")
	}

	w, h := fitWithin(float64(width), float64(height), signatureBoxW, signatureBoxH)
	top := y - 8
	pdf.ImageOptions(signatureImage, marginX, top, w, h, false, opts, 0, "")
	pdf.SetDrawColor(180, 180, 180)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginX, top+signatureBoxH+2, marginX+signatureBoxW, top+signatureBoxH+2)
	return top + signatureBoxH + 2 + lineHeight
}

// normalizeSignature decodes a base64 (optionally data-URL) PNG or JPEG and
// re-encodes it as an 8-bit NRGBA PNG.
const (
	maxSignatureWidth  = 4000
	maxSignatureHeight = 2000
)

func normalizeSignature(encoded string) ([]byte, int, int, error) {
	if strings.HasPrefix(encoded, "data:") {
		idx := strings.Index(encoded, ",")
		if idx < 0 {
			return nil, 0, 0, fmt.Errorf("malformed data url")
		}
		encoded = encoded[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("decode base64: %w", err)
		}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width > maxSignatureWidth || cfg.Height > maxSignatureHeight {
		return nil, 0, 0, fmt.Errorf("signature too large: %dx%d", cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, 0, 0, fmt.Errorf("empty image")
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, nrgba); err != nil {
		return nil, 0, 0, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

// fitWithin scales w x h to the largest size inside maxW x maxH keeping the
// aspect ratio.
func fitWithin(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := maxW / w
	if s := maxH / h; s < scale {
		scale = s
	}
	return w * scale, h * scale
}

func fitText(pdf *fpdf.Fpdf, text string, maxWidth float64) string {
	if pdf.GetStringWidth(text) <= maxWidth {
		return text
	}
	// text is already single-byte encoded by the translator
	b := []byte(text)
	for len(b) > 0 && pdf.GetStringWidth(string(b)+"...") > maxWidth {
		b = b[:len(b)-1]
	}
	return string(b) + "..."
}

func joinAddress(line, city, state, zip string) string {
	var parts []string
	if line != "" {
		parts = append(parts, line)
	}
	cityState := strings.TrimSpace(strings.Join(nonEmpty(city, state), ", ") + " " + zip)
	if cityState != "" {
		parts = append(parts, cityState)
	}
	return strings.Join(parts, ", ")
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func maskSSN(last4 string) string {
	if last4 == "" {
		return ""
	}
	return "XXX-XX-" + last4
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
