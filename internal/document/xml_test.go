package document

import (
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"testing"
	"time"

	"transcript-request-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var renderTime = time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)

func newTestGenerator(opts ...Option) *Generator {
	base := []Option{WithClock(func() time.Time { return renderTime })}
	return NewGenerator(append(base, opts...)...)
}

func sampleData() *model.TranscriptRequestData {
	return &model.TranscriptRequestData{
		StudentFirstName:    "Jane",
		StudentLastName:     "Doe",
		StudentEmail:        "jane@example.com",
		StudentDOB:          "2006-05-14",
		SchoolName:          "Central High",
		CurrentEnrollment:   true,
		DestinationSchool:   "State University",
		DestinationCEEB:     "123456",
		DocumentType:        model.DefaultDocumentType,
		FERPADisclosureRead: true,
		ConsentGiven:        true,
		SubmittedAt:         renderTime,
	}
}

func assertWellFormed(t *testing.T, doc []byte) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(doc))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		require.NoError(t, err)
	}
}

func TestRenderXMLStructure(t *testing.T) {
	doc, err := newTestGenerator().RenderXML(sampleData())
	require.NoError(t, err)

	out := string(doc.XML)
	assertWellFormed(t, doc.XML)

	assert.True(t, bytes.HasPrefix(doc.XML, []byte(xml.Header)))
	assert.Contains(t, out, `<ns1:TranscriptRequest xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`)
	assert.Contains(t, out, `xmlns:ns1="urn:org:pesc:message:TranscriptRequest:v1.2.0"`)
	assert.Contains(t, out, "<DocumentID>"+doc.DocumentID+"</DocumentID>")
	assert.Contains(t, out, "<CreatedDateTime>2026-10-18T09:30:00</CreatedDateTime>")
	assert.Contains(t, out, "<DocumentTypeCode>Request</DocumentTypeCode>")
	assert.Contains(t, out, "<TransmissionType>Original</TransmissionType>")
	assert.Contains(t, out, "<ns2:FileName>"+doc.FileName+"_document.pdf</ns2:FileName>")
	assert.Contains(t, out, "<ns2:DocumentType>Transcript - Final</ns2:DocumentType>")
	assert.Contains(t, out, "<BirthDate>2006-05-14</BirthDate>")
	assert.Contains(t, out, "<CurrentEnrollmentIndicator>true</CurrentEnrollmentIndicator>")
	assert.Contains(t, out, "<ReleaseAuthorizedIndicator>true</ReleaseAuthorizedIndicator>")
	assert.Contains(t, out, "<ReleaseAuthorizedMethod>ElectronicSignature</ReleaseAuthorizedMethod>")
	assert.Contains(t, out, "<CEEBACT>123456</CEEBACT>")

	assert.Regexp(t, `^transcript_request_\d+_[0-9a-f]{8}$`, doc.FileName)
	assert.Regexp(t, `^[0-9a-f]{32}$`, doc.DocumentID)
	assert.Equal(t, doc.FileName+"_request.xml", doc.RemoteFileName())
}

func TestRenderXMLOmitsAbsentOptionalFields(t *testing.T) {
	doc, err := newTestGenerator().RenderXML(sampleData())
	require.NoError(t, err)
	out := string(doc.XML)

	for _, absent := range []string{"<MiddleName>", "<PartialSSN>", "<EnrollDate>", "<ExitDate>", "<AcademicAwards>", "<Reported>", "<Phone>", "<Address>"} {
		assert.NotContains(t, out, absent)
	}
	// only the student's email contact remains
	assert.Equal(t, 1, bytes.Count(doc.XML, []byte("<Contacts>")))
}

func TestRenderXMLIncludesOptionalFields(t *testing.T) {
	data := sampleData()
	data.StudentMiddleName = "Q"
	data.StudentPartialSSN = "1234"
	data.SchoolCEEB = "ABC123"
	data.SchoolCity = "Springfield"
	data.SchoolState = "IL"
	data.SchoolPhone = "(555) 123-4567"
	data.DestinationAddress = "1 College Ave"
	data.EnrollDate = "2019-08-20"
	data.ExitDate = "2023-06-01"
	data.GraduationDate = "2023-06-10"
	data.CurrentEnrollment = false

	doc, err := newTestGenerator().RenderXML(data)
	require.NoError(t, err)
	out := string(doc.XML)
	assertWellFormed(t, doc.XML)

	assert.Contains(t, out, "<MiddleName>Q</MiddleName>")
	assert.Contains(t, out, "<PartialSSN>1234</PartialSSN>")
	assert.Contains(t, out, "<City>Springfield</City>")
	assert.Contains(t, out, "<PhoneNumber>(555) 123-4567</PhoneNumber>")
	assert.Contains(t, out, "<AddressLine>1 College Ave</AddressLine>")
	assert.Contains(t, out, "<EnrollDate>20190820</EnrollDate>")
	assert.Contains(t, out, "<ExitDate>20230601</ExitDate>")
	assert.Contains(t, out, "<AcademicAwards>")
	assert.Contains(t, out, "<AcademicAwardDate>20230610</AcademicAwardDate>")
	assert.Contains(t, out, "<CurrentEnrollmentIndicator>false</CurrentEnrollmentIndicator>")
	assert.Equal(t, 3, bytes.Count(doc.XML, []byte("<Contacts>")))
}

func TestRenderXMLKeepsContactsWithoutAddress(t *testing.T) {
	data := sampleData()
	data.SchoolZip = "62704"
	data.SchoolPhone = "555-123-4567"
	data.SchoolEmail = "registrar@central.example"

	doc, err := newTestGenerator().RenderXML(data)
	require.NoError(t, err)
	out := string(doc.XML)
	assertWellFormed(t, doc.XML)

	assert.Contains(t, out, "<PostalCode>62704</PostalCode>")
	assert.Contains(t, out, "<PhoneNumber>555-123-4567</PhoneNumber>")
	assert.Contains(t, out, "<EmailAddress>registrar@central.example</EmailAddress>")
	assert.NotContains(t, out, "<AddressLine>")
	assert.NotContains(t, out, "<City>")
	assert.Equal(t, 2, bytes.Count(doc.XML, []byte("<Contacts>")))
}

func TestRenderXMLEscapesText(t *testing.T) {
	data := sampleData()
	data.StudentFirstName = `O'Brien & <Sons> "Jr"`
	data.SchoolName = "A&M Prep"

	doc, err := newTestGenerator().RenderXML(data)
	require.NoError(t, err)
	out := string(doc.XML)
	assertWellFormed(t, doc.XML)

	assert.Contains(t, out, "<FirstName>O&#39;Brien &amp; &lt;Sons&gt; &#34;Jr&#34;</FirstName>")
	assert.Contains(t, out, "<OrganizationName>A&amp;M Prep</OrganizationName>")
	assert.NotContains(t, out, "<Sons>")
}

func TestRenderXMLTrackingID(t *testing.T) {
	data := sampleData()
	data.RequestTrackingID = "PARTNER-42"

	doc, err := newTestGenerator().RenderXML(data)
	require.NoError(t, err)
	assert.Equal(t, "PARTNER-42", doc.TrackingID)
	assert.Contains(t, string(doc.XML), "<RequestTrackingID>PARTNER-42</RequestTrackingID>")

	doc, err = newTestGenerator().RenderXML(sampleData())
	require.NoError(t, err)
	assert.Regexp(t, `^REQ-[0-9A-F]{12}$`, doc.TrackingID)
}

var volatileElements = regexp.MustCompile(
	`<(DocumentID|CreatedDateTime|RequestTrackingID|ns2:FileName)>[^<]*</`)

func TestRenderXMLDiffersOnlyInIdentifiersAndTimestamps(t *testing.T) {
	tick := renderTime
	gen := NewGenerator(WithClock(func() time.Time {
		tick = tick.Add(1500 * time.Millisecond)
		return tick
	}))

	first, err := gen.RenderXML(sampleData())
	require.NoError(t, err)
	second, err := gen.RenderXML(sampleData())
	require.NoError(t, err)

	assert.NotEqual(t, first.DocumentID, second.DocumentID)
	assert.NotEqual(t, first.FileName, second.FileName)
	assert.Equal(t,
		volatileElements.ReplaceAllString(string(first.XML), "<$1>x</"),
		volatileElements.ReplaceAllString(string(second.XML), "<$1>x</"))
}

func TestCompactDate(t *testing.T) {
	assert.Equal(t, "20230610", compactDate("2023-06-10"))
	assert.Equal(t, "", compactDate(""))
}
