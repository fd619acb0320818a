package document

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"transcript-request-service/internal/model"
)

const (
	nsXSI           = "http://www.w3.org/2001/XMLSchema-instance"
	nsRequest       = "urn:org:pesc:message:TranscriptRequest:v1.2.0"
	nsExtensions    = "urn:org:pesc:message:ParchmentExtensions:v1.0.0"
	exchangeType    = "PESC XML Document Request and PDF"
	pescDateTime    = "2006-01-02T15:04:05"
	pescCompactDate = "20060102"
	fileNamePrefix  = "transcript_request_"
	requestFileExt  = "_request.xml"
	documentFileExt = "_document.pdf"
)

var schemaLocation = strings.Join([]string{
	nsRequest,
	"http://www.pesc.org/library/docs/standards/College%20Transcript/TranscriptRequest_v1.2.0.xsd",
	"urn:org:pesc:core:CoreMain:v1.12.0",
	"http://www.pesc.org/library/docs/standards/Core%20Main/CoreMain_v1.12.0.xsd",
	"urn:org:pesc:sector:AcademicRecord:v1.7.0",
	"http://www.pesc.org/library/docs/standards/High%20School%20Transcript/AcademicRecord_v1.7.0.xsd",
	nsExtensions,
	"ParchmentExtensions_v1.0.0.xsd",
}, " ")

// XMLDocument is one rendering of a request. Every call produces a fresh
// DocumentID and FileName.
type XMLDocument struct {
	XML        []byte
	DocumentID string
	FileName   string
	TrackingID string
	CreatedAt  time.Time
}

// RemoteFileName is the name the delivery network expects for the XML.
func (d *XMLDocument) RemoteFileName() string {
	return d.FileName + requestFileExt
}

type transcriptRequest struct {
	XMLName          xml.Name         `xml:"ns1:TranscriptRequest"`
	XSI              string           `xml:"xmlns:xsi,attr"`
	NS1              string           `xml:"xmlns:ns1,attr"`
	NS2              string           `xml:"xmlns:ns2,attr"`
	SchemaLocation   string           `xml:"xsi:schemaLocation,attr"`
	TransmissionData transmissionData `xml:"ns1:TransmissionData"`
	Request          request          `xml:"ns1:Request"`
}

type transmissionData struct {
	DocumentID            string                `xml:"DocumentID"`
	CreatedDateTime       string                `xml:"CreatedDateTime"`
	DocumentTypeCode      string                `xml:"DocumentTypeCode"`
	TransmissionType      string                `xml:"TransmissionType"`
	Source                party                 `xml:"Source"`
	Destination           party                 `xml:"Destination"`
	RequestTrackingID     string                `xml:"RequestTrackingID"`
	UserDefinedExtensions userDefinedExtensions `xml:"UserDefinedExtensions"`
}

type party struct {
	Organization organization `xml:"Organization"`
}

type organization struct {
	CEEBACT          string    `xml:"CEEBACT,omitempty"`
	OrganizationName string    `xml:"OrganizationName"`
	Contacts         *contacts `xml:"Contacts,omitempty"`
}

type contacts struct {
	Address *address `xml:"Address,omitempty"`
	Phone   *phone   `xml:"Phone,omitempty"`
	Email   *email   `xml:"Email,omitempty"`
}

type address struct {
	AddressLine       string `xml:"AddressLine,omitempty"`
	City              string `xml:"City,omitempty"`
	StateProvinceCode string `xml:"StateProvinceCode,omitempty"`
	PostalCode        string `xml:"PostalCode,omitempty"`
}

type phone struct {
	PhoneNumber string `xml:"PhoneNumber"`
}

type email struct {
	EmailAddress string `xml:"EmailAddress"`
}

type userDefinedExtensions struct {
	DocumentInfo documentInfo `xml:"ns2:ParchmentDocumentInfo"`
}

type documentInfo struct {
	FileName     string `xml:"ns2:FileName"`
	DocumentType string `xml:"ns2:DocumentType"`
	ExchangeType string `xml:"ns2:ExchangeType"`
}

type request struct {
	CreatedDateTime  string           `xml:"CreatedDateTime"`
	RequestedStudent requestedStudent `xml:"RequestedStudent"`
}

type requestedStudent struct {
	Person                     person     `xml:"Person"`
	Attendance                 attendance `xml:"Attendance"`
	ReleaseAuthorizedIndicator bool       `xml:"ReleaseAuthorizedIndicator"`
	ReleaseAuthorizedMethod    string     `xml:"ReleaseAuthorizedMethod"`
}

type person struct {
	PartialSSN string       `xml:"PartialSSN,omitempty"`
	Birth      birth        `xml:"Birth"`
	Name       personName   `xml:"Name"`
	Contacts   emailContact `xml:"Contacts"`
}

type birth struct {
	BirthDate string `xml:"BirthDate"`
}

type personName struct {
	FirstName  string `xml:"FirstName"`
	MiddleName string `xml:"MiddleName,omitempty"`
	LastName   string `xml:"LastName"`
}

type emailContact struct {
	Email email `xml:"Email"`
}

type attendance struct {
	School                     school          `xml:"School"`
	EnrollDate                 string          `xml:"EnrollDate,omitempty"`
	ExitDate                   string          `xml:"ExitDate,omitempty"`
	CurrentEnrollmentIndicator bool            `xml:"CurrentEnrollmentIndicator"`
	AcademicAwards             *academicAwards `xml:"AcademicAwards,omitempty"`
}

type academicAwards struct {
	Reported reportedAward `xml:"Reported"`
}

type reportedAward struct {
	AcademicAwardDate string `xml:"AcademicAwardDate"`
}

type school struct {
	OrganizationName string `xml:"OrganizationName"`
	CEEBACT          string `xml:"CEEBACT,omitempty"`
}

// RenderXML builds the PESC TranscriptRequest document for data.
func (g *Generator) RenderXML(data *model.TranscriptRequestData) (*XMLDocument, error) {
	now := g.now().UTC()
	documentID := strings.ReplaceAll(g.newID(), "-", "")
	fileName := fmt.Sprintf("%s%d_%s", fileNamePrefix, now.UnixMilli(), documentID[:8])

	trackingID := data.RequestTrackingID
	if trackingID == "" {
		trackingID = "REQ-" + strings.ToUpper(documentID[:12])
	}
	created := now.Format(pescDateTime)

	doc := transcriptRequest{
		XSI:            nsXSI,
		NS1:            nsRequest,
		NS2:            nsExtensions,
		SchemaLocation: schemaLocation,
		TransmissionData: transmissionData{
			DocumentID:       documentID,
			CreatedDateTime:  created,
			DocumentTypeCode: "Request",
			TransmissionType: "Original",
			Source: party{Organization: organization{
				CEEBACT:          data.SchoolCEEB,
				OrganizationName: data.SchoolName,
				Contacts: orgContacts(
					data.SchoolAddress, data.SchoolCity, data.SchoolState, data.SchoolZip,
					data.SchoolPhone, data.SchoolEmail,
				),
			}},
			Destination: party{Organization: organization{
				CEEBACT:          data.DestinationCEEB,
				OrganizationName: data.DestinationSchool,
				Contacts: orgContacts(
					data.DestinationAddress, data.DestinationCity, data.DestinationState, data.DestinationZip,
					"", "",
				),
			}},
			RequestTrackingID: trackingID,
			UserDefinedExtensions: userDefinedExtensions{DocumentInfo: documentInfo{
				FileName:     fileName + documentFileExt,
				DocumentType: data.DocumentType,
				ExchangeType: exchangeType,
			}},
		},
		Request: request{
			CreatedDateTime: created,
			RequestedStudent: requestedStudent{
				Person: person{
					PartialSSN: data.StudentPartialSSN,
					Birth:      birth{BirthDate: data.StudentDOB},
					Name: personName{
						FirstName:  data.StudentFirstName,
						MiddleName: data.StudentMiddleName,
						LastName:   data.StudentLastName,
					},
					Contacts: emailContact{Email: email{EmailAddress: data.StudentEmail}},
				},
				Attendance: attendance{
					School: school{
						OrganizationName: data.SchoolName,
						CEEBACT:          data.SchoolCEEB,
					},
					EnrollDate:                 compactDate(data.EnrollDate),
					ExitDate:                   compactDate(data.ExitDate),
					CurrentEnrollmentIndicator: data.CurrentEnrollment,
					AcademicAwards:             awards(data.GraduationDate),
				},
				ReleaseAuthorizedIndicator: true,
				ReleaseAuthorizedMethod:    model.ReleaseMethodElectronicSign,
			},
		},
	}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal transcript request xml: %w", err)
	}

	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')

	return &XMLDocument{
		XML:        out,
		DocumentID: documentID,
		FileName:   fileName,
		TrackingID: trackingID,
		CreatedAt:  now,
	}, nil
}

// orgContacts returns nil when no contact field is set. Each of Address,
// Phone and Email appears only when it has content.
func orgContacts(line, city, state, zip, phoneNumber, emailAddress string) *contacts {
	if line == "" && city == "" && state == "" && zip == "" && phoneNumber == "" && emailAddress == "" {
		return nil
	}

	c := &contacts{}
	if line != "" || city != "" || state != "" || zip != "" {
		c.Address = &address{
			AddressLine:       line,
			City:              city,
			StateProvinceCode: state,
			PostalCode:        zip,
		}
	}
	if phoneNumber != "" {
		c.Phone = &phone{PhoneNumber: phoneNumber}
	}
	if emailAddress != "" {
		c.Email = &email{EmailAddress: emailAddress}
	}
	return c
}

func awards(graduationDate string) *academicAwards {
	if graduationDate == "" {
		return nil
	}
	return &academicAwards{Reported: reportedAward{AcademicAwardDate: compactDate(graduationDate)}}
}

// compactDate turns YYYY-MM-DD into YYYYMMDD; validated input is assumed.
func compactDate(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return strings.ReplaceAll(s, "-", "")
	}
	return t.Format(pescCompactDate)
}
