package validation

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"transcript-request-service/internal/model"
	apperrors "transcript-request-service/pkg/errors"

	"github.com/go-playground/validator/v10"
)

const (
	MinStudentAge = 14
	MaxStudentAge = 100
)

var (
	ceebRegex    = regexp.MustCompile(`^[A-Za-z0-9]{6}$`)
	isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	ssn4Regex    = regexp.MustCompile(`^\d{4}$`)
	zipRegex     = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	phoneRegex   = regexp.MustCompile(`^\(\d{3}\) \d{3}-\d{4}$`)
)

// Validator turns a raw submission body into a normalized request record.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

type Option func(*Validator)

// WithClock fixes the reference time used for the age check and defaults.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

func NewValidator(opts ...Option) *Validator {
	v := &Validator{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(validate, "ceeb", matches(ceebRegex))
	mustRegister(validate, "ssn4", matches(ssn4Regex))
	mustRegister(validate, "zipcode", matches(zipRegex))
	mustRegister(validate, "usphone", matches(phoneRegex))
	mustRegister(validate, "isodate", func(fl validator.FieldLevel) bool {
		_, ok := parseDate(fl.Field().String())
		return ok
	})
	mustRegister(validate, "studentage", func(fl validator.FieldLevel) bool {
		dob, ok := parseDate(fl.Field().String())
		if !ok {
			return false
		}
		age := AgeOn(dob, v.now())
		return age >= MinStudentAge && age <= MaxStudentAge
	})
	mustRegister(validate, "doctype", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, dt := range model.DocumentTypes {
			if value == dt {
				return true
			}
		}
		return false
	})
	mustRegister(validate, "accepted", func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.Bool && fl.Field().Bool()
	})

	v.validate = validate
	return v
}

// Validate decodes and checks body. On failure the error is a
// *apperrors.ValidationErrors naming every offending field.
func (v *Validator) Validate(body []byte) (*model.TranscriptRequestData, error) {
	payload, err := decode(body)
	if err != nil {
		return nil, err
	}

	normalize(payload)

	if err := v.validate.Struct(payload); err != nil {
		var fieldErrs validator.ValidationErrors
		if !stderrors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("validate payload: %w", err)
		}
		verr := apperrors.NewValidationErrors()
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), message(fe))
		}
		return nil, verr
	}

	return v.toData(payload), nil
}

func decode(body []byte) (*model.SubmissionPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		verr := apperrors.NewValidationErrors()
		verr.Add("body", "Request body must be a JSON object")
		return nil, verr
	}

	var payload model.SubmissionPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		verr := apperrors.NewValidationErrors()
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) && typeErr.Field != "" {
			verr.Add(typeErr.Field, fmt.Sprintf("must be a %s", jsonKind(typeErr.Type)))
		} else {
			verr.Add("body", "Request body is not valid JSON")
		}
		return nil, verr
	}
	return &payload, nil
}

func normalize(p *model.SubmissionPayload) {
	fields := []*string{
		&p.StudentFirstName, &p.StudentLastName, &p.StudentMiddleName, &p.StudentEmail,
		&p.StudentDOB, &p.StudentPartialSSN,
		&p.SchoolName, &p.SchoolCEEB, &p.SchoolAddress, &p.SchoolCity, &p.SchoolState,
		&p.SchoolZip, &p.SchoolPhone, &p.SchoolEmail,
		&p.EnrollDate, &p.ExitDate, &p.GraduationDate,
		&p.DestinationSchool, &p.DestinationCEEB, &p.DestinationAddress, &p.DestinationCity,
		&p.DestinationState, &p.DestinationZip,
		&p.DocumentType, &p.RequestTrackingID, &p.StudentSignature, &p.SignatureDate,
		&p.CallbackURL,
	}
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}

	// Partner integrations send ferpaDisclosureShown.
	if p.FERPADisclosureRead == nil {
		p.FERPADisclosureRead = p.FERPADisclosureShown
	}
}

func (v *Validator) toData(p *model.SubmissionPayload) *model.TranscriptRequestData {
	now := v.now()

	currentEnrollment := true
	if p.CurrentEnrollment != nil {
		currentEnrollment = *p.CurrentEnrollment
	}

	documentType := p.DocumentType
	if documentType == "" {
		documentType = model.DefaultDocumentType
	}

	signatureDate := p.SignatureDate
	if signatureDate == "" && p.StudentSignature != "" {
		signatureDate = now.Format(model.DateLayout)
	}

	return &model.TranscriptRequestData{
		StudentFirstName:    p.StudentFirstName,
		StudentLastName:     p.StudentLastName,
		StudentMiddleName:   p.StudentMiddleName,
		StudentEmail:        p.StudentEmail,
		StudentDOB:          p.StudentDOB,
		StudentPartialSSN:   p.StudentPartialSSN,
		SchoolName:          p.SchoolName,
		SchoolCEEB:          p.SchoolCEEB,
		SchoolAddress:       p.SchoolAddress,
		SchoolCity:          p.SchoolCity,
		SchoolState:         strings.ToUpper(p.SchoolState),
		SchoolZip:           p.SchoolZip,
		SchoolPhone:         p.SchoolPhone,
		SchoolEmail:         p.SchoolEmail,
		EnrollDate:          p.EnrollDate,
		ExitDate:            p.ExitDate,
		CurrentEnrollment:   currentEnrollment,
		GraduationDate:      p.GraduationDate,
		DestinationSchool:   p.DestinationSchool,
		DestinationCEEB:     p.DestinationCEEB,
		DestinationAddress:  p.DestinationAddress,
		DestinationCity:     p.DestinationCity,
		DestinationState:    strings.ToUpper(p.DestinationState),
		DestinationZip:      p.DestinationZip,
		DocumentType:        documentType,
		RequestTrackingID:   p.RequestTrackingID,
		FERPADisclosureRead: *p.FERPADisclosureRead,
		ConsentGiven:        *p.ConsentGiven,
		LiabilityAgreed:     p.LiabilityAgreed,
		CertifyInformation:  p.CertifyInformation,
		StudentSignature:    p.StudentSignature,
		SignatureDate:       signatureDate,
		CallbackURL:         p.CallbackURL,
		SubmittedAt:         now,
	}
}

// AgeOn returns completed years between dob and at.
func AgeOn(dob, at time.Time) int {
	age := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		age--
	}
	return age
}

func parseDate(s string) (time.Time, bool) {
	if !isoDateRegex.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "valid value"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	default:
		return t.Kind().String()
	}
}
