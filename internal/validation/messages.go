package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var labels = map[string]string{
	"studentFirstName":    "First name",
	"studentLastName":     "Last name",
	"studentMiddleName":   "Middle name",
	"studentEmail":        "Email",
	"studentDob":          "Date of birth",
	"studentPartialSsn":   "SSN",
	"schoolName":          "School name",
	"schoolCeeb":          "CEEB code",
	"schoolAddress":       "Address",
	"schoolCity":          "City",
	"schoolState":         "State",
	"schoolZip":           "ZIP code",
	"schoolPhone":         "Phone",
	"schoolEmail":         "School email",
	"enrollDate":          "Enroll date",
	"exitDate":            "Exit date",
	"graduationDate":      "Graduation date",
	"destinationSchool":   "Destination school",
	"destinationCeeb":     "Destination CEEB code",
	"destinationAddress":  "Address",
	"destinationCity":     "City",
	"destinationState":    "State",
	"destinationZip":      "ZIP code",
	"documentType":        "Document type",
	"requestTrackingId":   "Tracking ID",
	"signatureDate":       "Signature date",
	"callbackUrl":         "Callback URL",
	"ferpaDisclosureRead": "FERPA disclosure",
	"consentGiven":        "Consent",
	"certifyInformation":  "Certification",
	"mfcLiabilityAgreed":  "Liability agreement",
}

var acceptedMessages = map[string]string{
	"ferpaDisclosureRead": "You must read the FERPA disclosure",
	"consentGiven":        "You must give consent to proceed",
	"certifyInformation":  "You must certify the information is accurate",
	"mfcLiabilityAgreed":  "You must agree to the liability terms",
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	label, ok := labels[field]
	if !ok {
		label = field
	}

	switch fe.Tag() {
	case "required":
		if msg, ok := acceptedMessages[field]; ok {
			return msg
		}
		if field == "destinationCeeb" {
			return "Destination CEEB code is required"
		}
		return label + " is required"
	case "accepted":
		if msg, ok := acceptedMessages[field]; ok {
			return msg
		}
		return label + " must be accepted"
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", label, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", label, fe.Param())
	case "email":
		return "Valid email is required"
	case "isodate":
		return label + " must be in YYYY-MM-DD format"
	case "studentage":
		return fmt.Sprintf("Student must be between %d and %d years old", MinStudentAge, MaxStudentAge)
	case "ssn4":
		return "SSN must be exactly 4 digits"
	case "ceeb":
		return "CEEB code must be 6 alphanumeric characters"
	case "zipcode":
		return "ZIP code must be in format 12345 or 12345-6789"
	case "usphone":
		return "Phone must be in format (555) 123-4567"
	case "doctype":
		return "Document type is not supported"
	case "url":
		return label + " must be a valid URL"
	default:
		return label + " is invalid"
	}
}
