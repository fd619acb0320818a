package storage

import (
	"context"
	"io"
)

// Storage archives request artifacts and reports. Download returns
// errors.ErrObjectNotFound for unknown keys.
type Storage interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, key string, data io.ReadSeeker, contentType string) error
}

func ReceiptKey(requestID string) string {
	return "receipts/" + requestID + ".pdf"
}

func RequestXMLKey(requestID string) string {
	return "requests/" + requestID + ".xml"
}

func ReportKey(day string) string {
	return "reports/transcript-requests-" + day + ".xlsx"
}
