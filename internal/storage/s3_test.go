package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	apperrors "transcript-request-service/pkg/errors"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Key)] = data
	f.types[aws.StringValue(in.Key)] = aws.StringValue(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3RoundTrip(t *testing.T) {
	fake := newFakeS3()
	store := NewS3StorageWithClient(fake, "transcripts")

	key := ReceiptKey("req-1")
	require.NoError(t, store.Upload(context.Background(), key, bytes.NewReader([]byte("%PDF")), "application/pdf"))
	assert.Equal(t, "application/pdf", fake.types["receipts/req-1.pdf"])

	rc, err := store.Download(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), got)
}

func TestS3DownloadMissingKey(t *testing.T) {
	store := NewS3StorageWithClient(newFakeS3(), "transcripts")

	_, err := store.Download(context.Background(), "receipts/nope.pdf")
	assert.ErrorIs(t, err, apperrors.ErrObjectNotFound)
}

func TestNoopStorage(t *testing.T) {
	store := NewNoopStorage()
	assert.NoError(t, store.Upload(context.Background(), "k", bytes.NewReader(nil), ""))

	_, err := store.Download(context.Background(), "k")
	assert.ErrorIs(t, err, apperrors.ErrObjectNotFound)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "requests/abc.xml", RequestXMLKey("abc"))
	assert.Equal(t, "reports/transcript-requests-20261018.xlsx", ReportKey("20261018"))
}
