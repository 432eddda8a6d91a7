package export

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
)

// Archiver keeps a copy of every generated workbook.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) error
}

// S3Sink uploads workbooks to an S3 bucket under a key prefix.
type S3Sink struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
}

func NewS3Sink(region, bucket, prefix string) (*S3Sink, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, errors.Wrap(err, "export.s3.session")
	}
	return newS3Sink(s3manager.NewUploader(sess), bucket, prefix), nil
}

func newS3Sink(uploader s3manageriface.UploaderAPI, bucket, prefix string) *S3Sink {
	return &S3Sink{uploader: uploader, bucket: bucket, prefix: prefix}
}

func (s *S3Sink) Archive(ctx context.Context, name string, data []byte) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType),
	})
	return errors.Wrapf(err, "export.s3.upload %s", name)
}
