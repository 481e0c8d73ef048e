package storagesvc

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core/meeting"
)

// S3Presigner is the subset of the S3 presign client used by S3Recordings.
type S3Presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Recordings issues presigned PUT URLs for recordings stored in an S3 bucket.
type S3Recordings struct {
	presigner S3Presigner
	bucket    string
	expiry    time.Duration
}

var _ meeting.RecordingStorage = (*S3Recordings)(nil)

func NewS3Recordings(cfg aws.Config, bucket string, expiry time.Duration) *S3Recordings {
	return NewS3RecordingsWithPresigner(s3.NewPresignClient(s3.NewFromConfig(cfg)), bucket, expiry)
}

func NewS3RecordingsWithPresigner(presigner S3Presigner, bucket string, expiry time.Duration) *S3Recordings {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &S3Recordings{presigner: presigner, bucket: bucket, expiry: expiry}
}

func (s *S3Recordings) PresignUpload(ctx context.Context, key, contentType string) (meeting.PresignedUpload, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return meeting.PresignedUpload{}, errors.Wrap(err, "s3: presigning put object")
	}
	return meeting.PresignedUpload{
		URL:       req.URL,
		Key:       key,
		ExpiresIn: int(s.expiry.Seconds()),
	}, nil
}
