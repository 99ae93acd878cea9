package archiver

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	UploadAttempts = 3
	UploadDelay    = 500 * time.Millisecond
)

var ErrFileAlreadyExists = errors.New("file already exists")

// S3API is the subset of *s3.Client the uploader needs.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Uploader struct {
	S3Client S3API
	S3Bucket string

	// S3Prefix is for the files in the bucket with no leading slash but optionally (typically) with trailing slash
	// e.g. "datasets/" or simply "" (empty string)
	S3Prefix string
}

// Upload puts a local file at S3Prefix+key. Existing objects are never overwritten;
// transient failures are retried.
func (u *Uploader) Upload(ctx context.Context, localPath, key string) error {
	key = u.S3Prefix + key
	logger := log.With().Str("module", "archiver").Str("bucket", u.S3Bucket).Str("key", key).Logger()

	if err := u.assertS3FileNonExistence(ctx, key); err != nil {
		return errors.Wrap(err, "failed to assertFileNonExistence")
	}
	logger.Trace().Msg("asserted S3 file non-existence")

	err := retry.Do(
		func() error {
			return u.put(ctx, localPath, key)
		},
		retry.Context(ctx),
		retry.Attempts(UploadAttempts),
		retry.Delay(UploadDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn().Err(err).Uint("attempt", n+1).Msg("retrying upload")
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to uploadToS3")
	}
	logger.Info().Str("evt.name", "archiver.upload").Msg("uploaded to S3")
	return nil
}

func (u *Uploader) put(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return retry.Unrecoverable(errors.Wrap(err, "failed to open file"))
	}
	defer file.Close()

	if _, err := u.S3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(u.S3Bucket),
		Key:               aws.String(key),
		Body:              file,
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	}); err != nil {
		return errors.Wrap(err, "failed to invoke PutObject")
	}
	return nil
}

func (u *Uploader) assertS3FileNonExistence(ctx context.Context, key string) error {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(u.S3Bucket),
		Key:    aws.String(key),
	}
	object, err := u.S3Client.HeadObject(ctx, input)
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) {
			if ae.ErrorCode() == "NotFound" {
				return nil
			}
		}
		return errors.Wrap(err, "failed to invoke HeadObject")
	}
	return errors.Wrap(ErrFileAlreadyExists, fmt.Sprintf("file \"%s\" already exists in s3 with LastModified \"%s\"", key, aws.ToTime(object.LastModified)))
}
