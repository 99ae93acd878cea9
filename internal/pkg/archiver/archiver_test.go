package archiver

import (
	"bufio"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

func TestArchiverWritesJSONLines(t *testing.T) {
	ctx := context.Background()
	a := &Archiver{Path: filepath.Join(t.TempDir(), "nested", "meta"+FileExt), Name: "meta"}
	require.NoError(t, a.Prepare(ctx))

	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return a.Collect(ectx)
	})
	ch := a.WriterCh()
	for i := 0; i < 100; i++ {
		ch <- map[string]int{"i": i}
	}
	close(ch)
	require.NoError(t, eg.Wait())
	assert.Equal(t, 100, a.Written())

	f, err := os.Open(a.Path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	scanner := bufio.NewScanner(gz)
	lines := 0
	for scanner.Scan() {
		assert.Equal(t, int64(lines), gjson.GetBytes(scanner.Bytes(), "i").Int())
		lines++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, 100, lines)
}

type fakeS3 struct {
	existing map[string]bool
	failures int
	puts     map[string][]byte
	calls    int
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.existing[aws.ToString(in.Key)] {
		return &s3.HeadObjectOutput{LastModified: aws.Time(time.Unix(0, 0))}, nil
	}
	return nil, &smithy.GenericAPIError{Code: "NotFound"}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts[aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func tempFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "dataset.npz")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestUploaderRetriesTransientFailures(t *testing.T) {
	fake := &fakeS3{failures: 1, puts: map[string][]byte{}}
	u := &Uploader{S3Client: fake, S3Bucket: "bucket", S3Prefix: "datasets/"}

	require.NoError(t, u.Upload(context.Background(), tempFile(t, "payload"), "b1/dataset.npz"))
	assert.Equal(t, 2, fake.calls)
	assert.Equal(t, []byte("payload"), fake.puts["datasets/b1/dataset.npz"])
}

func TestUploaderRefusesOverwrite(t *testing.T) {
	fake := &fakeS3{existing: map[string]bool{"b1/dataset.npz": true}, puts: map[string][]byte{}}
	u := &Uploader{S3Client: fake, S3Bucket: "bucket"}

	err := u.Upload(context.Background(), tempFile(t, "payload"), "b1/dataset.npz")
	assert.ErrorIs(t, err, ErrFileAlreadyExists)
	assert.Zero(t, fake.calls)
}
