package service

import (
	"context"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"exusiai.dev/seqwindow/internal/app/appconfig"
	"exusiai.dev/seqwindow/internal/model"
	"exusiai.dev/seqwindow/internal/pkg/archiver"
	builderrors "exusiai.dev/seqwindow/internal/pkg/errors"
)

const ArchiveNameMeta = "meta"

// metaLine is one line of the metadata sidecar.
type metaLine struct {
	BuildID string `json:"buildId"`
	model.MetaRecord
}

// MarshalJSON prepends buildId to the flattened record.
func (l metaLine) MarshalJSON() ([]byte, error) {
	record, err := json.Marshal(l.MetaRecord)
	if err != nil {
		return nil, err
	}
	id, err := json.Marshal(l.BuildID)
	if err != nil {
		return nil, err
	}
	out := append([]byte(`{"buildId":`), id...)
	if len(record) > 2 {
		out = append(out, ',')
	}
	return append(out, record[1:]...), nil
}

type Archive struct {
	Config *appconfig.Config

	uploader *archiver.Uploader
}

func NewArchive(conf *appconfig.Config, s3Client *s3.Client) *Archive {
	return &Archive{
		Config: conf,
		uploader: &archiver.Uploader{
			S3Client: s3Client,
			S3Bucket: conf.ArchiveS3Bucket,
			S3Prefix: conf.ArchiveS3Prefix,
		},
	}
}

// WriteMeta streams every metadata record of ds into a gzip JSON Lines file.
func (s *Archive) WriteMeta(ctx context.Context, path string, ds *model.Dataset) error {
	a := &archiver.Archiver{Path: path, Name: ArchiveNameMeta}
	if err := a.Prepare(ctx); err != nil {
		return errors.Wrap(err, "failed to prepare meta archiver")
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return a.Collect(ectx)
	})
	eg.Go(func() error {
		ch := a.WriterCh()
		defer close(ch)
		for _, record := range ds.Meta {
			select {
			case ch <- metaLine{BuildID: ds.BuildID, MetaRecord: record}:
			case <-ectx.Done():
				return ectx.Err()
			}
		}
		return nil
	})

	return eg.Wait()
}

// Upload puts every artifact under <prefix><buildID>/<file name>. Existing keys are never overwritten.
func (s *Archive) Upload(ctx context.Context, buildID string, paths ...string) error {
	if s.uploader.S3Bucket == "" {
		return errors.WithStack(builderrors.ErrInvalidConfig.WithMessage("upload requested but SEQWINDOW_ARCHIVE_S3_BUCKET is not set"))
	}
	for _, p := range paths {
		if err := s.uploader.Upload(ctx, p, buildID+"/"+filepath.Base(p)); err != nil {
			return errors.Wrapf(err, "failed to upload %s", p)
		}
	}
	return nil
}
