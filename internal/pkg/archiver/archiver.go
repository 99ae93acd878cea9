package archiver

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FileExt                = ".jsonl.gz"
	ArchiverChanBufferSize = 64
)

// Archiver streams items received on a channel into a gzip-compressed JSON Lines file.
type Archiver struct {
	// Path is the destination file. Its parent directories are created on Prepare.
	Path string

	// Name tags log lines, e.g. "meta".
	Name string

	writerCh chan interface{}
	written  int
	logger   *zerolog.Logger
}

func (a *Archiver) initLogger() {
	if a.logger == nil {
		logger := log.With().
			Str("module", "archiver").
			Str("archive", a.Name).
			Logger()
		a.logger = &logger
	}
}

func (a *Archiver) Prepare(ctx context.Context) error {
	a.initLogger()

	a.logger.Info().Str("path", a.Path).Msg("preparing archiver")
	a.writerCh = make(chan interface{}, ArchiverChanBufferSize)
	a.written = 0

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.ensureFileBaseDir(a.Path); err != nil {
		return errors.Wrap(err, "failed to ensureFileBaseDir")
	}
	a.logger.Trace().Msg("ensured file base dir")

	return nil
}

func (a *Archiver) ensureFileBaseDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}
	return nil
}

// Caller MUST close the channel when it's done
func (a *Archiver) WriterCh() chan interface{} {
	return a.writerCh
}

// Written returns the number of items encoded by the last Collect.
func (a *Archiver) Written() int {
	return a.written
}

// Caller MUST use WriterCh() to get the channel
// and ensure necessary data is sent to the channel
// before calling this function. Moreover, caller should
// ensure that Collect runs only once and runs on a different
// goroutine from the one that sends data to the channel to avoid
// deadlocks.
func (a *Archiver) Collect(ctx context.Context) error {
	if err := a.archiveToLocalFile(ctx); err != nil {
		return errors.Wrap(err, "failed to archiveToLocalFile")
	}
	a.logger.Debug().Int("items", a.written).Str("path", a.Path).Msg("archived to local file")
	return nil
}

func (a *Archiver) archiveToLocalFile(ctx context.Context) (err error) {
	file, err := os.OpenFile(a.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "failed to close file")
		}
	}()
	a.logger.Trace().Str("path", a.Path).Msg("opened file, ready to write gzip stream")

	gzipWriter := gzip.NewWriter(file)
	defer func() {
		if cerr := gzipWriter.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "failed to close gzip stream")
		}
	}()

	jsonEncoder := json.NewEncoder(gzipWriter)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-a.writerCh:
			if !ok {
				a.logger.Trace().Msg("writerCh closed, exiting archiveToLocalFile (closing gzipWriter and file)")
				return nil
			}
			if err := jsonEncoder.Encode(item); err != nil {
				return errors.Wrap(err, "failed to encode item")
			}
			a.written++
		}
	}
}
