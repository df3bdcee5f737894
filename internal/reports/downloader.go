package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"

	"github.com/asad/sasfetch/internal/apperr"
	"github.com/asad/sasfetch/internal/logging"
)

// BlobSource opens a blob's content for reading.
type BlobSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// FileSink persists a blob body under its name and returns the local path.
type FileSink interface {
	Write(ctx context.Context, name string, r io.Reader) (string, int64, error)
}

// Downloader fetches records one at a time and writes them to a sink.
type Downloader struct {
	source BlobSource
	sink   FileSink
	logger logging.Logger
}

// NewDownloader creates a downloader.
func NewDownloader(source BlobSource, sink FileSink, logger logging.Logger) *Downloader {
	return &Downloader{
		source: source,
		sink:   sink,
		logger: logger,
	}
}

// Download transfers every record sequentially. A failed blob does not stop
// the batch; all failures are returned together once the batch is done.
// Cancelling ctx stops the batch before the next blob, and the error then
// reports how many blobs were skipped. onResult, when non-nil, is called
// after each blob.
func (d *Downloader) Download(ctx context.Context, records []BlobRecord, onResult func(DownloadResult)) ([]DownloadResult, error) {
	results := make([]DownloadResult, 0, len(records))
	var errs, interrupted error

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			skipped := len(records) - len(results)
			interrupted = apperr.Wrap(apperr.KindNetwork, "download interrupted",
				fmt.Errorf("%d of %d blob(s) skipped: %w", skipped, len(records), err))
			d.logger.Warn("download interrupted", logging.Int("skipped", skipped))
			break
		}

		res := d.downloadOne(ctx, rec)
		results = append(results, res)
		if res.Err != nil {
			errs = multierr.Append(errs, res.Err)
		}
		if onResult != nil {
			onResult(res)
		}
	}

	if errs != nil {
		failed := len(multierr.Errors(errs))
		err := fmt.Errorf("%d of %d download(s) failed: %w", failed, len(records), errs)
		return results, multierr.Append(interrupted, err)
	}
	return results, interrupted
}

func (d *Downloader) downloadOne(ctx context.Context, rec BlobRecord) DownloadResult {
	start := time.Now()
	res := DownloadResult{Record: rec}

	body, err := d.source.Open(ctx, rec.Name)
	if err != nil {
		d.logger.Warn("failed to open blob",
			logging.String("blob", rec.Name),
			logging.ErrorField(err),
		)
		res.Err = fmt.Errorf("%s: %w", rec.Name, err)
		return res
	}
	defer body.Close()

	path, n, err := d.sink.Write(ctx, rec.Name, body)
	if err != nil {
		d.logger.Warn("failed to write blob",
			logging.String("blob", rec.Name),
			logging.ErrorField(err),
		)
		res.Err = fmt.Errorf("%s: %w", rec.Name, err)
		return res
	}

	d.logger.Info("blob downloaded",
		logging.String("blob", rec.Name),
		logging.String("path", path),
		logging.Int64("size", n),
		logging.Duration("elapsed", time.Since(start)),
	)
	res.Path = path
	res.Bytes = n
	return res
}
