package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"modelcache/internal/blob"
)

// Defaults for chunked downloads.
const (
	DefaultChunkSize   = 5 * 1024 * 1024
	DefaultMaxParallel = 10
	defaultMaxRetries  = 3
)

// Options tunes one download.
type Options struct {
	ChunkSize   int64
	MaxParallel int
	// OnProgress is called with bytes received so far and the total size.
	// Total is -1 when the server does not report a length. Calls are serialized.
	OnProgress func(done, total int64)
}

// DownloaderConfig configures a Downloader.
type DownloaderConfig struct {
	Client *http.Client
	Logger zerolog.Logger
	// MaxRetries bounds retries per chunk; zero means the default.
	MaxRetries uint64
	// RetryInterval is the first backoff interval; zero means the backoff default.
	RetryInterval time.Duration
}

// Downloader fetches a URL in parallel ranged requests and assembles the
// full payload in memory.
type Downloader struct {
	client     *http.Client
	log        zerolog.Logger
	maxRetries uint64
	interval   time.Duration
}

// NewDownloader returns a Downloader.
func NewDownloader(cfg DownloaderConfig) *Downloader {
	d := &Downloader{client: cfg.Client, log: cfg.Logger, maxRetries: cfg.MaxRetries, interval: cfg.RetryInterval}
	if d.client == nil {
		d.client = http.DefaultClient
	}
	if d.maxRetries == 0 {
		d.maxRetries = defaultMaxRetries
	}
	return d
}

// statusError reports an unexpected HTTP status.
type statusError struct {
	url  string
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.url, e.code)
}

// Fetch downloads url. Cancelling ctx aborts every in-flight request and
// makes Fetch return an error for which IsCanceled reports true.
func (d *Downloader) Fetch(ctx context.Context, url string, opts Options) (b *blob.Blob, err error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	start := time.Now()
	defer func() {
		switch {
		case err == nil:
			downloadsTotal.WithLabelValues("ok").Inc()
			d.log.Info().Str("url", url).Int64("bytes", b.Size()).Dur("dur", time.Since(start)).Msg("model downloaded")
		case IsCanceled(err):
			downloadsTotal.WithLabelValues("canceled").Inc()
			d.log.Info().Str("url", url).Msg("download canceled")
		default:
			downloadsTotal.WithLabelValues("error").Inc()
		}
	}()

	total, ranged, err := d.probe(ctx, url)
	if err != nil {
		return nil, d.classify(ctx, err)
	}
	pr := &progress{total: total, fn: opts.OnProgress}
	if !ranged || total <= 0 {
		data, err := d.fetchWhole(ctx, url, pr)
		if err != nil {
			return nil, d.classify(ctx, err)
		}
		return blob.FromBytes(data), nil
	}

	buf := make([]byte, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxParallel)
	for off := int64(0); off < total; off += opts.ChunkSize {
		end := off + opts.ChunkSize
		if end > total {
			end = total
		}
		off := off
		g.Go(func() error {
			return d.fetchRange(gctx, url, buf[off:end], off, pr)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, d.classify(ctx, err)
	}
	return blob.FromBytes(buf), nil
}

// classify turns failures caused by cancellation into ctx.Err().
func (d *Downloader) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// probe learns the size of the resource and whether ranges are supported.
func (d *Downloader) probe(ctx context.Context, url string) (int64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, false, err
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusMethodNotAllowed {
		return -1, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, false, statusError{url: url, code: resp.StatusCode}
	}
	return resp.ContentLength, resp.Header.Get("Accept-Ranges") == "bytes", nil
}

func (d *Downloader) fetchWhole(ctx context.Context, url string, pr *progress) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError{url: url, code: resp.StatusCode}
	}
	if pr.total <= 0 {
		pr.total = resp.ContentLength
	}
	return io.ReadAll(&countingReader{r: resp.Body, pr: pr})
}

func (d *Downloader) fetchRange(ctx context.Context, url string, dst []byte, off int64, pr *progress) error {
	bo := backoff.NewExponentialBackOff()
	if d.interval > 0 {
		bo.InitialInterval = d.interval
	}
	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			downloadChunkRetries.Inc()
		}
		err := d.getRange(ctx, url, dst, off)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		var se statusError
		if errors.As(err, &se) && se.code >= 400 && se.code < 500 {
			return backoff.Permanent(err)
		}
		d.log.Debug().Err(err).Int64("offset", off).Int("attempt", attempt).Msg("chunk request failed")
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, d.maxRetries), ctx)); err != nil {
		return err
	}
	pr.add(int64(len(dst)))
	return nil
}

func (d *Downloader) getRange(ctx context.Context, url string, dst []byte, off int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Range", "bytes="+strconv.FormatInt(off, 10)+"-"+strconv.FormatInt(off+int64(len(dst))-1, 10))
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		return statusError{url: url, code: resp.StatusCode}
	}
	if _, err := io.ReadFull(resp.Body, dst); err != nil {
		return fmt.Errorf("read range at %d: %w", off, err)
	}
	return nil
}

// progress serializes progress callbacks.
type progress struct {
	mu    sync.Mutex
	done  int64
	total int64
	fn    func(done, total int64)
}

func (p *progress) add(n int64) {
	downloadBytesTotal.Add(float64(n))
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done += n
	if p.fn != nil {
		p.fn(p.done, p.total)
	}
}

type countingReader struct {
	r  io.Reader
	pr *progress
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	if n > 0 {
		c.pr.add(int64(n))
	}
	return n, err
}
