package acquire

import (
	"context"
	"sync"

	"modelcache/internal/blob"
)

// Progress is the state of the download indicator.
type Progress struct {
	Active   bool
	Done     int64
	Total    int64
	Fraction float64
}

// DownloadController runs one download at a time for a fixed URL and owns
// the cancellation signal of the running attempt.
type DownloadController struct {
	dl   *Downloader
	url  string
	opts Options

	mu     sync.Mutex
	cancel context.CancelFunc
	prog   Progress
}

// NewDownloadController returns a controller that downloads url with opts.
func NewDownloadController(dl *Downloader, url string, opts Options) *DownloadController {
	return &DownloadController{dl: dl, url: url, opts: opts}
}

// URL returns the download source.
func (c *DownloadController) URL() string { return c.url }

// Start downloads the model. A fresh cancellation signal is created for each
// attempt; Cancel aborts it. Start fails with ErrBusy while another attempt runs.
func (c *DownloadController) Start(ctx context.Context) (*blob.Blob, error) {
	c.mu.Lock()
	if c.prog.Active {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.prog = Progress{Active: true}
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		c.cancel = nil
		c.prog.Active = false
		c.mu.Unlock()
	}()

	opts := c.opts
	user := opts.OnProgress
	opts.OnProgress = func(done, total int64) {
		c.mu.Lock()
		c.prog.Done = done
		c.prog.Total = total
		if total > 0 {
			c.prog.Fraction = float64(done) / float64(total)
		}
		c.mu.Unlock()
		if user != nil {
			user(done, total)
		}
	}
	return c.dl.Fetch(ctx, c.url, opts)
}

// Cancel aborts the running attempt and reports whether one was running.
func (c *DownloadController) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// Progress returns the current indicator state.
func (c *DownloadController) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prog
}
