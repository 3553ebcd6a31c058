// Package respcache implements the intercepting network cache backend. The
// model is kept as a complete HTTP response keyed by a synthetic GET request
// for the stored name, the way a caching proxy would hold it.
package respcache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"modelcache/internal/backend"
	"modelcache/internal/blob"
)

// DefaultCacheName is the named cache the model response lives in.
const DefaultCacheName = "models"

// Config configures the response cache adapter.
type Config struct {
	Store     Store
	CacheName string
	Logger    zerolog.Logger
}

// Cache is the response cache adapter.
type Cache struct {
	store Store
	name  string
	log   zerolog.Logger
}

var _ backend.Adapter = (*Cache)(nil)

// New returns a response cache adapter over cfg.Store.
func New(cfg Config) *Cache {
	name := cfg.CacheName
	if name == "" {
		name = DefaultCacheName
	}
	return &Cache{store: cfg.Store, name: name, log: cfg.Logger}
}

// Name implements backend.Adapter.
func (c *Cache) Name() string { return backend.NameResponse }

// request builds the synthetic request the entry is keyed by.
func (c *Cache) request() *http.Request {
	req, _ := http.NewRequest(http.MethodGet, "http://"+c.name+".cache.local/"+backend.StoredName, nil)
	return req
}

func (c *Cache) key() string {
	req := c.request()
	return c.name + " " + req.Method + " " + req.URL.String()
}

// Store implements backend.Adapter.
func (c *Cache) Store(ctx context.Context, b *blob.Blob) error {
	if c.store == nil {
		return backend.ErrUnavailable(c.Name(), errors.New("no response store configured"))
	}
	etag, err := digest(b)
	if err != nil {
		return fmt.Errorf("digest blob: %w", err)
	}
	rc, err := b.Open()
	if err != nil {
		return fmt.Errorf("open blob: %w", err)
	}
	defer rc.Close()

	resp := &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{},
		Body:          rc,
		ContentLength: b.Size(),
		Request:       c.request(),
	}
	resp.Header.Set("Content-Type", "application/octet-stream")
	resp.Header.Set("ETag", strconv.Quote(etag))

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(resp.Write(pw))
	}()
	err = c.store.Put(ctx, c.key(), pr)
	// Unblock the writer if Put returned early.
	pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return err
	}
	c.log.Debug().Int64("bytes", b.Size()).Str("etag", etag).Msg("model cached in response cache")
	return nil
}

// Restore implements backend.Adapter.
func (c *Cache) Restore(ctx context.Context) (*blob.Blob, error) {
	if c.store == nil {
		return nil, backend.ErrUnavailable(c.Name(), errors.New("no response store configured"))
	}
	rc, err := c.store.Get(ctx, c.key())
	if errors.Is(err, errMiss) {
		return nil, backend.ErrNotFound(c.Name(), backend.StoredName)
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	resp, err := http.ReadResponse(bufio.NewReader(rc), c.request())
	if err != nil {
		return nil, fmt.Errorf("parse cached response: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cached response has status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read cached body: %w", err)
	}
	if resp.ContentLength >= 0 && int64(len(data)) != resp.ContentLength {
		return nil, fmt.Errorf("cached body has %d bytes, expected %d", len(data), resp.ContentLength)
	}
	return blob.FromBytes(data), nil
}

// digest returns the hex xxhash of the payload, used as the entry ETag.
func digest(b *blob.Blob) (string, error) {
	rc, err := b.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}
