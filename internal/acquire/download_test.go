package acquire

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

// rangeServer serves data with Range support and counts range requests.
func rangeServer(t *testing.T, data []byte, ranges *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") != "" && ranges != nil {
			ranges.Add(1)
		}
		http.ServeContent(w, r, "model.bin", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestDownloader() *Downloader {
	return NewDownloader(DownloaderConfig{Logger: zerolog.Nop(), RetryInterval: time.Millisecond})
}

func TestFetchAssemblesChunks(t *testing.T) {
	data := payload(10_000)
	var ranges atomic.Int32
	srv := rangeServer(t, data, &ranges)

	var mu sync.Mutex
	var last, calls int64
	b, err := newTestDownloader().Fetch(context.Background(), srv.URL, Options{
		ChunkSize:   1024,
		MaxParallel: 3,
		OnProgress: func(done, total int64) {
			mu.Lock()
			defer mu.Unlock()
			assert.GreaterOrEqual(t, done, last)
			assert.Equal(t, int64(len(data)), total)
			last = done
			calls++
		},
	})
	require.NoError(t, err)
	got, _ := b.Bytes()
	assert.Equal(t, data, got)
	assert.Equal(t, int32(10), ranges.Load())
	assert.Equal(t, int64(len(data)), last)
	assert.Equal(t, int64(10), calls)
}

func TestFetchWithoutRangeSupport(t *testing.T) {
	data := payload(3000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	b, err := newTestDownloader().Fetch(context.Background(), srv.URL, Options{ChunkSize: 512})
	require.NoError(t, err)
	got, _ := b.Bytes()
	assert.Equal(t, data, got)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	data := payload(2048)
	var failures atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") != "" && failures.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		http.ServeContent(w, r, "model.bin", time.Time{}, bytes.NewReader(data))
	}))
	defer srv.Close()

	b, err := newTestDownloader().Fetch(context.Background(), srv.URL, Options{ChunkSize: 1024, MaxParallel: 1})
	require.NoError(t, err)
	got, _ := b.Bytes()
	assert.Equal(t, data, got)
}

func TestFetchHardFailureIsNotCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestDownloader().Fetch(context.Background(), srv.URL, Options{})
	require.Error(t, err)
	assert.False(t, IsCanceled(err))
	assert.Contains(t, err.Error(), "404")
}

func TestFetchCancelIsClassified(t *testing.T) {
	started := make(chan struct{}, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", "4096")
			return
		}
		started <- struct{}{}
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	_, err := newTestDownloader().Fetch(ctx, srv.URL, Options{ChunkSize: 1024})
	require.Error(t, err)
	assert.True(t, IsCanceled(err))
}

func TestControllerCancelAndProgress(t *testing.T) {
	started := make(chan struct{}, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", "2048")
			return
		}
		started <- struct{}{}
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewDownloadController(newTestDownloader(), srv.URL, Options{ChunkSize: 1024})
	assert.False(t, c.Cancel(), "nothing to cancel yet")

	errc := make(chan error, 1)
	go func() {
		_, err := c.Start(context.Background())
		errc <- err
	}()
	<-started
	assert.True(t, c.Progress().Active)
	_, err := c.Start(context.Background())
	assert.True(t, IsBusy(err))

	assert.True(t, c.Cancel())
	err = <-errc
	assert.True(t, IsCanceled(err))
	assert.False(t, c.Progress().Active)
}

func TestControllerProgressFraction(t *testing.T) {
	data := payload(4096)
	srv := rangeServer(t, data, nil)
	c := NewDownloadController(newTestDownloader(), srv.URL, Options{ChunkSize: 1024, MaxParallel: 2})
	b, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4096), b.Size())
	p := c.Progress()
	assert.False(t, p.Active)
	assert.Equal(t, 1.0, p.Fraction)
	assert.Equal(t, int64(4096), p.Done)
}

func TestPickers(t *testing.T) {
	dir := t.TempDir()
	model := dir + "/gemma.bin"
	require.NoError(t, writeFile(model, "weights"))
	other := dir + "/notes.txt"
	require.NoError(t, writeFile(other, "text"))

	_, err := PathPicker{}.Pick(context.Background())
	assert.True(t, IsCanceled(err))

	b, err := PathPicker{Path: model}.Pick(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b.Handle())
	assert.Equal(t, "gemma.bin", b.Handle().Name)

	_, err = PathPicker{Path: other}.Pick(context.Background())
	require.Error(t, err)
	assert.False(t, IsCanceled(err))
	assert.True(t, IsInvalidFile(err))

	var out bytes.Buffer
	_, err = LinePicker{In: strings.NewReader("\n"), Out: &out}.Pick(context.Background())
	assert.True(t, IsCanceled(err))
	assert.Contains(t, out.String(), ".bin")

	b, err = LinePicker{In: strings.NewReader(model + "\n"), Out: &out}.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), b.Size())
}
