package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelcache/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	// Interact records a user interaction; the first one starts the restore probe.
	Interact(ctx context.Context) bool
	Status() types.StatusResponse
	// LoadLocal loads the model at path. A nil model with a nil error means
	// the pick was dismissed.
	LoadLocal(ctx context.Context, path string) (*types.Model, error)
	StartDownload(ctx context.Context) error
	CancelDownload() bool
	DownloadProgress() types.DownloadProgress
	Submit(ctx context.Context, prompt string, onPartial func(string)) error
	Reset()
	Ready() error
}

// NewMux returns the HTTP surface over svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(corsOptions()))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(interactions(svc))

		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.Status())
		})

		r.Post("/model/local", func(w http.ResponseWriter, r *http.Request) {
			var req types.LoadLocalRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			m, err := svc.LoadLocal(r.Context(), req.Path)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, types.LoadResponse{Loaded: m != nil, Model: m})
		})

		r.Route("/model/download", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, svc.DownloadProgress())
			})
			r.Post("/", func(w http.ResponseWriter, r *http.Request) {
				if err := svc.StartDownload(r.Context()); err != nil {
					writeError(w, err)
					return
				}
				writeJSON(w, http.StatusAccepted, svc.DownloadProgress())
			})
			r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]bool{"canceled": svc.CancelDownload()})
			})
		})

		r.Post("/infer", inferHandler(svc))

		r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
			svc.Reset()
			w.WriteHeader(http.StatusNoContent)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Ready(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready: " + err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// interactions treats every request it wraps as a user interaction.
func interactions(svc Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if svc.Interact(r.Context()) && zlog != nil {
				zlog.Debug().Str("path", r.URL.Path).Msg("first interaction, probing caches")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	// Limit body size (configurable, default 1MiB)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ndjsonStream writes InferChunk lines, sending headers with the first one.
type ndjsonStream struct {
	w       http.ResponseWriter
	out     io.Writer
	flush   func()
	started bool
}

func (s *ndjsonStream) send(c types.InferChunk) {
	if !s.started {
		s.w.Header().Set("Content-Type", "application/x-ndjson")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	_ = json.NewEncoder(s.out).Encode(c)
	if s.flush != nil {
		s.flush()
	}
}

func inferHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.InferRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			writeJSONError(w, http.StatusBadRequest, "prompt is required")
			return
		}

		stream := &ndjsonStream{w: w, out: w}
		if f, ok := w.(http.Flusher); ok {
			stream.flush = f.Flush
		}
		lvl := requestLogLevel(r)
		if lvl >= LevelDebug {
			stream.out = io.MultiWriter(w, &loggingLineWriter{})
		}
		start := time.Now()
		logInfer(r, lvl, "infer start", 0, start, nil)

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if inferTimeout > 0 {
			var cancelT context.CancelFunc
			ctx, cancelT = context.WithTimeout(ctx, time.Duration(inferTimeout)*time.Second)
			defer cancelT()
		}

		err := svc.Submit(ctx, req.Prompt, func(partial string) {
			stream.send(types.InferChunk{Text: partial})
		})
		switch {
		case err == nil:
			stream.send(types.InferChunk{Done: true})
			logInfer(r, lvl, "infer end", http.StatusOK, start, nil)
		case r.Context().Err() != nil || serverBaseCtx.Err() != nil:
			// Client went away or the server is shutting down.
		case stream.started:
			stream.send(types.InferChunk{Done: true, Error: err.Error()})
			logInfer(r, lvl, "infer end", http.StatusOK, start, err)
		default:
			status := writeError(w, err)
			logInfer(r, lvl, "infer end", status, start, err)
		}
	}
}

func logInfer(r *http.Request, lvl LogLevel, msg string, status int, start time.Time, err error) {
	if lvl < LevelInfo {
		return
	}
	if zlog == nil {
		if status == 0 {
			log.Printf("%s path=%s", msg, r.URL.Path)
			return
		}
		log.Printf("%s status=%d dur=%s err=%v", msg, status, time.Since(start), err)
		return
	}
	z := zlog.Info().Str("path", r.URL.Path)
	if status != 0 {
		z = z.Int("status", status).Dur("dur", time.Since(start))
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	if err != nil {
		z = z.Err(err)
	}
	z.Msg(msg)
}
