package httpapi

import (
	"context"
	"time"

	"modelcache/internal/acquire"
	"modelcache/internal/session"
	"modelcache/pkg/types"
)

// SessionService serves the HTTP API from a session.
type SessionService struct {
	s          *session.Session
	extensions []string
	started    time.Time
}

var _ Service = (*SessionService)(nil)

// NewSessionService returns a Service backed by s. Local loads accept files
// with the given extensions, or acquire.DefaultExtensions when empty.
func NewSessionService(s *session.Session, extensions []string) *SessionService {
	return &SessionService{s: s, extensions: extensions, started: time.Now()}
}

func (svc *SessionService) Interact(ctx context.Context) bool { return svc.s.Interact(ctx) }

func (svc *SessionService) Status() types.StatusResponse {
	st := svc.s.Status()
	now := time.Now()
	return types.StatusResponse{
		Model:      model(st),
		Probed:     st.Probed,
		Generating: st.Generating,
		Prompt:     st.Prompt,
		Output:     st.Output,
		Notices: types.Notices{
			Error: st.Notices.Error,
			Info:  st.Notices.Info,
			Alert: st.Notices.Alert,
		},
		Download:       progress(st.Download),
		UptimeSeconds:  int64(now.Sub(svc.started).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}

func (svc *SessionService) LoadLocal(ctx context.Context, path string) (*types.Model, error) {
	ref, err := svc.s.LoadLocal(ctx, acquire.PathPicker{Path: path, Extensions: svc.extensions})
	if err != nil || ref == "" {
		return nil, err
	}
	return model(svc.s.Status()), nil
}

func (svc *SessionService) StartDownload(ctx context.Context) error {
	return svc.s.StartDownload(ctx)
}

func (svc *SessionService) CancelDownload() bool { return svc.s.CancelDownload() }

func (svc *SessionService) DownloadProgress() types.DownloadProgress {
	return progress(svc.s.DownloadProgress())
}

func (svc *SessionService) Submit(ctx context.Context, prompt string, onPartial func(string)) error {
	_, err := svc.s.Submit(ctx, prompt, onPartial)
	return err
}

func (svc *SessionService) Reset() { svc.s.Reset() }

func (svc *SessionService) Ready() error { return svc.s.Ready() }

func model(st session.Status) *types.Model {
	if st.Reference == "" {
		return nil
	}
	return &types.Model{Reference: string(st.Reference), Source: st.Source, Bytes: st.ModelBytes}
}

func progress(p acquire.Progress) types.DownloadProgress {
	return types.DownloadProgress{Active: p.Active, Done: p.Done, Total: p.Total, Fraction: p.Fraction}
}
