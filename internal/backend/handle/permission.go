package handle

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"modelcache/internal/blob"
)

// PermissionState mirrors the three outcomes of a read-permission query.
type PermissionState string

const (
	Granted PermissionState = "granted"
	Denied  PermissionState = "denied"
	Prompt  PermissionState = "prompt"
)

// Permissions decides whether a saved handle may be read.
type Permissions interface {
	// Query reports the current state without interacting with the user.
	Query(ctx context.Context, h blob.FileHandle) (PermissionState, error)
	// Request asks the user. A request left unanswered resolves to Prompt.
	Request(ctx context.Context, h blob.FileHandle) (PermissionState, error)
}

// Granter is implemented by permission sets that remember grants made when a
// file is picked explicitly.
type Granter interface {
	Grant(h blob.FileHandle)
}

// Prompter asks a yes/no question.
type Prompter interface {
	Confirm(ctx context.Context, question string) (PermissionState, error)
}

// SessionPermissions keeps grants for the lifetime of the process. Handles
// saved in an earlier process start in the Prompt state.
type SessionPermissions struct {
	mu      sync.Mutex
	granted map[string]bool
	prompt  Prompter
}

// NewSessionPermissions returns a permission set that asks p when needed.
// A nil p leaves every request pending.
func NewSessionPermissions(p Prompter) *SessionPermissions {
	return &SessionPermissions{granted: make(map[string]bool), prompt: p}
}

// Grant records read permission for h.
func (s *SessionPermissions) Grant(h blob.FileHandle) {
	s.mu.Lock()
	s.granted[h.Path] = true
	s.mu.Unlock()
}

// Query implements Permissions.
func (s *SessionPermissions) Query(ctx context.Context, h blob.FileHandle) (PermissionState, error) {
	if !readable(h.Path) {
		return Denied, nil
	}
	s.mu.Lock()
	ok := s.granted[h.Path]
	s.mu.Unlock()
	if ok {
		return Granted, nil
	}
	return Prompt, nil
}

// Request implements Permissions.
func (s *SessionPermissions) Request(ctx context.Context, h blob.FileHandle) (PermissionState, error) {
	if !readable(h.Path) {
		return Denied, nil
	}
	if s.prompt == nil {
		return Prompt, nil
	}
	st, err := s.prompt.Confirm(ctx, fmt.Sprintf("Allow modelcache to read %s?", h.Path))
	if err != nil {
		return Prompt, err
	}
	if st == Granted {
		s.Grant(h)
	}
	return st, nil
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// TerminalPrompter asks on a terminal. It never waits longer than Timeout.
type TerminalPrompter struct {
	In      *os.File
	Out     io.Writer
	Timeout time.Duration
}

// DefaultPromptTimeout bounds how long a permission prompt waits for an answer.
const DefaultPromptTimeout = 30 * time.Second

// Confirm implements Prompter. Input that is not a terminal leaves the
// request pending.
func (p TerminalPrompter) Confirm(ctx context.Context, question string) (PermissionState, error) {
	if p.In == nil || !term.IsTerminal(int(p.In.Fd())) {
		return Prompt, nil
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPromptTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fmt.Fprintf(p.Out, "%s [y/N] ", question)
	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(p.In).ReadString('\n')
		answer <- line
	}()
	select {
	case line := <-answer:
		return parseAnswer(line), nil
	case <-ctx.Done():
		fmt.Fprintln(p.Out)
		return Prompt, nil
	}
}

func parseAnswer(line string) PermissionState {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return Granted
	case "":
		return Prompt
	default:
		return Denied
	}
}
