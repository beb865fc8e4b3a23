// Package transport abstracts how the client reaches the codex agent
// runtime.
//
// proc.go - Subprocess transport
//
// Runs the codex binary in proto mode as a child process and speaks JSONL
// over its stdin/stdout: one submission per line out, one event per line
// in. A reader goroutine owns stdout; closing stdin asks the process to
// exit and Close falls back to killing it.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moofone/codex-go/internal/logger"
)

// maxEventSize bounds a single event line read from the agent process
const maxEventSize = 1024 * 1024

// procShutdownGrace is how long Close waits for the process to exit after
// stdin is closed before killing it
const procShutdownGrace = 3 * time.Second

// ProcOptions configures the subprocess transport
type ProcOptions struct {
	// Command is the agent binary, "codex" when empty
	Command string
	// Args precede the per-conversation overrides, {"proto"} when empty
	Args []string
	// CodexHome overrides the CODEX_HOME environment variable
	CodexHome string
	// Env entries are appended to the child environment
	Env []string
}

// ProcTransport launches one agent process per conversation
type ProcTransport struct {
	opts ProcOptions
}

// NewProcTransport creates a subprocess transport
func NewProcTransport(opts ProcOptions) *ProcTransport {
	if opts.Command == "" {
		opts.Command = "codex"
	}
	if len(opts.Args) == 0 {
		opts.Args = []string{"proto"}
	}
	return &ProcTransport{opts: opts}
}

// CreateConversation spawns the agent process and wires its pipes
func (t *ProcTransport) CreateConversation(ctx context.Context, opts ConversationOptions) (Session, error) {
	args := append([]string(nil), t.opts.Args...)
	for _, key := range sortedKeys(opts.Overrides) {
		args = append(args, "-c", fmt.Sprintf("%s=%s", key, opts.Overrides[key]))
	}

	cmd := exec.Command(t.opts.Command, args...)
	cmd.Env = append(os.Environ(), "CODEX_INTERNAL_ORIGINATOR_OVERRIDE=codex_cli_rs")
	if t.opts.CodexHome != "" {
		cmd.Env = append(cmd.Env, "CODEX_HOME="+t.opts.CodexHome)
	}
	cmd.Env = append(cmd.Env, t.opts.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", t.opts.Command, err)
	}

	s := &procSession{
		id:     uuid.NewString(),
		cmd:    cmd,
		stdin:  stdin,
		events: make(chan []byte, 100),
		errs:   make(chan error, 1),
	}
	go func() {
		scanEvents(stdout, s.events, s.errs)
		close(s.events)
	}()

	logger.Info("started agent process %s (conversation %s)", t.opts.Command, s.id)
	return s, nil
}

// Ping verifies the agent binary is resolvable
func (t *ProcTransport) Ping(ctx context.Context) error {
	if _, err := exec.LookPath(t.opts.Command); err != nil {
		return fmt.Errorf("agent binary not found: %w", err)
	}
	return nil
}

// Close is a no-op: each conversation owns its own process
func (t *ProcTransport) Close(ctx context.Context) error {
	return nil
}

// procSession is one live agent process
type procSession struct {
	id      string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	events  chan []byte
	errs    chan error
	writeMu sync.Mutex
	closed  bool
	mu      sync.Mutex
}

// ConversationID returns the transport-assigned conversation id
func (s *procSession) ConversationID() string {
	return s.id
}

// Submit writes one newline-terminated JSON payload to the process
func (s *procSession) Submit(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("conversation %s is closed", s.id)
	}
	s.mu.Unlock()

	framed := make([]byte, 0, len(payload)+1)
	framed = append(framed, payload...)
	framed = append(framed, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.stdin.Write(framed); err != nil {
		return fmt.Errorf("failed to write submission: %w", err)
	}
	return nil
}

// NextEvent returns the next event line, (nil, nil) on clean end of
// stream. A read error is reported only after every decoded line has been
// delivered; the reader goroutine closes the event channel behind it.
func (s *procSession) NextEvent(ctx context.Context) ([]byte, error) {
	select {
	case payload, ok := <-s.events:
		if !ok {
			select {
			case err := <-s.errs:
				return nil, err
			default:
				return nil, nil
			}
		}
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the process down, killing it if it ignores stdin EOF
func (s *procSession) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.writeMu.Lock()
	_ = s.stdin.Close()
	s.writeMu.Unlock()

	waitCh := make(chan error, 1)
	go func() { waitCh <- s.cmd.Wait() }()

	select {
	case err := <-waitCh:
		if err != nil {
			logger.Info("agent process for conversation %s exited: %v", s.id, err)
		}
		return nil
	case <-time.After(procShutdownGrace):
	case <-ctx.Done():
	}

	logger.Error("agent process for conversation %s did not exit, killing", s.id)
	_ = s.cmd.Process.Kill()
	<-waitCh
	return nil
}

// scanEvents reads JSONL event lines into the event channel until the
// reader ends, reporting at most one read error
func scanEvents(r io.Reader, events chan<- []byte, errs chan<- error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, maxEventSize)
	scanner.Buffer(buf, maxEventSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		events <- append([]byte(nil), line...)
	}

	if err := scanner.Err(); err != nil {
		select {
		case errs <- fmt.Errorf("event stream read failed: %w", err):
		default:
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
