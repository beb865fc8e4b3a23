// Package transport abstracts how the client reaches the codex agent
// runtime.
//
// docker.go - Containerized transport
//
// Runs the agent inside a Docker container. The transport creates (or
// adopts) one long-lived container and starts one exec per conversation,
// speaking the same JSONL protocol over the hijacked exec connection.
// Docker multiplexes stdout/stderr on that connection, so a demux
// goroutine splits them before the line scanner sees anything.
package transport

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/docker/docker/api/types"
	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"

	"github.com/moofone/codex-go/internal/logger"
)

// DockerOptions configures the containerized transport
type DockerOptions struct {
	// Image to run when no ContainerID is given
	Image string
	// ContainerID adopts an existing running container instead of
	// creating one. Adopted containers are not removed on Close.
	ContainerID string
	// Command is the agent invocation inside the container,
	// {"codex", "proto"} when empty
	Command []string
	// Env entries for each exec
	Env []string
	// WorkingDir for each exec
	WorkingDir string
	// Mounts are bind mounts for created containers
	Mounts []MountSpec
}

// MountSpec is a host path bind-mounted into a created container
type MountSpec struct {
	Source   string
	Target   string
	ReadOnly bool
}

// DockerTransport runs conversations as execs inside one container
type DockerTransport struct {
	client *client.Client
	opts   DockerOptions

	mu          sync.Mutex
	containerID string
	owned       bool
}

// NewDockerTransport creates a containerized transport
func NewDockerTransport(opts DockerOptions) (*DockerTransport, error) {
	if opts.Image == "" && opts.ContainerID == "" {
		return nil, fmt.Errorf("docker transport requires an image or a container id")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if len(opts.Command) == 0 {
		opts.Command = []string{"codex", "proto"}
	}
	return &DockerTransport{
		client:      cli,
		opts:        opts,
		containerID: opts.ContainerID,
	}, nil
}

// CreateConversation starts an agent exec in the container
func (t *DockerTransport) CreateConversation(ctx context.Context, opts ConversationOptions) (Session, error) {
	containerID, err := t.ensureContainer(ctx)
	if err != nil {
		return nil, err
	}

	cmd := append([]string(nil), t.opts.Command...)
	for _, key := range sortedKeys(opts.Overrides) {
		cmd = append(cmd, "-c", fmt.Sprintf("%s=%s", key, opts.Overrides[key]))
	}

	execConfig := dockercontainer.ExecOptions{
		Cmd:          cmd,
		Env:          append([]string{"CODEX_INTERNAL_ORIGINATOR_OVERRIDE=codex_cli_rs"}, t.opts.Env...),
		WorkingDir:   t.opts.WorkingDir,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Tty:          false,
	}

	execResp, err := t.client.ContainerExecCreate(ctx, containerID, execConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := t.client.ContainerExecAttach(ctx, execResp.ID, dockercontainer.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}

	// Demux the multiplexed stream before line scanning
	stdoutReader, stdoutWriter := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(stdoutWriter, io.Discard, attachResp.Reader)
		_ = stdoutWriter.CloseWithError(err)
	}()

	s := &dockerSession{
		id:     uuid.NewString(),
		attach: attachResp,
		events: make(chan []byte, 100),
		errs:   make(chan error, 1),
	}
	go func() {
		scanEvents(stdoutReader, s.events, s.errs)
		close(s.events)
	}()

	logger.Info("started agent exec in container %s (conversation %s)", containerID[:12], s.id)
	return s, nil
}

// Ping verifies connectivity to the Docker daemon
func (t *DockerTransport) Ping(ctx context.Context) error {
	if _, err := t.client.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon is unreachable: %w", err)
	}
	return nil
}

// Close removes the container if this transport created it
func (t *DockerTransport) Close(ctx context.Context) error {
	t.mu.Lock()
	containerID := t.containerID
	owned := t.owned
	t.containerID = ""
	t.mu.Unlock()

	if owned && containerID != "" {
		if err := t.client.ContainerRemove(ctx, containerID, dockercontainer.RemoveOptions{Force: true}); err != nil {
			logger.Error("failed to remove container %s: %v", containerID[:12], err)
		}
	}
	return t.client.Close()
}

// ensureContainer creates and starts the agent container on first use
func (t *DockerTransport) ensureContainer(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.containerID != "" {
		return t.containerID, nil
	}

	var mounts []mount.Mount
	for _, m := range t.opts.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	containerConfig := &dockercontainer.Config{
		Image: t.opts.Image,
		// Keep the container alive; conversations run as execs
		Cmd: []string{"sleep", "infinity"},
		Tty: false,
	}
	hostConfig := &dockercontainer.HostConfig{
		Mounts: mounts,
		Init:   boolPtr(true),
	}

	resp, err := t.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	if err := t.client.ContainerStart(ctx, resp.ID, dockercontainer.StartOptions{}); err != nil {
		return "", fmt.Errorf("failed to start container: %w", err)
	}

	t.containerID = resp.ID
	t.owned = true
	return resp.ID, nil
}

// dockerSession is one live agent exec
type dockerSession struct {
	id      string
	attach  types.HijackedResponse
	events  chan []byte
	errs    chan error
	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
}

// ConversationID returns the transport-assigned conversation id
func (s *dockerSession) ConversationID() string {
	return s.id
}

// Submit writes one newline-terminated JSON payload to the exec
func (s *dockerSession) Submit(ctx context.Context, payload []byte) error {
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
	if _, err := s.attach.Conn.Write(framed); err != nil {
		return fmt.Errorf("failed to write submission: %w", err)
	}
	return nil
}

// NextEvent returns the next event line, (nil, nil) on clean end of
// stream. A read error is reported only after every decoded line has been
// delivered; the demux goroutine closes the event channel behind it.
func (s *dockerSession) NextEvent(ctx context.Context) ([]byte, error) {
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

// Close tears down the hijacked connection, ending the exec's stdin
func (s *dockerSession) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.attach.Close()
	return nil
}

func boolPtr(b bool) *bool {
	return &b
}
