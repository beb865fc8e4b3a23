package codex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moofone/codex-go/internal/retry"
	"github.com/moofone/codex-go/protocol"
	"github.com/moofone/codex-go/transport"
)

// fakeEvent is one scripted NextEvent result
type fakeEvent struct {
	payload []byte
	err     error
}

// fakeSession scripts a conversation's event stream and records submissions
type fakeSession struct {
	id      string
	events  chan fakeEvent
	endOnce sync.Once

	mu        sync.Mutex
	submitted [][]byte
	submitErr error
	closed    bool
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id, events: make(chan fakeEvent, 100)}
}

func (s *fakeSession) push(payload string) { s.events <- fakeEvent{payload: []byte(payload)} }
func (s *fakeSession) fail(err error)      { s.events <- fakeEvent{err: err} }
func (s *fakeSession) end()                { s.endOnce.Do(func() { close(s.events) }) }

func (s *fakeSession) ConversationID() string { return s.id }

func (s *fakeSession) Submit(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitErr != nil {
		return s.submitErr
	}
	s.submitted = append(s.submitted, append([]byte(nil), payload...))
	return nil
}

func (s *fakeSession) setSubmitErr(err error) {
	s.mu.Lock()
	s.submitErr = err
	s.mu.Unlock()
}

func (s *fakeSession) NextEvent(ctx context.Context) ([]byte, error) {
	select {
	case e, ok := <-s.events:
		if !ok {
			return nil, nil
		}
		return e.payload, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeSession) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.end()
	return nil
}

func (s *fakeSession) submissions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.submitted))
	for i, p := range s.submitted {
		out[i] = string(p)
	}
	return out
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeTransport hands out fake sessions and can be scripted to fail
type fakeTransport struct {
	mu          sync.Mutex
	pingErr     error
	pingCalls   int
	failCreates int
	createCalls int
	sessions    []*fakeSession
}

func (t *fakeTransport) Ping(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pingCalls++
	return t.pingErr
}

func (t *fakeTransport) CreateConversation(ctx context.Context, opts transport.ConversationOptions) (transport.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.createCalls++
	if t.createCalls <= t.failCreates {
		return nil, errors.New("runtime unavailable")
	}
	s := newFakeSession(fmt.Sprintf("conv-%d", len(t.sessions)+1))
	t.sessions = append(t.sessions, s)
	return s, nil
}

func (t *fakeTransport) Close(ctx context.Context) error { return nil }

func (t *fakeTransport) lastSession() *fakeSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sessions) == 0 {
		return nil
	}
	return t.sessions[len(t.sessions)-1]
}

func fastRetry() *retry.Policy {
	return &retry.Policy{
		MaxRetries:    2,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2,
		MaxDelay:      2 * time.Millisecond,
	}
}

func newTestClient(t *testing.T, tr transport.Transport, plugins ...Plugin) *Client {
	t.Helper()
	client, err := NewClient(ClientOptions{
		Transport:    tr,
		CodexHome:    t.TempDir(),
		RetryPolicy:  fastRetry(),
		CloseTimeout: time.Second,
		Plugins:      plugins,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestClient_ConnectIdempotent(t *testing.T) {
	tr := &fakeTransport{}
	client := newTestClient(t, tr)
	ctx := context.Background()

	if got := client.State(); got != "disconnected" {
		t.Errorf("State() = %v, want disconnected", got)
	}
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}

	if got := client.State(); got != "connected" {
		t.Errorf("State() = %v, want connected", got)
	}
	if tr.pingCalls != 1 {
		t.Errorf("pingCalls = %v, want 1 (second Connect must be a no-op)", tr.pingCalls)
	}
}

func TestClient_ConnectRetriesThenFails(t *testing.T) {
	tr := &fakeTransport{pingErr: errors.New("daemon down")}
	client := newTestClient(t, tr)

	err := client.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect() error = nil, want failure")
	}
	if !IsConnectionError(err) {
		t.Errorf("Connect() error code = %v, want connection", CodeOf(err))
	}
	// MaxRetries=2 means exactly 3 attempts
	if tr.pingCalls != 3 {
		t.Errorf("pingCalls = %v, want 3", tr.pingCalls)
	}
	if got := client.State(); got != "disconnected" {
		t.Errorf("State() after failed connect = %v, want disconnected", got)
	}
}

func TestClient_CreateConversationRetries(t *testing.T) {
	tr := &fakeTransport{failCreates: 2}
	client := newTestClient(t, tr)
	defer func() { _ = client.Close(context.Background()) }()

	id, err := client.CreateConversation(context.Background(), ConversationOptions{})
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if tr.createCalls != 3 {
		t.Errorf("createCalls = %v, want 3", tr.createCalls)
	}
	if id != client.ConversationID() {
		t.Errorf("ConversationID() = %v, want %v", client.ConversationID(), id)
	}
}

func TestClient_CreateConversationClosesPrevious(t *testing.T) {
	tr := &fakeTransport{}
	client := newTestClient(t, tr)
	defer func() { _ = client.Close(context.Background()) }()
	ctx := context.Background()

	first, err := client.CreateConversation(ctx, ConversationOptions{})
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	firstSession := tr.lastSession()

	second, err := client.CreateConversation(ctx, ConversationOptions{})
	if err != nil {
		t.Fatalf("second CreateConversation() error = %v", err)
	}

	if first == second {
		t.Error("conversation ids must differ")
	}
	if !firstSession.isClosed() {
		t.Error("previous session was not closed before the new one started")
	}
	if got := client.ConversationID(); got != second {
		t.Errorf("ConversationID() = %v, want %v", got, second)
	}
}

func TestClient_EventsDeliveredInOrder(t *testing.T) {
	tr := &fakeTransport{}
	client := newTestClient(t, tr)
	defer func() { _ = client.Close(context.Background()) }()
	ctx := context.Background()

	if _, err := client.CreateConversation(ctx, ConversationOptions{}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	stream, err := client.Events(ctx)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	defer stream.Close()

	session := tr.lastSession()
	session.push(`{"id":"1","msg":{"type":"task_started"}}`)
	session.push(`{"id":"2","msg":{"type":"agent_message_delta","delta":"hi"}}`)
	session.push(`{"id":"3","msg":{"type":"task_complete"}}`)
	session.end()

	var got []string
	for stream.Next() {
		got = append(got, stream.Event().Msg.MsgType())
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream.Err() = %v, want nil", err)
	}

	want := []string{"task_started", "agent_message_delta", "task_complete"}
	if len(got) != len(want) {
		t.Fatalf("received %v events, want %v: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestClient_MalformedEventSkipped(t *testing.T) {
	tr := &fakeTransport{}
	client := newTestClient(t, tr)
	defer func() { _ = client.Close(context.Background()) }()
	ctx := context.Background()

	if _, err := client.CreateConversation(ctx, ConversationOptions{}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	stream, err := client.Events(ctx)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	defer stream.Close()

	session := tr.lastSession()
	session.push(`this is not json`)
	session.push(`{"id":"ok","msg":{"type":"task_started"}}`)
	session.end()

	var got []string
	for stream.Next() {
		got = append(got, stream.Event().Msg.MsgType())
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream.Err() = %v, want nil (malformed events must not kill the stream)", err)
	}
	if len(got) != 1 || got[0] != "task_started" {
		t.Errorf("events = %v, want just task_started", got)
	}
}

func TestClient_MultiConsumerIsolation(t *testing.T) {
	tr := &fakeTransport{}
	client := newTestClient(t, tr)
	defer func() { _ = client.Close(context.Background()) }()
	ctx := context.Background()

	if _, err := client.CreateConversation(ctx, ConversationOptions{}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	streamA, err := client.Events(ctx)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	defer streamA.Close()
	streamB, err := client.Events(ctx)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	defer streamB.Close()

	session := tr.lastSession()
	for i := 0; i < 3; i++ {
		session.push(fmt.Sprintf(`{"id":"%d","msg":{"type":"agent_message_delta","delta":"d%d"}}`, i, i))
	}
	session.end()

	collect := func(stream *EventStream) []string {
		var ids []string
		for stream.Next() {
			ids = append(ids, stream.Event().ID)
		}
		return ids
	}

	gotA := collect(streamA)
	gotB := collect(streamB)

	want := []string{"0", "1", "2"}
	for name, got := range map[string][]string{"A": gotA, "B": gotB} {
		if len(got) != len(want) {
			t.Fatalf("stream %s received %v, want %v (streams must not steal events)", name, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("stream %s event %d = %v, want %v", name, i, got[i], want[i])
			}
		}
	}
}

func TestClient_StreamFailurePropagates(t *testing.T) {
	tr := &fakeTransport{}
	client := newTestClient(t, tr)
	defer func() { _ = client.Close(context.Background()) }()
	ctx := context.Background()

	if _, err := client.CreateConversation(ctx, ConversationOptions{}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	stream, err := client.Events(ctx)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	defer stream.Close()

	tr.lastSession().fail(errors.New("pipe broke"))

	if stream.Next() {
		t.Error("Next() = true, want false after stream failure")
	}
	if err := stream.Err(); err == nil || !IsConnectionError(err) {
		t.Errorf("stream.Err() = %v, want connection error", err)
	}
}

func TestClient_SubmitValidation(t *testing.T) {
	tr := &fakeTransport{}
	client := newTestClient(t, tr)
	defer func() { _ = client.Close(context.Background()) }()
	ctx := context.Background()

	if _, err := client.CreateConversation(ctx, ConversationOptions{}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	tests := []struct {
		name string
		call func() error
	}{
		{"empty message", func() error { _, err := client.SendMessage(ctx, ""); return err }},
		{"empty turn items", func() error { _, err := client.SendUserTurn(ctx, protocol.UserTurnParams{}); return err }},
		{"empty exec approval id", func() error { _, err := client.RespondToExecApproval(ctx, "", true); return err }},
		{"empty patch approval id", func() error { _, err := client.RespondToPatchApproval(ctx, "", false); return err }},
		{"empty history text", func() error { _, err := client.AddToHistory(ctx, ""); return err }},
		{"empty review prompt", func() error { _, err := client.Review(ctx, protocol.ReviewRequest{}); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !IsValidationError(err) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}

	if got := len(tr.lastSession().submissions()); got != 0 {
		t.Errorf("rejected inputs reached the wire: %v submissions", got)
	}
}

func TestClient_SubmitFailureIsSessionError(t *testing.T) {
	tr := &fakeTransport{}
	client := newTestClient(t, tr)
	defer func() { _ = client.Close(context.Background()) }()
	ctx := context.Background()

	if _, err := client.CreateConversation(ctx, ConversationOptions{}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	tr.lastSession().setSubmitErr(errors.New("broken pipe"))

	_, err := client.SendMessage(ctx, "hello")
	if CodeOf(err) != ErrCodeSession {
		t.Errorf("error code = %v, want session", CodeOf(err))
	}
	// The error carries the encoded payload that failed to send
	if err == nil || !strings.Contains(err.Error(), "user_input") {
		t.Errorf("error = %v, want payload detail", err)
	}
}

func TestClient_SubmitWithoutConversation(t *testing.T) {
	client := newTestClient(t, &fakeTransport{})

	_, err := client.SendMessage(context.Background(), "hello")
	if CodeOf(err) != ErrCodeSession {
		t.Errorf("error code = %v, want session", CodeOf(err))
	}
}

func TestClient_ApprovalMapping(t *testing.T) {
	tr := &fakeTransport{}
	client := newTestClient(t, tr)
	defer func() { _ = client.Close(context.Background()) }()
	ctx := context.Background()

	if _, err := client.CreateConversation(ctx, ConversationOptions{}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if _, err := client.RespondToExecApproval(ctx, "req-1", true); err != nil {
		t.Fatalf("RespondToExecApproval() error = %v", err)
	}
	if _, err := client.RespondToPatchApproval(ctx, "req-2", false); err != nil {
		t.Fatalf("RespondToPatchApproval() error = %v", err)
	}

	subs := tr.lastSession().submissions()
	if len(subs) != 2 {
		t.Fatalf("submissions = %v, want 2", len(subs))
	}
	if !strings.Contains(subs[0], `"decision":"approved"`) {
		t.Errorf("approve submission = %s, want decision approved", subs[0])
	}
	if !strings.Contains(subs[1], `"decision":"denied"`) {
		t.Errorf("deny submission = %s, want decision denied", subs[1])
	}
}

func TestClient_SessionConfiguredCallback(t *testing.T) {
	tr := &fakeTransport{}
	client := newTestClient(t, tr)
	defer func() { _ = client.Close(context.Background()) }()
	ctx := context.Background()

	configured := make(chan protocol.SessionConfiguredMsg, 1)
	client.OnSessionConfigured(func(ctx context.Context, msg protocol.SessionConfiguredMsg) {
		configured <- msg
	})

	if _, err := client.CreateConversation(ctx, ConversationOptions{}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	tr.lastSession().push(`{"id":"0","msg":{"type":"session_configured","session_id":"sess-1","model":"gpt-5-codex"}}`)

	select {
	case msg := <-configured:
		if msg.SessionID != "sess-1" {
			t.Errorf("SessionID = %v, want sess-1", msg.SessionID)
		}
	case <-time.After(time.Second):
		t.Fatal("session configured callback never fired")
	}

	info := client.SessionInfo()
	if info == nil || info.SessionID != "sess-1" {
		t.Errorf("SessionInfo() = %+v, want sess-1", info)
	}
}

// capturePlugin records hook invocations and misbehaves on demand
type capturePlugin struct {
	mu         sync.Mutex
	submits    []string
	events     []string
	errs       []error
	submitFail bool
}

func (p *capturePlugin) Name() string { return "capture" }

func (p *capturePlugin) BeforeSubmit(ctx context.Context, sub *protocol.Submission) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submits = append(p.submits, protocol.OpType(sub.Op))
	if p.submitFail {
		return errors.New("plugin tantrum")
	}
	return nil
}

func (p *capturePlugin) AfterEvent(ctx context.Context, event *protocol.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.Msg.MsgType())
}

func (p *capturePlugin) OnError(ctx context.Context, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

func TestClient_PluginHooksRunAndAreIsolated(t *testing.T) {
	plugin := &capturePlugin{submitFail: true}
	tr := &fakeTransport{}
	client := newTestClient(t, tr, plugin)
	defer func() { _ = client.Close(context.Background()) }()
	ctx := context.Background()

	if _, err := client.CreateConversation(ctx, ConversationOptions{}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	stream, err := client.Events(ctx)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	defer stream.Close()

	// A failing BeforeSubmit hook must not block the submission
	if _, err := client.SendMessage(ctx, "hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if got := len(tr.lastSession().submissions()); got != 1 {
		t.Fatalf("submissions = %v, want 1 despite plugin failure", got)
	}

	tr.lastSession().push(`{"id":"1","msg":{"type":"task_started"}}`)
	tr.lastSession().fail(errors.New("pipe broke"))
	for stream.Next() {
	}

	plugin.mu.Lock()
	defer plugin.mu.Unlock()
	if len(plugin.submits) != 1 || plugin.submits[0] != "user_input" {
		t.Errorf("submits = %v, want [user_input]", plugin.submits)
	}
	if len(plugin.events) != 1 || plugin.events[0] != "task_started" {
		t.Errorf("events = %v, want [task_started]", plugin.events)
	}
	if len(plugin.errs) == 0 {
		t.Error("OnError was never invoked for the stream failure")
	}
}

// sabotagePlugin mutates the envelope and then fails, so its changes must
// be rolled back
type sabotagePlugin struct{}

func (sabotagePlugin) Name() string { return "sabotage" }

func (sabotagePlugin) BeforeSubmit(ctx context.Context, sub *protocol.Submission) error {
	sub.Op = protocol.BuildShutdown("hijacked").Op
	return errors.New("sabotage failed anyway")
}

func TestClient_FailingHookChangesAreRolledBack(t *testing.T) {
	tr := &fakeTransport{}
	client := newTestClient(t, tr, sabotagePlugin{})
	defer func() { _ = client.Close(context.Background()) }()
	ctx := context.Background()

	if _, err := client.CreateConversation(ctx, ConversationOptions{}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if _, err := client.SendMessage(ctx, "hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	subs := tr.lastSession().submissions()
	if len(subs) != 1 {
		t.Fatalf("submissions = %v, want 1", len(subs))
	}
	if !strings.Contains(subs[0], `"type":"user_input"`) {
		t.Errorf("wire payload = %s, want the original user_input envelope", subs[0])
	}
	if strings.Contains(subs[0], "shutdown") {
		t.Errorf("wire payload = %s, failed hook's mutation reached the wire", subs[0])
	}
}

// redactPlugin rewrites events in AfterEvent; subscribers must not see it
type redactPlugin struct{}

func (redactPlugin) Name() string { return "redact" }

func (redactPlugin) AfterEvent(ctx context.Context, event *protocol.Event) {
	event.Msg = protocol.AgentMessageMsg{Message: "redacted"}
}

func TestClient_SubscribersSeeEventsBeforeHooks(t *testing.T) {
	tr := &fakeTransport{}
	client := newTestClient(t, tr, redactPlugin{})
	defer func() { _ = client.Close(context.Background()) }()
	ctx := context.Background()

	if _, err := client.CreateConversation(ctx, ConversationOptions{}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	stream, err := client.Events(ctx)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	defer stream.Close()

	session := tr.lastSession()
	session.push(`{"id":"1","msg":{"type":"agent_message","message":"original"}}`)
	session.end()

	if !stream.Next() {
		t.Fatalf("Next() = false, stream.Err() = %v", stream.Err())
	}
	msg, ok := stream.Event().Msg.(protocol.AgentMessageMsg)
	if !ok {
		t.Fatalf("Msg type = %T, want AgentMessageMsg", stream.Event().Msg)
	}
	if msg.Message != "original" {
		t.Errorf("Message = %v, want original (hook mutations must not reach subscribers)", msg.Message)
	}
}

// stuckSession ignores Close so the pump can only exit via cancellation
type stuckSession struct {
	fakeSession
}

func (s *stuckSession) Close(ctx context.Context) error { return nil }

type stuckTransport struct {
	session *stuckSession
}

func (t *stuckTransport) Ping(ctx context.Context) error { return nil }

func (t *stuckTransport) CreateConversation(ctx context.Context, opts transport.ConversationOptions) (transport.Session, error) {
	return t.session, nil
}

func (t *stuckTransport) Close(ctx context.Context) error { return nil }

func TestClient_CloseIsBounded(t *testing.T) {
	tr := &stuckTransport{session: &stuckSession{fakeSession: fakeSession{
		id:     "conv-stuck",
		events: make(chan fakeEvent, 100),
	}}}
	client, err := NewClient(ClientOptions{
		Transport:    tr,
		CodexHome:    t.TempDir(),
		RetryPolicy:  fastRetry(),
		CloseTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	ctx := context.Background()
	if _, err := client.CreateConversation(ctx, ConversationOptions{}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	stream, err := client.Events(ctx)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	defer stream.Close()

	start := time.Now()
	if err := client.Close(ctx); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Close() took %v, want bounded by the close timeout", elapsed)
	}

	// The abandoned pump must still deliver a terminal signal
	done := make(chan struct{})
	go func() {
		for stream.Next() {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("stream never terminated after bounded close")
	}
}

// jammedSession never yields events and ignores cancellation entirely
type jammedSession struct{}

func (jammedSession) ConversationID() string                      { return "conv-jammed" }
func (jammedSession) Submit(ctx context.Context, p []byte) error  { return nil }
func (jammedSession) NextEvent(ctx context.Context) ([]byte, error) { select {} }
func (jammedSession) Close(ctx context.Context) error             { return nil }

type jammedTransport struct{}

func (jammedTransport) Ping(ctx context.Context) error { return nil }

func (jammedTransport) CreateConversation(ctx context.Context, opts transport.ConversationOptions) (transport.Session, error) {
	return jammedSession{}, nil
}

func (jammedTransport) Close(ctx context.Context) error { return nil }

func TestClient_CloseBoundedWhenTransportIgnoresCancel(t *testing.T) {
	client, err := NewClient(ClientOptions{
		Transport:    jammedTransport{},
		CodexHome:    t.TempDir(),
		RetryPolicy:  fastRetry(),
		CloseTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	ctx := context.Background()
	if _, err := client.CreateConversation(ctx, ConversationOptions{}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	stream, err := client.Events(ctx)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	defer stream.Close()

	closed := make(chan struct{})
	go func() {
		_ = client.Close(ctx)
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() never returned against a transport that ignores cancellation")
	}

	// The abandoned pump's subscribers still get their terminal signal
	drained := make(chan struct{})
	go func() {
		for stream.Next() {
		}
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Error("stream never terminated after the pump was abandoned")
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	client := newTestClient(t, &fakeTransport{})
	ctx := context.Background()

	if _, err := client.CreateConversation(ctx, ConversationOptions{}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if err := client.Close(ctx); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := client.Close(ctx); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if got := client.State(); got != "disconnected" {
		t.Errorf("State() = %v, want disconnected", got)
	}
}
