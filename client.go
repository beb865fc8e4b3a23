// Package codex is a client for long-lived conversations with the codex
// agent runtime.
//
// client.go - Client lifecycle, conversation management and typed operations
package codex

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/moofone/codex-go/config"
	"github.com/moofone/codex-go/internal/logger"
	"github.com/moofone/codex-go/internal/metrics"
	"github.com/moofone/codex-go/internal/queue"
	"github.com/moofone/codex-go/internal/retry"
	"github.com/moofone/codex-go/protocol"
	"github.com/moofone/codex-go/transport"
)

/*
CLIENT ARCHITECTURE

One Client owns one transport and at most one active conversation. Each
conversation runs a single pump goroutine that pulls raw payloads from the
transport, decodes them once, and fans the typed events out to every
subscriber queue:

    transport session --> pump --> plugins / typed handlers
                               \-> subscriber queues (one per Events call)

The pump is fail-stop: a stream error fails every subscriber queue and the
goroutine exits; it is never restarted behind the caller's back. A clean
end of stream closes the queues instead, so each subscriber observes
exactly one terminal signal. Malformed payloads are logged, counted and
skipped without disturbing the stream.

Creating a conversation while one is active closes the old one fully,
pump drain included, before the new one starts.
*/

type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// pinger is implemented by transports that can verify reachability
type pinger interface {
	Ping(ctx context.Context) error
}

// Client maintains a connection to the agent runtime and at most one
// active conversation
type Client struct {
	opts    ClientOptions
	config  *config.LoadedConfig
	plugins []Plugin

	mu            sync.Mutex
	state         connState
	transport     transport.Transport
	conv          *conversation
	closeSignaled bool

	initOnce sync.Once

	handlersMu   sync.RWMutex
	msgHandlers  map[string][]func(context.Context, protocol.EventMsg)
	connectedFns []func(context.Context)
	errorFns     []func(context.Context, error)
	closedFns    []func(context.Context)
}

// NewClient creates a client. The transport is not touched until Connect.
func NewClient(opts ClientOptions) (*Client, error) {
	opts = opts.withDefaults()

	if opts.LogDir != "" {
		if err := logger.Init(opts.LogDir); err != nil {
			return nil, newError(ErrCodeValidation, err, "failed to initialize logging")
		}
	}

	cfg, err := config.LoadAll(opts.CodexHome)
	if err != nil {
		return nil, newError(ErrCodeValidation, err, "failed to load configuration")
	}

	return &Client{
		opts:      opts,
		config:    cfg,
		plugins:   opts.Plugins,
		transport: opts.Transport,
	}, nil
}

// State returns the connection state name
func (c *Client) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.String()
}

// Config returns the loaded codex home configuration
func (c *Client) Config() *config.LoadedConfig {
	return c.config
}

// EnsureAuthenticated returns an auth error when the codex home holds no
// usable credentials
func (c *Client) EnsureAuthenticated() error {
	if c.config.Credentials.HasAPIKey() || c.config.Credentials.HasTokens() {
		return nil
	}
	return newError(ErrCodeAuth, nil, "no credentials found in %s", c.config.CodexHome)
}

// Connect prepares the transport and runs plugin initialization. It is
// idempotent: a connected client returns immediately. Transport probes are
// retried per the retry policy; a probe that never succeeds leaves the
// client disconnected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == stateConnected {
		c.mu.Unlock()
		return nil
	}
	c.state = stateConnecting
	if c.transport == nil {
		c.transport = transport.NewProcTransport(transport.ProcOptions{CodexHome: c.config.CodexHome})
	}
	t := c.transport
	c.mu.Unlock()

	if p, ok := t.(pinger); ok {
		attempt := 0
		err := retry.Do(ctx, *c.opts.RetryPolicy, "connect", func(ctx context.Context) error {
			if attempt > 0 {
				metrics.ConnectRetries.Inc()
			}
			attempt++
			return p.Ping(ctx)
		})
		if err != nil {
			c.mu.Lock()
			c.state = stateDisconnected
			c.mu.Unlock()
			werr := newError(ErrCodeConnection, err, "transport is unreachable (codex home %s)", c.config.CodexHome)
			c.notifyError(ctx, werr)
			return werr
		}
	}

	c.initOnce.Do(func() { c.initializePlugins(ctx) })

	c.mu.Lock()
	c.state = stateConnected
	c.mu.Unlock()
	logger.Info("client connected (%s auth)", c.config.Credentials.AuthMode())
	c.notifyConnected(ctx)
	return nil
}

// CreateConversation starts a new conversation, fully closing any previous
// one first. It connects the client if the caller has not. Returns the new
// conversation id.
func (c *Client) CreateConversation(ctx context.Context, opts ConversationOptions) (string, error) {
	if err := c.Connect(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	prev := c.conv
	c.conv = nil
	t := c.transport
	c.mu.Unlock()
	if prev != nil {
		prev.close(c.opts.CloseTimeout)
	}

	overrides := c.buildOverrides(opts)

	var session transport.Session
	attempt := 0
	err := retry.Do(ctx, *c.opts.RetryPolicy, "create conversation", func(ctx context.Context) error {
		if attempt > 0 {
			metrics.ConnectRetries.Inc()
		}
		attempt++
		s, err := t.CreateConversation(ctx, transport.ConversationOptions{Overrides: overrides})
		if err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		werr := newError(ErrCodeConnection, err, "failed to create conversation")
		c.notifyError(ctx, werr)
		return "", werr
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	conv := &conversation{
		session:    session,
		cancelPump: cancel,
		pumpDone:   make(chan struct{}),
		subs:       make(map[*queue.Queue[protocol.Event]]struct{}),
	}

	c.mu.Lock()
	c.conv = conv
	c.closeSignaled = false
	c.mu.Unlock()

	metrics.ActiveConversations.Inc()
	go c.pump(pumpCtx, conv)

	logger.Info("conversation %s started", session.ConversationID())
	return session.ConversationID(), nil
}

// buildOverrides maps conversation options onto runtime config overrides,
// resolving model shorthands through the registry
func (c *Client) buildOverrides(opts ConversationOptions) map[string]string {
	overrides := make(map[string]string)
	if opts.Model != "" {
		overrides["model"] = c.config.Models.ResolveModel(opts.Model)
		if effort := c.config.Models.ResolveEffort(opts.Model, opts.Effort); effort != "" {
			overrides["model_reasoning_effort"] = effort
		}
	}
	if opts.SandboxMode != "" {
		overrides["sandbox_mode"] = opts.SandboxMode
	}
	if opts.ApprovalPolicy != "" {
		overrides["approval_policy"] = opts.ApprovalPolicy
	}
	for k, v := range opts.Overrides {
		overrides[k] = v
	}
	return overrides
}

// ConversationID returns the active conversation id, empty when none
func (c *Client) ConversationID() string {
	c.mu.Lock()
	conv := c.conv
	c.mu.Unlock()
	if conv == nil {
		return ""
	}
	return conv.session.ConversationID()
}

// SessionInfo returns the session_configured message for the active
// conversation, nil until the runtime has confirmed it
func (c *Client) SessionInfo() *protocol.SessionConfiguredMsg {
	c.mu.Lock()
	conv := c.conv
	c.mu.Unlock()
	if conv == nil {
		return nil
	}
	return conv.sessionInfo()
}

// Close fully shuts the client down: closes the active conversation with a
// bounded pump drain, then the transport. Safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	conv := c.conv
	t := c.transport
	c.conv = nil
	c.transport = nil
	c.state = stateDisconnected
	signalHere := conv == nil && !c.closeSignaled
	c.closeSignaled = true
	c.mu.Unlock()

	if conv != nil {
		conv.close(c.opts.CloseTimeout)
	} else if signalHere {
		// No pump ran, so the terminal signal comes from here
		c.notifyStreamClosed(ctx)
	}

	var err error
	if t != nil {
		err = t.Close(ctx)
	}
	if c.opts.LogDir != "" {
		logger.Close()
	}
	return err
}

// ---- typed operations ----

// SendMessage submits a single text message to the current task
func (c *Client) SendMessage(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", newError(ErrCodeValidation, nil, "message text is empty")
	}
	return c.SendUserInput(ctx, []protocol.InputItem{protocol.TextInput(text)})
}

// SendUserInput submits user input items to the current task
func (c *Client) SendUserInput(ctx context.Context, items []protocol.InputItem) (string, error) {
	if len(items) == 0 {
		return "", newError(ErrCodeValidation, nil, "user input needs at least one item")
	}
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildUserInput(id, items))
}

// SendUserTurn starts a turn with explicit per-turn context. Unset fields
// take the protocol defaults; the model shorthand is resolved through the
// registry and an empty cwd becomes the process working directory.
func (c *Client) SendUserTurn(ctx context.Context, params protocol.UserTurnParams) (string, error) {
	if len(params.Items) == 0 {
		return "", newError(ErrCodeValidation, nil, "user turn needs at least one item")
	}
	if params.Model != "" {
		if effort := c.config.Models.ResolveEffort(params.Model, string(params.Effort)); effort != "" {
			params.Effort = protocol.Effort(effort)
		}
		params.Model = c.config.Models.ResolveModel(params.Model)
	}
	if params.Cwd == "" {
		if cwd, err := os.Getwd(); err == nil {
			params.Cwd = cwd
		}
	}
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildUserTurn(id, params))
}

// Interrupt aborts the in-flight task
func (c *Client) Interrupt(ctx context.Context) (string, error) {
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildInterrupt(id))
}

// RespondToExecApproval answers a command approval request
func (c *Client) RespondToExecApproval(ctx context.Context, requestID string, approve bool) (string, error) {
	if requestID == "" {
		return "", newError(ErrCodeValidation, nil, "approval request id is empty")
	}
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildExecApproval(id, requestID, protocol.ApprovalValue(approve)))
}

// RespondToPatchApproval answers a patch approval request
func (c *Client) RespondToPatchApproval(ctx context.Context, requestID string, approve bool) (string, error) {
	if requestID == "" {
		return "", newError(ErrCodeValidation, nil, "approval request id is empty")
	}
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildPatchApproval(id, requestID, protocol.ApprovalValue(approve)))
}

// OverrideTurnContext updates the persistent turn context. Only non-nil
// fields are sent.
func (c *Client) OverrideTurnContext(ctx context.Context, overrides protocol.TurnContextOverrides) (string, error) {
	if overrides.Model != nil {
		resolved := c.config.Models.ResolveModel(*overrides.Model)
		overrides.Model = &resolved
	}
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildOverrideTurnContext(id, overrides))
}

// AddToHistory appends an entry to cross-session message history
func (c *Client) AddToHistory(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", newError(ErrCodeValidation, nil, "history text is empty")
	}
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildAddToHistory(id, text))
}

// GetHistoryEntry requests one history entry; the runtime answers with a
// get_history_entry_response event carrying this submission id
func (c *Client) GetHistoryEntry(ctx context.Context, offset int, logID uint64) (string, error) {
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildGetHistoryEntryRequest(id, offset, logID))
}

// GetPath requests the conversation rollout path
func (c *Client) GetPath(ctx context.Context) (string, error) {
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildGetPath(id))
}

// ListMcpTools requests the MCP tools available to the runtime
func (c *Client) ListMcpTools(ctx context.Context) (string, error) {
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildListMcpTools(id))
}

// ListCustomPrompts requests the custom prompts known to the runtime
func (c *Client) ListCustomPrompts(ctx context.Context) (string, error) {
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildListCustomPrompts(id))
}

// Compact asks the runtime to summarize and compact the conversation
func (c *Client) Compact(ctx context.Context) (string, error) {
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildCompact(id))
}

// Review asks the runtime to enter review mode
func (c *Client) Review(ctx context.Context, request protocol.ReviewRequest) (string, error) {
	if request.Prompt == "" {
		return "", newError(ErrCodeValidation, nil, "review prompt is empty")
	}
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildReview(id, request))
}

// Shutdown requests a graceful runtime shutdown; the runtime acknowledges
// with shutdown_complete and ends the stream
func (c *Client) Shutdown(ctx context.Context) (string, error) {
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildShutdown(id))
}

// Status requests current session status
func (c *Client) Status(ctx context.Context) (string, error) {
	id := protocol.NewSubmissionID()
	return id, c.submit(ctx, protocol.BuildStatus(id))
}

// Submit sends a prebuilt submission envelope through the plugin pipeline.
// Most callers want the typed methods above; this is the escape hatch for
// operations built directly with the protocol package.
func (c *Client) Submit(ctx context.Context, sub protocol.Submission) error {
	return c.submit(ctx, sub)
}

// submit runs the plugin pipeline, encodes the envelope and hands it to
// the transport
func (c *Client) submit(ctx context.Context, sub protocol.Submission) error {
	c.mu.Lock()
	conv := c.conv
	c.mu.Unlock()
	if conv == nil {
		return newError(ErrCodeSession, nil, "no active conversation")
	}

	c.applyBeforeSubmit(ctx, &sub)

	payload, err := json.Marshal(sub)
	if err != nil {
		return newError(ErrCodeValidation, err, "failed to encode submission")
	}

	op := protocol.OpType(sub.Op)
	if err := conv.session.Submit(ctx, payload); err != nil {
		metrics.SubmitFailures.WithLabelValues(op).Inc()
		// The post-pipeline payload goes into the error so callers can see
		// what actually hit the wire
		werr := newError(ErrCodeSession, err, "submit %s failed: %s", op, payload)
		c.notifyError(ctx, werr)
		return werr
	}

	metrics.SubmissionsTotal.WithLabelValues(op).Inc()
	return nil
}

// pump is the single reader of a conversation's event stream
func (c *Client) pump(ctx context.Context, conv *conversation) {
	defer close(conv.pumpDone)
	defer metrics.ActiveConversations.Dec()
	defer c.notifyStreamClosed(ctx)

	for {
		payload, err := conv.session.NextEvent(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				conv.closeSubscribers()
				return
			}
			werr := newError(ErrCodeConnection, err, "event stream failed")
			logger.Error("conversation %s: %v", conv.session.ConversationID(), werr)
			c.notifyError(ctx, werr)
			conv.failSubscribers(werr)
			return
		}
		if payload == nil {
			logger.Info("conversation %s: event stream closed", conv.session.ConversationID())
			conv.closeSubscribers()
			return
		}

		event, perr := protocol.ParseEvent(payload)
		if perr != nil {
			metrics.ParseFailuresTotal.Inc()
			logger.Error("conversation %s: skipping malformed event: %v", conv.session.ConversationID(), perr)
			continue
		}

		metrics.EventsTotal.WithLabelValues(event.Msg.MsgType()).Inc()
		// Subscribers get the event before any hook can touch it
		conv.broadcast(*event)
		c.applyAfterEvent(ctx, event)
		c.dispatchTyped(ctx, conv, event)
	}
}

// dispatchTyped routes an event to its registered callbacks by wire tag.
// Unknown tags have no registrations and fall through silently.
func (c *Client) dispatchTyped(ctx context.Context, conv *conversation, event *protocol.Event) {
	if msg, ok := event.Msg.(protocol.SessionConfiguredMsg); ok {
		conv.setSessionInfo(msg)
	}
	c.handlersMu.RLock()
	handlers := c.msgHandlers[event.Msg.MsgType()]
	c.handlersMu.RUnlock()
	for _, fn := range handlers {
		fn(ctx, event.Msg)
	}
}

// conversation is one live session plus its pump and subscribers
type conversation struct {
	session    transport.Session
	cancelPump context.CancelFunc
	pumpDone   chan struct{}

	subsMu sync.Mutex
	subs   map[*queue.Queue[protocol.Event]]struct{}

	infoMu     sync.Mutex
	configured *protocol.SessionConfiguredMsg

	closeOnce sync.Once
}

func (conv *conversation) setSessionInfo(msg protocol.SessionConfiguredMsg) {
	conv.infoMu.Lock()
	defer conv.infoMu.Unlock()
	conv.configured = &msg
}

func (conv *conversation) sessionInfo() *protocol.SessionConfiguredMsg {
	conv.infoMu.Lock()
	defer conv.infoMu.Unlock()
	return conv.configured
}

func (conv *conversation) addSubscriber() *queue.Queue[protocol.Event] {
	q := queue.New[protocol.Event]()
	conv.subsMu.Lock()
	conv.subs[q] = struct{}{}
	conv.subsMu.Unlock()
	metrics.EventSubscribers.Inc()
	return q
}

func (conv *conversation) removeSubscriber(q *queue.Queue[protocol.Event]) {
	conv.subsMu.Lock()
	_, present := conv.subs[q]
	delete(conv.subs, q)
	conv.subsMu.Unlock()
	if present {
		metrics.EventSubscribers.Dec()
	}
}

func (conv *conversation) broadcast(event protocol.Event) {
	conv.subsMu.Lock()
	defer conv.subsMu.Unlock()
	for q := range conv.subs {
		q.Enqueue(event)
	}
}

func (conv *conversation) closeSubscribers() {
	conv.subsMu.Lock()
	defer conv.subsMu.Unlock()
	for q := range conv.subs {
		q.Close()
	}
}

func (conv *conversation) failSubscribers(err error) {
	conv.subsMu.Lock()
	defer conv.subsMu.Unlock()
	for q := range conv.subs {
		q.Fail(err)
	}
}

// close tears the conversation down and waits for the pump to drain, up to
// the given timeout. A pump that does not drain in time is cancelled and
// abandoned.
func (conv *conversation) close(timeout time.Duration) {
	conv.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := conv.session.Close(ctx); err != nil {
			logger.Error("conversation %s close: %v", conv.session.ConversationID(), err)
		}

		select {
		case <-conv.pumpDone:
		case <-time.After(timeout):
			logger.Error("conversation %s: pump did not drain within %v", conv.session.ConversationID(), timeout)
			conv.cancelPump()
			select {
			case <-conv.pumpDone:
			case <-time.After(timeout):
				// The transport is ignoring cancellation too. Abandon the
				// pump and deliver the terminal signal ourselves.
				logger.Error("conversation %s: pump is stuck, abandoning it", conv.session.ConversationID())
				conv.closeSubscribers()
			}
		}
	})
}
