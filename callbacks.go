// Package codex is a client for long-lived conversations with the codex
// agent runtime.
//
// callbacks.go - Typed notification callbacks
//
// Callbacks are the push-style counterpart to the Events iterator: each
// registration binds a function to one message tag, and the pump invokes
// the bound functions in registration order as events arrive. Lifecycle
// callbacks (connected, error, stream closed) fire on client transitions
// rather than wire messages.
package codex

import (
	"context"

	"github.com/moofone/codex-go/protocol"
)

// onMsg binds a handler to one wire tag
func (c *Client) onMsg(tag string, fn func(context.Context, protocol.EventMsg)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	if c.msgHandlers == nil {
		c.msgHandlers = make(map[string][]func(context.Context, protocol.EventMsg))
	}
	c.msgHandlers[tag] = append(c.msgHandlers[tag], fn)
}

// onTyped adapts a typed handler to the tag registry
func onTyped[T protocol.EventMsg](c *Client, tag string, fn func(context.Context, T)) {
	c.onMsg(tag, func(ctx context.Context, msg protocol.EventMsg) {
		if m, ok := msg.(T); ok {
			fn(ctx, m)
		}
	})
}

// OnConnected registers a callback invoked each time Connect succeeds
func (c *Client) OnConnected(fn func(context.Context)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.connectedFns = append(c.connectedFns, fn)
}

// OnError registers a callback for stream and submission failures. It is
// invoked alongside plugin ErrorHandler hooks.
func (c *Client) OnError(fn func(context.Context, error)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.errorFns = append(c.errorFns, fn)
}

// OnStreamClosed registers a callback invoked once per conversation when
// its event stream ends, cleanly or not
func (c *Client) OnStreamClosed(fn func(context.Context)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.closedFns = append(c.closedFns, fn)
}

// OnSessionConfigured registers a callback for session confirmation
func (c *Client) OnSessionConfigured(fn func(context.Context, protocol.SessionConfiguredMsg)) {
	onTyped(c, protocol.MsgTypeSessionConfigured, fn)
}

// OnExecApprovalRequest registers a callback for command approval requests
func (c *Client) OnExecApprovalRequest(fn func(context.Context, protocol.ExecApprovalRequestMsg)) {
	onTyped(c, protocol.MsgTypeExecApprovalRequest, fn)
}

// OnPatchApprovalRequest registers a callback for patch approval requests
func (c *Client) OnPatchApprovalRequest(fn func(context.Context, protocol.ApplyPatchApprovalRequestMsg)) {
	onTyped(c, protocol.MsgTypeApplyPatchApproval, fn)
}

// OnBackgroundEvent registers a callback for informational notifications
func (c *Client) OnBackgroundEvent(fn func(context.Context, protocol.BackgroundEventMsg)) {
	onTyped(c, protocol.MsgTypeBackgroundEvent, fn)
}

// OnTokenCount registers a callback for token usage reports
func (c *Client) OnTokenCount(fn func(context.Context, protocol.TokenCountMsg)) {
	onTyped(c, protocol.MsgTypeTokenCount, fn)
}

// OnTurnContext registers a callback for turn context acknowledgements
func (c *Client) OnTurnContext(fn func(context.Context, protocol.TurnContextMsg)) {
	onTyped(c, protocol.MsgTypeTurnContext, fn)
}

// OnConversationPath registers a callback for get_path answers
func (c *Client) OnConversationPath(fn func(context.Context, protocol.ConversationPathMsg)) {
	onTyped(c, protocol.MsgTypeConversationPath, fn)
}

// OnShutdownComplete registers a callback for shutdown acknowledgements
func (c *Client) OnShutdownComplete(fn func(context.Context, protocol.ShutdownCompleteMsg)) {
	onTyped(c, protocol.MsgTypeShutdownComplete, fn)
}

// OnHistoryEntryResponse registers a callback for history lookups
func (c *Client) OnHistoryEntryResponse(fn func(context.Context, protocol.GetHistoryEntryResponseMsg)) {
	onTyped(c, protocol.MsgTypeGetHistoryEntryResponse, fn)
}

// OnMcpToolsResponse registers a callback for MCP tool listings
func (c *Client) OnMcpToolsResponse(fn func(context.Context, protocol.McpListToolsResponseMsg)) {
	onTyped(c, protocol.MsgTypeMcpListToolsResponse, fn)
}

// OnCustomPromptsResponse registers a callback for custom prompt listings
func (c *Client) OnCustomPromptsResponse(fn func(context.Context, protocol.ListCustomPromptsResponseMsg)) {
	onTyped(c, protocol.MsgTypeListCustomPromptsResponse, fn)
}

// OnEnteredReviewMode registers a callback for review start markers
func (c *Client) OnEnteredReviewMode(fn func(context.Context, protocol.EnteredReviewModeMsg)) {
	onTyped(c, protocol.MsgTypeEnteredReviewMode, fn)
}

// OnExitedReviewMode registers a callback for review end markers
func (c *Client) OnExitedReviewMode(fn func(context.Context, protocol.ExitedReviewModeMsg)) {
	onTyped(c, protocol.MsgTypeExitedReviewMode, fn)
}

func (c *Client) notifyConnected(ctx context.Context) {
	c.handlersMu.RLock()
	fns := c.connectedFns
	c.handlersMu.RUnlock()
	for _, fn := range fns {
		fn(ctx)
	}
}

func (c *Client) notifyStreamClosed(ctx context.Context) {
	c.handlersMu.RLock()
	fns := c.closedFns
	c.handlersMu.RUnlock()
	for _, fn := range fns {
		fn(ctx)
	}
}
