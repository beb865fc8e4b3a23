// Package codex is a client for long-lived conversations with the codex
// agent runtime.
//
// plugin.go - Plugin pipeline
//
// Plugins observe and shape client traffic. A plugin implements Plugin
// plus any subset of the hook interfaces below; hooks run in registration
// order. A hook failure is logged and skipped so one misbehaving plugin
// cannot take the pipeline down.
package codex

import (
	"context"

	"github.com/moofone/codex-go/internal/logger"
	"github.com/moofone/codex-go/protocol"
)

// Plugin is the base interface every plugin implements
type Plugin interface {
	Name() string
}

// Initializer runs once when the client connects
type Initializer interface {
	Plugin
	Initialize(ctx context.Context, client *Client) error
}

// SubmissionInterceptor sees every submission before it is sent and may
// mutate it in place
type SubmissionInterceptor interface {
	Plugin
	BeforeSubmit(ctx context.Context, sub *protocol.Submission) error
}

// EventInterceptor sees every event after it is decoded, before delivery
// to subscribers
type EventInterceptor interface {
	Plugin
	AfterEvent(ctx context.Context, event *protocol.Event)
}

// ErrorHandler is notified of stream and submission failures
type ErrorHandler interface {
	Plugin
	OnError(ctx context.Context, err error)
}

// initializePlugins runs every Initialize hook in order
func (c *Client) initializePlugins(ctx context.Context) {
	for _, p := range c.plugins {
		init, ok := p.(Initializer)
		if !ok {
			continue
		}
		if err := init.Initialize(ctx, c); err != nil {
			logger.Error("plugin %s initialize failed: %v", p.Name(), err)
		}
	}
}

// applyBeforeSubmit runs every BeforeSubmit hook in order. A failing hook
// is logged and its changes are rolled back, so the envelope that reaches
// the wire is the one the last successful hook produced.
func (c *Client) applyBeforeSubmit(ctx context.Context, sub *protocol.Submission) {
	for _, p := range c.plugins {
		interceptor, ok := p.(SubmissionInterceptor)
		if !ok {
			continue
		}
		prev := *sub
		if err := interceptor.BeforeSubmit(ctx, sub); err != nil {
			*sub = prev
			logger.Error("plugin %s before-submit failed: %v", p.Name(), err)
		}
	}
}

// applyAfterEvent runs every AfterEvent hook in order
func (c *Client) applyAfterEvent(ctx context.Context, event *protocol.Event) {
	for _, p := range c.plugins {
		interceptor, ok := p.(EventInterceptor)
		if !ok {
			continue
		}
		interceptor.AfterEvent(ctx, event)
	}
}

// notifyError runs every OnError hook in order, then any registered error
// callbacks
func (c *Client) notifyError(ctx context.Context, err error) {
	for _, p := range c.plugins {
		handler, ok := p.(ErrorHandler)
		if !ok {
			continue
		}
		handler.OnError(ctx, err)
	}

	c.handlersMu.RLock()
	fns := c.errorFns
	c.handlersMu.RUnlock()
	for _, fn := range fns {
		fn(ctx, err)
	}
}
