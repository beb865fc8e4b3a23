// Package codex is a client for long-lived conversations with the codex
// agent runtime.
//
// options.go - Client configuration
package codex

import (
	"time"

	"github.com/moofone/codex-go/internal/retry"
	"github.com/moofone/codex-go/transport"
)

// DefaultCloseTimeout bounds how long Close waits for the event pump to
// drain before giving up on it
const DefaultCloseTimeout = 5 * time.Second

// ClientOptions configures a Client. The zero value is usable: it runs the
// codex binary from PATH with the default retry policy.
type ClientOptions struct {
	// Transport reaches the agent runtime. Defaults to a subprocess
	// transport running "codex proto".
	Transport transport.Transport

	// CodexHome overrides codex home discovery ($CODEX_HOME, ~/.codex)
	CodexHome string

	// RetryPolicy governs connection attempts. Nil means the default
	// policy: 3 retries with exponential backoff.
	RetryPolicy *retry.Policy

	// CloseTimeout bounds the pump drain during Close. Zero means
	// DefaultCloseTimeout.
	CloseTimeout time.Duration

	// Plugins run in the given order on every hook
	Plugins []Plugin

	// LogDir enables file logging when set
	LogDir string
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.CloseTimeout <= 0 {
		o.CloseTimeout = DefaultCloseTimeout
	}
	if o.RetryPolicy == nil {
		p := retry.DefaultPolicy()
		o.RetryPolicy = &p
	}
	return o
}

// ConversationOptions configures one conversation. Zero values defer to
// the runtime's own defaults.
type ConversationOptions struct {
	// Model is a model ID or registry shorthand
	Model string
	// Effort overrides the model's default reasoning effort
	Effort string
	// SandboxMode is "read-only", "workspace-write" or "danger-full-access"
	SandboxMode string
	// ApprovalPolicy is "untrusted", "on-failure", "on-request" or "never"
	ApprovalPolicy string
	// Overrides are passed to the runtime verbatim and win over the
	// fields above on key collision
	Overrides map[string]string
}
