// Package transport abstracts how the client reaches the codex agent
// runtime. Implementations own the process or container running the agent
// and expose a minimal pull-based wire surface: submit one JSON payload,
// pull the next JSON event, close.
package transport

import "context"

// ConversationOptions configures a new conversation
type ConversationOptions struct {
	// Overrides are config key/value pairs applied to this conversation
	// (for example "model" or "sandbox_mode"). Values are passed through
	// verbatim; the runtime parses them.
	Overrides map[string]string
}

// Transport creates conversations with the agent runtime
type Transport interface {
	// CreateConversation starts a new conversation and returns its session
	CreateConversation(ctx context.Context, opts ConversationOptions) (Session, error)

	// Close releases resources shared across conversations
	Close(ctx context.Context) error
}

// Session is one live conversation with the agent runtime.
//
// Submit does not serialize concurrent callers; whether overlapping
// submissions preserve wire order is the implementation's contract, not
// the client's.
type Session interface {
	// ConversationID returns the stable identifier for this conversation
	ConversationID() string

	// Submit sends one serialized submission envelope
	Submit(ctx context.Context, payload []byte) error

	// NextEvent returns the next serialized event envelope. A (nil, nil)
	// return marks a clean end of stream.
	NextEvent(ctx context.Context) ([]byte, error)

	// Close tears the conversation down
	Close(ctx context.Context) error
}
