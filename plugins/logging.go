package plugins

import (
	"context"

	"github.com/moofone/codex-go/internal/logger"
	"github.com/moofone/codex-go/protocol"
)

// Logging writes one log line per submission, event and error. Deltas are
// skipped by default because streaming responses produce hundreds of them.
type Logging struct {
	// IncludeDeltas also logs agent_message_delta and agent_reasoning_delta
	IncludeDeltas bool
}

// Name implements the plugin interface
func (p *Logging) Name() string {
	return "logging"
}

// BeforeSubmit logs the outbound operation
func (p *Logging) BeforeSubmit(ctx context.Context, sub *protocol.Submission) error {
	logger.Info("submit %s (%s)", protocol.OpType(sub.Op), sub.ID)
	return nil
}

// AfterEvent logs the inbound message kind
func (p *Logging) AfterEvent(ctx context.Context, event *protocol.Event) {
	msgType := event.Msg.MsgType()
	if !p.IncludeDeltas {
		if msgType == protocol.MsgTypeAgentMessageDelta || msgType == protocol.MsgTypeAgentReasoningDelta {
			return
		}
	}
	logger.Info("event %s (%s)", msgType, event.ID)
}

// OnError logs client failures
func (p *Logging) OnError(ctx context.Context, err error) {
	logger.Error("client error: %v", err)
}
