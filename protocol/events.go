// Package protocol defines the wire contract with the codex agent runtime.
//
// events.go - Inbound event envelope and its message variants
//
// An event is {id, msg} where msg is a closed tagged union. ParseEvent
// decodes a payload once per pump iteration; unrecognized tags decode into
// UnknownMsg so protocol additions never break the stream.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Event is one inbound runtime notification
type Event struct {
	ID  string
	Msg EventMsg
}

// EventMsg is the closed union of inbound message kinds
type EventMsg interface {
	// MsgType returns the wire tag
	MsgType() string
}

// Event message type tags
const (
	MsgTypeSessionConfigured        = "session_configured"
	MsgTypeTaskStarted              = "task_started"
	MsgTypeTaskComplete             = "task_complete"
	MsgTypeAgentMessage             = "agent_message"
	MsgTypeAgentMessageDelta        = "agent_message_delta"
	MsgTypeAgentReasoning           = "agent_reasoning"
	MsgTypeAgentReasoningDelta      = "agent_reasoning_delta"
	MsgTypeTokenCount               = "token_count"
	MsgTypeExecApprovalRequest      = "exec_approval_request"
	MsgTypeApplyPatchApproval       = "apply_patch_approval_request"
	MsgTypeBackgroundEvent          = "background_event"
	MsgTypeTurnContext              = "turn_context"
	MsgTypeConversationPath         = "conversation_path"
	MsgTypeShutdownComplete         = "shutdown_complete"
	MsgTypeGetHistoryEntryResponse  = "get_history_entry_response"
	MsgTypeMcpListToolsResponse     = "mcp_list_tools_response"
	MsgTypeListCustomPromptsResponse = "list_custom_prompts_response"
	MsgTypeEnteredReviewMode        = "entered_review_mode"
	MsgTypeExitedReviewMode         = "exited_review_mode"
	MsgTypeStreamError              = "stream_error"
	MsgTypeError                    = "error"
)

// SessionConfiguredMsg confirms a conversation is ready
type SessionConfiguredMsg struct {
	SessionID         string `json:"session_id"`
	Model             string `json:"model"`
	HistoryLogID      uint64 `json:"history_log_id"`
	HistoryEntryCount int    `json:"history_entry_count"`
	RolloutPath       string `json:"rollout_path,omitempty"`
}

// TaskStartedMsg marks the start of a turn
type TaskStartedMsg struct {
	ModelContextWindow *uint64 `json:"model_context_window,omitempty"`
}

// TaskCompleteMsg marks the end of a turn
type TaskCompleteMsg struct {
	LastAgentMessage string `json:"last_agent_message,omitempty"`
}

// AgentMessageMsg carries a complete assistant message
type AgentMessageMsg struct {
	Message string `json:"message"`
}

// AgentMessageDeltaMsg carries an incremental assistant text fragment
type AgentMessageDeltaMsg struct {
	Delta string `json:"delta"`
}

// AgentReasoningMsg carries a complete reasoning summary
type AgentReasoningMsg struct {
	Text string `json:"text"`
}

// AgentReasoningDeltaMsg carries an incremental reasoning fragment
type AgentReasoningDeltaMsg struct {
	Delta string `json:"delta"`
}

// TokenUsage is the token accounting reported by the runtime
type TokenUsage struct {
	InputTokens           int64 `json:"input_tokens"`
	CachedInputTokens     int64 `json:"cached_input_tokens"`
	OutputTokens          int64 `json:"output_tokens"`
	ReasoningOutputTokens int64 `json:"reasoning_output_tokens"`
	TotalTokens           int64 `json:"total_tokens"`
}

// TokenCountMsg reports cumulative and last-turn token usage
type TokenCountMsg struct {
	Info *TokenCountInfo `json:"info,omitempty"`
}

// TokenCountInfo breaks token usage down by scope
type TokenCountInfo struct {
	TotalTokenUsage    TokenUsage `json:"total_token_usage"`
	LastTokenUsage     TokenUsage `json:"last_token_usage"`
	ModelContextWindow *uint64    `json:"model_context_window,omitempty"`
}

// ExecApprovalRequestMsg asks the caller to approve a command execution
type ExecApprovalRequestMsg struct {
	CallID  string   `json:"call_id"`
	Command []string `json:"command"`
	Cwd     string   `json:"cwd"`
	Reason  string   `json:"reason,omitempty"`
}

// ApplyPatchApprovalRequestMsg asks the caller to approve a patch
type ApplyPatchApprovalRequestMsg struct {
	CallID    string                     `json:"call_id"`
	Changes   map[string]json.RawMessage `json:"changes"`
	Reason    string                     `json:"reason,omitempty"`
	GrantRoot string                     `json:"grant_root,omitempty"`
}

// BackgroundEventMsg carries an informational runtime notification
type BackgroundEventMsg struct {
	Message string `json:"message"`
}

// TurnContextMsg acknowledges the effective turn context
type TurnContextMsg struct {
	Cwd            string         `json:"cwd"`
	ApprovalPolicy ApprovalPolicy `json:"approval_policy"`
	SandboxPolicy  SandboxPolicy  `json:"sandbox_policy"`
	Model          string         `json:"model"`
	Effort         Effort         `json:"effort,omitempty"`
	Summary        Summary        `json:"summary"`
}

// ConversationPathMsg answers a get_path submission
type ConversationPathMsg struct {
	ConversationID string `json:"conversation_id"`
	Path           string `json:"path"`
}

// ShutdownCompleteMsg acknowledges a shutdown submission
type ShutdownCompleteMsg struct{}

// HistoryEntry is one persisted history line
type HistoryEntry struct {
	ConversationID string `json:"conversation_id"`
	Ts             uint64 `json:"ts"`
	Text           string `json:"text"`
}

// GetHistoryEntryResponseMsg answers a get_history_entry_request submission
type GetHistoryEntryResponseMsg struct {
	Offset int           `json:"offset"`
	LogID  uint64        `json:"log_id"`
	Entry  *HistoryEntry `json:"entry,omitempty"`
}

// McpListToolsResponseMsg answers a list_mcp_tools submission. Tools are
// keyed by their fully qualified name and decode into MCP SDK tool values.
type McpListToolsResponseMsg struct {
	Tools map[string]mcp.Tool `json:"tools"`
}

// CustomPrompt is one user-defined prompt known to the runtime
type CustomPrompt struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ListCustomPromptsResponseMsg answers a list_custom_prompts submission
type ListCustomPromptsResponseMsg struct {
	CustomPrompts []CustomPrompt `json:"custom_prompts"`
}

// EnteredReviewModeMsg marks the start of a review
type EnteredReviewModeMsg struct {
	Prompt         string `json:"prompt,omitempty"`
	UserFacingHint string `json:"user_facing_hint,omitempty"`
}

// ExitedReviewModeMsg marks the end of a review
type ExitedReviewModeMsg struct {
	ReviewOutput json.RawMessage `json:"review_output,omitempty"`
}

// StreamErrorMsg reports a recoverable stream interruption
type StreamErrorMsg struct {
	Message string `json:"message"`
}

// ErrorMsg reports a fatal task error
type ErrorMsg struct {
	Message string `json:"message"`
}

// UnknownMsg preserves messages with tags this client does not know.
// Routing treats it as a no-op, which keeps the stream forward compatible.
type UnknownMsg struct {
	Type string
	Raw  json.RawMessage
}

func (SessionConfiguredMsg) MsgType() string         { return MsgTypeSessionConfigured }
func (TaskStartedMsg) MsgType() string               { return MsgTypeTaskStarted }
func (TaskCompleteMsg) MsgType() string              { return MsgTypeTaskComplete }
func (AgentMessageMsg) MsgType() string              { return MsgTypeAgentMessage }
func (AgentMessageDeltaMsg) MsgType() string         { return MsgTypeAgentMessageDelta }
func (AgentReasoningMsg) MsgType() string            { return MsgTypeAgentReasoning }
func (AgentReasoningDeltaMsg) MsgType() string       { return MsgTypeAgentReasoningDelta }
func (TokenCountMsg) MsgType() string                { return MsgTypeTokenCount }
func (ExecApprovalRequestMsg) MsgType() string       { return MsgTypeExecApprovalRequest }
func (ApplyPatchApprovalRequestMsg) MsgType() string { return MsgTypeApplyPatchApproval }
func (BackgroundEventMsg) MsgType() string           { return MsgTypeBackgroundEvent }
func (TurnContextMsg) MsgType() string               { return MsgTypeTurnContext }
func (ConversationPathMsg) MsgType() string          { return MsgTypeConversationPath }
func (ShutdownCompleteMsg) MsgType() string          { return MsgTypeShutdownComplete }
func (GetHistoryEntryResponseMsg) MsgType() string   { return MsgTypeGetHistoryEntryResponse }
func (McpListToolsResponseMsg) MsgType() string      { return MsgTypeMcpListToolsResponse }
func (ListCustomPromptsResponseMsg) MsgType() string { return MsgTypeListCustomPromptsResponse }
func (EnteredReviewModeMsg) MsgType() string         { return MsgTypeEnteredReviewMode }
func (ExitedReviewModeMsg) MsgType() string          { return MsgTypeExitedReviewMode }
func (StreamErrorMsg) MsgType() string               { return MsgTypeStreamError }
func (ErrorMsg) MsgType() string                     { return MsgTypeError }
func (m UnknownMsg) MsgType() string                 { return m.Type }

// ParseEvent decodes one inbound payload into its typed form
func ParseEvent(payload []byte) (*Event, error) {
	var envelope struct {
		ID  string          `json:"id"`
		Msg json.RawMessage `json:"msg"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("malformed event envelope: %w", err)
	}
	if len(envelope.Msg) == 0 {
		return nil, fmt.Errorf("event %q has no msg", envelope.ID)
	}

	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(envelope.Msg, &tag); err != nil {
		return nil, fmt.Errorf("malformed event msg: %w", err)
	}
	if tag.Type == "" {
		return nil, fmt.Errorf("event %q msg has no type tag", envelope.ID)
	}

	msg, err := decodeMsg(tag.Type, envelope.Msg)
	if err != nil {
		return nil, err
	}
	return &Event{ID: envelope.ID, Msg: msg}, nil
}

func decodeMsg(tag string, raw json.RawMessage) (EventMsg, error) {
	unmarshal := func(dst any) error {
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("malformed %s msg: %w", tag, err)
		}
		return nil
	}

	switch tag {
	case MsgTypeSessionConfigured:
		var m SessionConfiguredMsg
		return m, unmarshal(&m)
	case MsgTypeTaskStarted:
		var m TaskStartedMsg
		return m, unmarshal(&m)
	case MsgTypeTaskComplete:
		var m TaskCompleteMsg
		return m, unmarshal(&m)
	case MsgTypeAgentMessage:
		var m AgentMessageMsg
		return m, unmarshal(&m)
	case MsgTypeAgentMessageDelta:
		var m AgentMessageDeltaMsg
		return m, unmarshal(&m)
	case MsgTypeAgentReasoning:
		var m AgentReasoningMsg
		return m, unmarshal(&m)
	case MsgTypeAgentReasoningDelta:
		var m AgentReasoningDeltaMsg
		return m, unmarshal(&m)
	case MsgTypeTokenCount:
		var m TokenCountMsg
		return m, unmarshal(&m)
	case MsgTypeExecApprovalRequest:
		var m ExecApprovalRequestMsg
		return m, unmarshal(&m)
	case MsgTypeApplyPatchApproval:
		var m ApplyPatchApprovalRequestMsg
		return m, unmarshal(&m)
	case MsgTypeBackgroundEvent:
		var m BackgroundEventMsg
		return m, unmarshal(&m)
	case MsgTypeTurnContext:
		var m TurnContextMsg
		return m, unmarshal(&m)
	case MsgTypeConversationPath:
		var m ConversationPathMsg
		return m, unmarshal(&m)
	case MsgTypeShutdownComplete:
		return ShutdownCompleteMsg{}, nil
	case MsgTypeGetHistoryEntryResponse:
		var m GetHistoryEntryResponseMsg
		return m, unmarshal(&m)
	case MsgTypeMcpListToolsResponse:
		var m McpListToolsResponseMsg
		return m, unmarshal(&m)
	case MsgTypeListCustomPromptsResponse:
		var m ListCustomPromptsResponseMsg
		return m, unmarshal(&m)
	case MsgTypeEnteredReviewMode:
		var m EnteredReviewModeMsg
		return m, unmarshal(&m)
	case MsgTypeExitedReviewMode:
		var m ExitedReviewModeMsg
		return m, unmarshal(&m)
	case MsgTypeStreamError:
		var m StreamErrorMsg
		return m, unmarshal(&m)
	case MsgTypeError:
		var m ErrorMsg
		return m, unmarshal(&m)
	default:
		return UnknownMsg{Type: tag, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}
