// Package protocol defines the wire contract with the codex agent runtime.
//
// submission.go - Outbound submission envelope and its operation variants
//
// A submission is {id, op} where op is a closed tagged union. Wire field
// names use the runtime's snake_case convention; optional fields are
// omitted rather than sent as null so the runtime's own defaults apply
// when a caller leaves them unset.
package protocol

// Submission is one outbound client request
type Submission struct {
	ID string `json:"id"`
	Op Op     `json:"op"`
}

// Op is the closed union of submission operations. Concrete variants carry
// their own "type" tag; construct them through the builder functions so the
// tag and defaults are always consistent.
type Op interface {
	isOp()
}

// Operation type tags
const (
	OpTypeUserInput              = "user_input"
	OpTypeUserTurn               = "user_turn"
	OpTypeInterrupt              = "interrupt"
	OpTypeExecApproval           = "exec_approval"
	OpTypePatchApproval          = "patch_approval"
	OpTypeOverrideTurnContext    = "override_turn_context"
	OpTypeAddToHistory           = "add_to_history"
	OpTypeGetHistoryEntryRequest = "get_history_entry_request"
	OpTypeGetPath                = "get_path"
	OpTypeListMcpTools           = "list_mcp_tools"
	OpTypeListCustomPrompts      = "list_custom_prompts"
	OpTypeCompact                = "compact"
	OpTypeReview                 = "review"
	OpTypeShutdown               = "shutdown"
	OpTypeStatus                 = "status"
)

// InputItem is one element of a user message
type InputItem struct {
	Type string `json:"type"` // "text", "image" or "local_image"
	Text string `json:"text,omitempty"`
	// ImageURL carries a pre-encoded data URL for "image" items
	ImageURL string `json:"image_url,omitempty"`
	// Path references an image on disk for "local_image" items
	Path string `json:"path,omitempty"`
}

// TextInput returns a text input item
func TextInput(text string) InputItem {
	return InputItem{Type: "text", Text: text}
}

// ApprovalPolicy controls when the runtime asks before executing commands
type ApprovalPolicy string

const (
	ApprovalUntrusted ApprovalPolicy = "untrusted"
	ApprovalOnFailure ApprovalPolicy = "on-failure"
	ApprovalOnRequest ApprovalPolicy = "on-request"
	ApprovalNever     ApprovalPolicy = "never"
)

// SandboxPolicy describes the execution sandbox for a turn
type SandboxPolicy struct {
	Mode          string   `json:"mode"` // "read-only", "workspace-write", "danger-full-access"
	NetworkAccess bool     `json:"network_access,omitempty"`
	WritableRoots []string `json:"writable_roots,omitempty"`
}

// WorkspaceWriteSandbox returns the default sandbox policy
func WorkspaceWriteSandbox() SandboxPolicy {
	return SandboxPolicy{Mode: "workspace-write"}
}

// Effort is the reasoning effort requested from the model
type Effort string

const (
	EffortMinimal Effort = "minimal"
	EffortLow     Effort = "low"
	EffortMedium  Effort = "medium"
	EffortHigh    Effort = "high"
)

// Summary controls reasoning summary emission
type Summary string

const (
	SummaryAuto     Summary = "auto"
	SummaryConcise  Summary = "concise"
	SummaryDetailed Summary = "detailed"
	SummaryNone     Summary = "none"
)

// ReviewDecision is the wire form of an approval response
type ReviewDecision string

const (
	DecisionApproved           ReviewDecision = "approved"
	DecisionApprovedForSession ReviewDecision = "approved_for_session"
	DecisionDenied             ReviewDecision = "denied"
	DecisionAbort              ReviewDecision = "abort"
)

// ReviewRequest asks the runtime to enter review mode
type ReviewRequest struct {
	Prompt         string `json:"prompt"`
	UserFacingHint string `json:"user_facing_hint"`
}

// UserInputOp appends user input to the current task
type UserInputOp struct {
	Type  string      `json:"type"`
	Items []InputItem `json:"items"`
}

// UserTurnOp starts a turn with full per-turn context
type UserTurnOp struct {
	Type           string         `json:"type"`
	Items          []InputItem    `json:"items"`
	Cwd            string         `json:"cwd"`
	ApprovalPolicy ApprovalPolicy `json:"approval_policy"`
	SandboxPolicy  SandboxPolicy  `json:"sandbox_policy"`
	Model          string         `json:"model"`
	Effort         Effort         `json:"effort,omitempty"`
	Summary        Summary        `json:"summary"`
}

// InterruptOp aborts the in-flight task
type InterruptOp struct {
	Type string `json:"type"`
}

// ExecApprovalOp answers an exec approval request
type ExecApprovalOp struct {
	Type     string         `json:"type"`
	ID       string         `json:"id"`
	Decision ReviewDecision `json:"decision"`
}

// PatchApprovalOp answers an apply-patch approval request
type PatchApprovalOp struct {
	Type     string         `json:"type"`
	ID       string         `json:"id"`
	Decision ReviewDecision `json:"decision"`
}

// OverrideTurnContextOp updates the persistent turn context. Every field is
// optional; omitted fields keep their current value on the runtime side.
type OverrideTurnContextOp struct {
	Type           string          `json:"type"`
	Cwd            *string         `json:"cwd,omitempty"`
	ApprovalPolicy *ApprovalPolicy `json:"approval_policy,omitempty"`
	SandboxPolicy  *SandboxPolicy  `json:"sandbox_policy,omitempty"`
	Model          *string         `json:"model,omitempty"`
	Effort         *Effort         `json:"effort,omitempty"`
	Summary        *Summary        `json:"summary,omitempty"`
}

// AddToHistoryOp appends an entry to cross-session message history
type AddToHistoryOp struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// GetHistoryEntryRequestOp requests one history entry by offset
type GetHistoryEntryRequestOp struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	LogID  uint64 `json:"log_id"`
}

// GetPathOp requests the conversation rollout path
type GetPathOp struct {
	Type string `json:"type"`
}

// ListMcpToolsOp requests the set of MCP tools available to the runtime
type ListMcpToolsOp struct {
	Type string `json:"type"`
}

// ListCustomPromptsOp requests the set of custom prompts
type ListCustomPromptsOp struct {
	Type string `json:"type"`
}

// CompactOp asks the runtime to summarize and compact the conversation
type CompactOp struct {
	Type string `json:"type"`
}

// ReviewOp asks the runtime to enter review mode
type ReviewOp struct {
	Type          string        `json:"type"`
	ReviewRequest ReviewRequest `json:"review_request"`
}

// ShutdownOp requests a graceful runtime shutdown
type ShutdownOp struct {
	Type string `json:"type"`
}

// StatusOp requests current session status
type StatusOp struct {
	Type string `json:"type"`
}

func (UserInputOp) isOp()              {}
func (UserTurnOp) isOp()               {}
func (InterruptOp) isOp()              {}
func (ExecApprovalOp) isOp()           {}
func (PatchApprovalOp) isOp()          {}
func (OverrideTurnContextOp) isOp()    {}
func (AddToHistoryOp) isOp()           {}
func (GetHistoryEntryRequestOp) isOp() {}
func (GetPathOp) isOp()                {}
func (ListMcpToolsOp) isOp()           {}
func (ListCustomPromptsOp) isOp()      {}
func (CompactOp) isOp()                {}
func (ReviewOp) isOp()                 {}
func (ShutdownOp) isOp()               {}
func (StatusOp) isOp()                 {}
