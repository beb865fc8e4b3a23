// Package protocol defines the wire contract with the codex agent runtime.
//
// builder.go - Pure constructors for submission envelopes
//
// One function per operation kind. Inputs are caller parameters plus a
// request id; the output is exactly one envelope. No I/O, no retained
// state. Shape errors here silently break the remote protocol, so the
// builders are covered exhaustively by tests.
package protocol

import "github.com/google/uuid"

// Default turn parameters applied when the caller provides none
const (
	DefaultModel   = "gpt-5-codex"
	DefaultSummary = SummaryAuto
)

// NewSubmissionID returns a fresh request id
func NewSubmissionID() string {
	return uuid.NewString()
}

// ApprovalValue maps a caller-facing approval verdict to its wire decision.
// Anything other than "approve" is treated as a rejection.
func ApprovalValue(approve bool) ReviewDecision {
	if approve {
		return DecisionApproved
	}
	return DecisionDenied
}

// UserTurnParams carries the caller-facing options for a turn submission.
// Zero values mean "use the default".
type UserTurnParams struct {
	Items          []InputItem
	Cwd            string
	ApprovalPolicy ApprovalPolicy
	SandboxPolicy  *SandboxPolicy
	Model          string
	Effort         Effort
	Summary        Summary
}

// BuildUserInput constructs a user_input submission
func BuildUserInput(id string, items []InputItem) Submission {
	return Submission{ID: id, Op: UserInputOp{Type: OpTypeUserInput, Items: items}}
}

// BuildUserTurn constructs a user_turn submission, filling unset options
// with the protocol defaults
func BuildUserTurn(id string, params UserTurnParams) Submission {
	op := UserTurnOp{
		Type:           OpTypeUserTurn,
		Items:          params.Items,
		Cwd:            params.Cwd,
		ApprovalPolicy: params.ApprovalPolicy,
		Model:          params.Model,
		Effort:         params.Effort,
		Summary:        params.Summary,
	}
	if op.ApprovalPolicy == "" {
		op.ApprovalPolicy = ApprovalOnRequest
	}
	if params.SandboxPolicy != nil {
		op.SandboxPolicy = *params.SandboxPolicy
	} else {
		op.SandboxPolicy = WorkspaceWriteSandbox()
	}
	if op.Model == "" {
		op.Model = DefaultModel
	}
	if op.Summary == "" {
		op.Summary = DefaultSummary
	}
	return Submission{ID: id, Op: op}
}

// BuildInterrupt constructs an interrupt submission
func BuildInterrupt(id string) Submission {
	return Submission{ID: id, Op: InterruptOp{Type: OpTypeInterrupt}}
}

// BuildExecApproval constructs an exec_approval submission
func BuildExecApproval(id, requestID string, decision ReviewDecision) Submission {
	return Submission{ID: id, Op: ExecApprovalOp{Type: OpTypeExecApproval, ID: requestID, Decision: decision}}
}

// BuildPatchApproval constructs a patch_approval submission
func BuildPatchApproval(id, requestID string, decision ReviewDecision) Submission {
	return Submission{ID: id, Op: PatchApprovalOp{Type: OpTypePatchApproval, ID: requestID, Decision: decision}}
}

// TurnContextOverrides carries the optional fields of an
// override_turn_context submission. Nil fields are omitted from the wire
// so the runtime keeps its current value.
type TurnContextOverrides struct {
	Cwd            *string
	ApprovalPolicy *ApprovalPolicy
	SandboxPolicy  *SandboxPolicy
	Model          *string
	Effort         *Effort
	Summary        *Summary
}

// BuildOverrideTurnContext constructs an override_turn_context submission
func BuildOverrideTurnContext(id string, overrides TurnContextOverrides) Submission {
	return Submission{ID: id, Op: OverrideTurnContextOp{
		Type:           OpTypeOverrideTurnContext,
		Cwd:            overrides.Cwd,
		ApprovalPolicy: overrides.ApprovalPolicy,
		SandboxPolicy:  overrides.SandboxPolicy,
		Model:          overrides.Model,
		Effort:         overrides.Effort,
		Summary:        overrides.Summary,
	}}
}

// BuildAddToHistory constructs an add_to_history submission
func BuildAddToHistory(id, text string) Submission {
	return Submission{ID: id, Op: AddToHistoryOp{Type: OpTypeAddToHistory, Text: text}}
}

// BuildGetHistoryEntryRequest constructs a get_history_entry_request submission
func BuildGetHistoryEntryRequest(id string, offset int, logID uint64) Submission {
	return Submission{ID: id, Op: GetHistoryEntryRequestOp{Type: OpTypeGetHistoryEntryRequest, Offset: offset, LogID: logID}}
}

// BuildGetPath constructs a get_path submission
func BuildGetPath(id string) Submission {
	return Submission{ID: id, Op: GetPathOp{Type: OpTypeGetPath}}
}

// BuildListMcpTools constructs a list_mcp_tools submission
func BuildListMcpTools(id string) Submission {
	return Submission{ID: id, Op: ListMcpToolsOp{Type: OpTypeListMcpTools}}
}

// BuildListCustomPrompts constructs a list_custom_prompts submission
func BuildListCustomPrompts(id string) Submission {
	return Submission{ID: id, Op: ListCustomPromptsOp{Type: OpTypeListCustomPrompts}}
}

// BuildCompact constructs a compact submission
func BuildCompact(id string) Submission {
	return Submission{ID: id, Op: CompactOp{Type: OpTypeCompact}}
}

// BuildReview constructs a review submission
func BuildReview(id string, request ReviewRequest) Submission {
	return Submission{ID: id, Op: ReviewOp{Type: OpTypeReview, ReviewRequest: request}}
}

// BuildShutdown constructs a shutdown submission
func BuildShutdown(id string) Submission {
	return Submission{ID: id, Op: ShutdownOp{Type: OpTypeShutdown}}
}

// BuildStatus constructs a status submission
func BuildStatus(id string) Submission {
	return Submission{ID: id, Op: StatusOp{Type: OpTypeStatus}}
}

// OpType returns the wire tag for an op, used for metrics labels
func OpType(op Op) string {
	switch op.(type) {
	case UserInputOp:
		return OpTypeUserInput
	case UserTurnOp:
		return OpTypeUserTurn
	case InterruptOp:
		return OpTypeInterrupt
	case ExecApprovalOp:
		return OpTypeExecApproval
	case PatchApprovalOp:
		return OpTypePatchApproval
	case OverrideTurnContextOp:
		return OpTypeOverrideTurnContext
	case AddToHistoryOp:
		return OpTypeAddToHistory
	case GetHistoryEntryRequestOp:
		return OpTypeGetHistoryEntryRequest
	case GetPathOp:
		return OpTypeGetPath
	case ListMcpToolsOp:
		return OpTypeListMcpTools
	case ListCustomPromptsOp:
		return OpTypeListCustomPrompts
	case CompactOp:
		return OpTypeCompact
	case ReviewOp:
		return OpTypeReview
	case ShutdownOp:
		return OpTypeShutdown
	case StatusOp:
		return OpTypeStatus
	default:
		return "unknown"
	}
}
