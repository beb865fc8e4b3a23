package protocol

import (
	"testing"
)

func TestParseEvent_SessionConfigured(t *testing.T) {
	payload := []byte(`{"id":"ev-1","msg":{"type":"session_configured","session_id":"conv-9","model":"gpt-5-codex","history_log_id":7,"history_entry_count":2,"rollout_path":"/tmp/rollout.jsonl"}}`)

	event, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if event.ID != "ev-1" {
		t.Errorf("ID = %v, want ev-1", event.ID)
	}

	msg, ok := event.Msg.(SessionConfiguredMsg)
	if !ok {
		t.Fatalf("Msg type = %T, want SessionConfiguredMsg", event.Msg)
	}
	if msg.SessionID != "conv-9" || msg.Model != "gpt-5-codex" {
		t.Errorf("msg = %+v, want session conv-9 on gpt-5-codex", msg)
	}
	if msg.HistoryLogID != 7 || msg.HistoryEntryCount != 2 {
		t.Errorf("history fields = (%v, %v), want (7, 2)", msg.HistoryLogID, msg.HistoryEntryCount)
	}
}

func TestParseEvent_Variants(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantType string
	}{
		{"agent message delta", `{"id":"e","msg":{"type":"agent_message_delta","delta":"hel"}}`, MsgTypeAgentMessageDelta},
		{"task complete", `{"id":"e","msg":{"type":"task_complete","last_agent_message":"done"}}`, MsgTypeTaskComplete},
		{"exec approval request", `{"id":"e","msg":{"type":"exec_approval_request","call_id":"c1","command":["rm","-rf"],"cwd":"/w"}}`, MsgTypeExecApprovalRequest},
		{"token count", `{"id":"e","msg":{"type":"token_count","info":{"total_token_usage":{"total_tokens":12},"last_token_usage":{"total_tokens":4}}}}`, MsgTypeTokenCount},
		{"shutdown complete", `{"id":"e","msg":{"type":"shutdown_complete"}}`, MsgTypeShutdownComplete},
		{"stream error", `{"id":"e","msg":{"type":"stream_error","message":"hiccup"}}`, MsgTypeStreamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseEvent([]byte(tt.payload))
			if err != nil {
				t.Fatalf("ParseEvent() error = %v", err)
			}
			if got := event.Msg.MsgType(); got != tt.wantType {
				t.Errorf("MsgType() = %v, want %v", got, tt.wantType)
			}
		})
	}
}

func TestParseEvent_TokenCountFields(t *testing.T) {
	payload := []byte(`{"id":"e","msg":{"type":"token_count","info":{"total_token_usage":{"input_tokens":10,"cached_input_tokens":3,"output_tokens":5,"reasoning_output_tokens":2,"total_tokens":20},"last_token_usage":{"total_tokens":20},"model_context_window":272000}}}`)

	event, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	msg := event.Msg.(TokenCountMsg)
	if msg.Info == nil {
		t.Fatal("Info = nil, want populated")
	}
	if msg.Info.TotalTokenUsage.InputTokens != 10 || msg.Info.TotalTokenUsage.TotalTokens != 20 {
		t.Errorf("TotalTokenUsage = %+v", msg.Info.TotalTokenUsage)
	}
	if msg.Info.ModelContextWindow == nil || *msg.Info.ModelContextWindow != 272000 {
		t.Errorf("ModelContextWindow = %v, want 272000", msg.Info.ModelContextWindow)
	}
}

func TestParseEvent_UnknownTagPreserved(t *testing.T) {
	payload := []byte(`{"id":"e","msg":{"type":"brand_new_thing","answer":42}}`)

	event, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}

	msg, ok := event.Msg.(UnknownMsg)
	if !ok {
		t.Fatalf("Msg type = %T, want UnknownMsg", event.Msg)
	}
	if msg.Type != "brand_new_thing" {
		t.Errorf("Type = %v, want brand_new_thing", msg.Type)
	}
	if len(msg.Raw) == 0 {
		t.Error("Raw = empty, want original payload preserved")
	}
}

func TestParseEvent_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{{{`},
		{"missing msg", `{"id":"e"}`},
		{"msg not object", `{"id":"e","msg":"nope"}`},
		{"missing type tag", `{"id":"e","msg":{"delta":"x"}}`},
		{"wrong field type", `{"id":"e","msg":{"type":"agent_message_delta","delta":5}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseEvent([]byte(tt.payload)); err == nil {
				t.Error("ParseEvent() error = nil, want failure")
			}
		})
	}
}

func TestParseEvent_ListCustomPrompts(t *testing.T) {
	payload := []byte(`{"id":"e","msg":{"type":"list_custom_prompts_response","custom_prompts":[{"name":"review","path":"/p/review.md","content":"do a review"}]}}`)

	event, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	msg := event.Msg.(ListCustomPromptsResponseMsg)
	if len(msg.CustomPrompts) != 1 || msg.CustomPrompts[0].Name != "review" {
		t.Errorf("CustomPrompts = %+v, want one named review", msg.CustomPrompts)
	}
}
