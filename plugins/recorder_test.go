package plugins

import (
	"context"
	"strings"
	"testing"

	"github.com/moofone/codex-go/protocol"
)

func TestRecorder_PersistsEvents(t *testing.T) {
	recorder, err := NewRecorder(t.TempDir())
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	defer func() { _ = recorder.Close() }()

	event, err := protocol.ParseEvent([]byte(`{"id":"ev-7","msg":{"type":"agent_message","message":"all done"}}`))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	recorder.AfterEvent(context.Background(), event)

	events, err := recorder.ListByConversation("")
	if err != nil {
		t.Fatalf("ListByConversation() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("persisted %v events, want 1", len(events))
	}

	got := events[0]
	if got.EventID != "ev-7" {
		t.Errorf("EventID = %v, want ev-7", got.EventID)
	}
	if got.Type != "agent_message" {
		t.Errorf("Type = %v, want agent_message", got.Type)
	}
	if !strings.Contains(string(got.Payload), "all done") {
		t.Errorf("Payload = %s, want message text preserved", got.Payload)
	}
	if !strings.HasPrefix(got.ID, "evt_") {
		t.Errorf("ID = %v, want evt_ prefix", got.ID)
	}
}

func TestRecorder_ArrivalOrder(t *testing.T) {
	recorder, err := NewRecorder(t.TempDir())
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	defer func() { _ = recorder.Close() }()

	payloads := []string{
		`{"id":"1","msg":{"type":"task_started"}}`,
		`{"id":"2","msg":{"type":"agent_message","message":"hi"}}`,
		`{"id":"3","msg":{"type":"task_complete"}}`,
	}
	for _, p := range payloads {
		event, err := protocol.ParseEvent([]byte(p))
		if err != nil {
			t.Fatalf("ParseEvent() error = %v", err)
		}
		recorder.AfterEvent(context.Background(), event)
	}

	events, err := recorder.ListByConversation("")
	if err != nil {
		t.Fatalf("ListByConversation() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("persisted %v events, want 3", len(events))
	}
	wantTypes := []string{"task_started", "agent_message", "task_complete"}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Errorf("event %d type = %v, want %v", i, events[i].Type, want)
		}
	}
}
