package plugins

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	codex "github.com/moofone/codex-go"
	"github.com/moofone/codex-go/internal/logger"
	"github.com/moofone/codex-go/internal/metrics"
	"github.com/moofone/codex-go/protocol"
)

// Recorder persists every decoded event to a SQLite database for later
// inspection and replay. Write failures are logged and the stream is left
// undisturbed.
type Recorder struct {
	db     *sql.DB
	client *codex.Client
}

// RecordedEvent is one persisted event row
type RecordedEvent struct {
	ID             string
	ConversationID string
	EventID        string
	Type           string
	Payload        []byte
	ReceivedAt     time.Time
}

// NewRecorder opens (or creates) the event database under dataDir
func NewRecorder(dataDir string) (*Recorder, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "events.db")
	// Enable WAL mode and busy timeout for better concurrent access
	db, err := sql.Open("sqlite", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	r := &Recorder{db: db}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return r, nil
}

func (r *Recorder) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		received_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_events_conversation ON events(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Name implements the plugin interface
func (r *Recorder) Name() string {
	return "recorder"
}

// Initialize keeps the client handle for conversation id lookups
func (r *Recorder) Initialize(ctx context.Context, client *codex.Client) error {
	r.client = client
	return nil
}

// AfterEvent persists one decoded event
func (r *Recorder) AfterEvent(ctx context.Context, event *protocol.Event) {
	payload, err := json.Marshal(event.Msg)
	if err != nil {
		logger.Error("recorder: failed to encode %s event: %v", event.Msg.MsgType(), err)
		return
	}

	var conversationID string
	if r.client != nil {
		conversationID = r.client.ConversationID()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO events (id, conversation_id, event_id, type, payload, received_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		"evt_"+uuid.New().String()[:8], conversationID, event.ID,
		event.Msg.MsgType(), string(payload), time.Now(),
	)
	if err != nil {
		logger.Error("recorder: failed to persist %s event: %v", event.Msg.MsgType(), err)
		return
	}
	metrics.RecorderWrites.Inc()
}

// ListByConversation returns the persisted events of one conversation in
// arrival order
func (r *Recorder) ListByConversation(conversationID string) ([]RecordedEvent, error) {
	rows, err := r.db.Query(`
		SELECT id, conversation_id, event_id, type, payload, received_at
		FROM events WHERE conversation_id = ?
		ORDER BY rowid ASC`, conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []RecordedEvent
	for rows.Next() {
		var e RecordedEvent
		var payload string
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.EventID, &e.Type, &payload, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Payload = []byte(payload)
		events = append(events, e)
	}

	return events, rows.Err()
}

// Close closes the database connection
func (r *Recorder) Close() error {
	return r.db.Close()
}
