package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"burn.note/internal/models"
	"github.com/mattn/go-sqlite3"
)

var _ Store = (*SQLiteStore)(nil)

var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS messages (
  id             TEXT PRIMARY KEY,
  content        TEXT NOT NULL,
  password_hash  TEXT NOT NULL DEFAULT '',
  allow_response INTEGER NOT NULL DEFAULT 0,
  admin_token    TEXT NOT NULL,
  created_at     INTEGER NOT NULL,
  expires_at     INTEGER NOT NULL
);
`,
	`
CREATE TABLE IF NOT EXISTS responses (
  id         TEXT PRIMARY KEY,
  message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
  content    TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_responses_message_time
ON responses (message_id, created_at, id);
`,
	`
CREATE INDEX IF NOT EXISTS idx_messages_expires_at
ON messages (expires_at);
`,
}

// SQLiteStore is the durable backend. The destroy guarantee comes from the
// ON DELETE CASCADE foreign key: deleting a message row removes its responses
// inside the same transaction.
type SQLiteStore struct {
	db           *sql.DB
	sweepCancel  context.CancelFunc
	sweepStopped chan struct{}
}

func NewSQLiteStore(dbPath string, sweepInterval time.Duration) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", filepath.ToSlash(dbPath))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.enableWALMode(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	store.sweepCancel = cancel
	store.sweepStopped = make(chan struct{})
	go store.sweepLoop(ctx, sweepInterval)

	return store, nil
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, content, password_hash, allow_response, admin_token, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.Content, msg.PasswordHash, boolToInt(msg.AllowResponse),
		msg.AdminToken, msg.CreatedAt.Unix(), msg.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var (
		msg           models.Message
		allowResponse int
		createdAt     int64
		expiresAt     int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, content, password_hash, allow_response, admin_token, created_at, expires_at
		FROM messages WHERE id = ?`, id,
	).Scan(&msg.ID, &msg.Content, &msg.PasswordHash, &allowResponse, &msg.AdminToken, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select message: %w", err)
	}

	msg.AllowResponse = allowResponse != 0
	msg.CreatedAt = time.Unix(createdAt, 0)
	msg.ExpiresAt = time.Unix(expiresAt, 0)

	if time.Now().After(msg.ExpiresAt) {
		// Lazy reclaim; the sweep loop catches whatever reads miss.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
		return nil, ErrNotFound
	}

	return &msg, nil
}

func (s *SQLiteStore) UpdateMessage(ctx context.Context, msg *models.Message) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET content = ?, password_hash = ?, allow_response = ?
		WHERE id = ? AND expires_at > ?`,
		msg.Content, msg.PasswordHash, boolToInt(msg.AllowResponse), msg.ID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin destroy transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit destroy transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveResponse(ctx context.Context, resp *models.Response) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO responses (id, message_id, content, created_at)
		VALUES (?, ?, ?, ?)`,
		resp.ID, resp.MessageID, resp.Content, resp.CreatedAt.Unix(),
	)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return ErrNotFound
		}
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListResponses(ctx context.Context, messageID string) ([]*models.Response, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message_id, content, created_at
		FROM responses WHERE message_id = ?
		ORDER BY created_at, id`, messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("select responses: %w", err)
	}
	defer rows.Close()

	var responses []*models.Response
	for rows.Next() {
		var (
			resp      models.Response
			createdAt int64
		)
		if err := rows.Scan(&resp.ID, &resp.MessageID, &resp.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		resp.CreatedAt = time.Unix(createdAt, 0)
		responses = append(responses, &resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	if responses == nil {
		responses = []*models.Response{}
	}
	return responses, nil
}

func (s *SQLiteStore) Close() error {
	if s.sweepCancel != nil {
		s.sweepCancel()
		<-s.sweepStopped
	}
	return s.db.Close()
}

func (s *SQLiteStore) applyMigrations() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version >= len(migrations) {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := version; i < len(migrations); i++ {
		if _, err := tx.Exec(migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d;", i+1)); err != nil {
			return fmt.Errorf("set schema version %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) enableWALMode() error {
	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode=WAL;").Scan(&journalMode); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}
	if !strings.EqualFold(journalMode, "wal") {
		return fmt.Errorf("enable WAL mode: unexpected journal mode %q", journalMode)
	}
	return nil
}

func (s *SQLiteStore) sweepLoop(ctx context.Context, interval time.Duration) {
	defer close(s.sweepStopped)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Cascade removes the responses of each expired message.
			_, _ = s.db.Exec(`DELETE FROM messages WHERE expires_at <= ?`, time.Now().Unix())
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
