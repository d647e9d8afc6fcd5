package store

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidPage is returned by ListPage for page numbers below 1.
var ErrInvalidPage = errors.New("store: page number must be at least 1")

// DefaultPageSize is used when ListPage gets a non-positive size.
const DefaultPageSize = 20

// ListPage returns the page-th block of size messages counting back from the
// newest, ordered oldest first. more reports whether older messages remain.
func (db *DB) ListPage(page, size int) (msgs []Message, more bool, err error) {
	if page < 1 {
		return nil, false, ErrInvalidPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	rows, err := db.Query(`
		SELECT seq, id, text, sender, date_time, sent_at
		FROM messages
		ORDER BY sent_at DESC, seq DESC
		LIMIT ? OFFSET ?`, size, (page-1)*size)
	if err != nil {
		return nil, false, fmt.Errorf("list page %d: %w", page, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("list page %d: %w", page, err)
	}
	slices.Reverse(msgs)

	total, err := db.Count()
	if err != nil {
		return nil, false, err
	}
	return msgs, total > page*size, nil
}

// AppendOwn stores text as a message from the session owner under a fresh ID.
func (db *DB) AppendOwn(text string, at time.Time) (Message, error) {
	m := newMessage(uuid.NewString(), "", text, at)
	seq, err := db.insert(m)
	if err != nil {
		return Message{}, fmt.Errorf("append own message: %w", err)
	}
	m.Seq = seq
	return m, nil
}

// Post stores a message written by sender.
func (db *DB) Post(sender, text string, at time.Time) (Message, error) {
	if strings.TrimSpace(sender) == "" {
		return Message{}, errors.New("post: sender is required")
	}
	m := newMessage(uuid.NewString(), sender, text, at)
	seq, err := db.insert(m)
	if err != nil {
		return Message{}, fmt.Errorf("post message: %w", err)
	}
	m.Seq = seq
	return m, nil
}

// Import stores a batch of messages in one transaction. Messages whose ID is
// already stored are skipped; a message without an ID gets a fresh one.
// DateTime must be RFC 3339. It returns the number of rows inserted.
func (db *DB) Import(msgs []Message) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for i, m := range msgs {
		at, err := time.Parse(time.RFC3339, m.DateTime)
		if err != nil {
			return 0, fmt.Errorf("import message %d: %w", i, err)
		}
		id := m.ID
		if id == "" {
			id = uuid.NewString()
		}
		res, err := tx.Exec(`
			INSERT INTO messages (id, text, sender, date_time, sent_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			id, m.Text, nullString(m.Sender), at.UTC().Format(TimeLayout), at.UnixMilli())
		if err != nil {
			return 0, fmt.Errorf("import message %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return inserted, nil
}

// Count returns the number of stored messages.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (db *DB) insert(m Message) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO messages (id, text, sender, date_time, sent_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Text, nullString(m.Sender), m.DateTime, m.SentAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanMessage(rows *sql.Rows) (Message, error) {
	var (
		m      Message
		sender sql.NullString
	)
	if err := rows.Scan(&m.Seq, &m.ID, &m.Text, &sender, &m.DateTime, &m.SentAt); err != nil {
		return Message{}, err
	}
	m.Sender = sender.String
	return m, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
