package store

import (
	"database/sql"
	"fmt"

	"github.com/evandyer/cleanloop/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func scanNotification(scanner interface{ Scan(...any) error }) (*model.Notification, error) {
	var n model.Notification
	var read int

	err := scanner.Scan(&n.ID, &n.UserID, &n.Message, &n.Kind, &read, &n.CreatedAt)
	if err != nil {
		return nil, err
	}

	n.Read = read != 0
	return &n, nil
}

const notificationCols = `id, user_id, message, kind, is_read, created_at`

func (s *NotificationStore) Create(userID int64, message, kind string) (*model.Notification, error) {
	result, err := s.db.Exec(
		`INSERT INTO notifications (user_id, message, kind) VALUES (?, ?, ?)`,
		userID, message, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+notificationCols+` FROM notifications WHERE id = ?`, id)
	return scanNotification(row)
}

// ListUnread returns the user's unread notifications, oldest first so they
// read in the order they happened.
func (s *NotificationStore) ListUnread(userID int64) ([]model.Notification, error) {
	rows, err := s.db.Query(
		`SELECT `+notificationCols+` FROM notifications WHERE user_id = ? AND is_read = 0 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	defer rows.Close()

	var notes []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// MarkRead flips the read flag, scoped to the owning user. The only mutation
// notifications ever see.
func (s *NotificationStore) MarkRead(id, userID int64) error {
	_, err := s.db.Exec(`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
