package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lapply/lapply/internal/entity"
)

type reminderRepository struct {
	db *sql.DB
}

func NewReminderRepository(db *sql.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

// CancelPending flips every un-canceled reminder of the application in a
// single UPDATE. One statement, so the matched set mutates all-or-nothing.
func (r *reminderRepository) CancelPending(ctx context.Context, applicationID string) (int64, error) {
	query := `UPDATE reminders SET canceled = TRUE WHERE application_id = $1 AND canceled = FALSE`
	result, err := r.db.ExecContext(ctx, query, applicationID)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel pending reminders: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

const reminderColumns = `
	id, application_id, organization_id, user_id, type, message,
	scheduled_at, sent_at, canceled, created_at
`

func scanReminders(rows *sql.Rows) ([]*entity.Reminder, error) {
	var reminders []*entity.Reminder
	for rows.Next() {
		var reminder entity.Reminder
		err := rows.Scan(
			&reminder.ID,
			&reminder.ApplicationID,
			&reminder.OrganizationID,
			&reminder.UserID,
			&reminder.Type,
			&reminder.Message,
			&reminder.ScheduledAt,
			&reminder.SentAt,
			&reminder.Canceled,
			&reminder.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, &reminder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}

	return reminders, nil
}

func (r *reminderRepository) GetByApplication(ctx context.Context, applicationID string) ([]*entity.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE application_id = $1 ORDER BY scheduled_at ASC`

	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	return scanReminders(rows)
}

func (r *reminderRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]*entity.Reminder, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE canceled = FALSE AND sent_at IS NULL AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer rows.Close()

	return scanReminders(rows)
}

func (r *reminderRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE reminders SET sent_at = $1 WHERE id = $2 AND sent_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}

	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	return nil
}
