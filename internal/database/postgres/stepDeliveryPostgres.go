package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lapply/lapply/internal/entity"
)

type stepDeliveryRepository struct {
	db *sql.DB
}

func NewStepDeliveryRepository(db *sql.DB) StepDeliveryRepository {
	return &stepDeliveryRepository{db: db}
}

// SkipPending flips every pending delivery of the application to skipped
// in a single UPDATE, mirroring reminder cancellation.
func (r *stepDeliveryRepository) SkipPending(ctx context.Context, applicationID string) (int64, error) {
	query := `UPDATE step_deliveries SET status = $1 WHERE application_id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query,
		entity.StepDeliveryStatusSkipped,
		applicationID,
		entity.StepDeliveryStatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to skip pending step deliveries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

const stepDeliveryColumns = `
	id, application_id, organization_id, user_id, step_number, message,
	scheduled_at, sent_at, status, created_at
`

func scanStepDeliveries(rows *sql.Rows) ([]*entity.StepDelivery, error) {
	var deliveries []*entity.StepDelivery
	for rows.Next() {
		var delivery entity.StepDelivery
		err := rows.Scan(
			&delivery.ID,
			&delivery.ApplicationID,
			&delivery.OrganizationID,
			&delivery.UserID,
			&delivery.StepNumber,
			&delivery.Message,
			&delivery.ScheduledAt,
			&delivery.SentAt,
			&delivery.Status,
			&delivery.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step delivery: %w", err)
		}
		deliveries = append(deliveries, &delivery)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step deliveries: %w", err)
	}

	return deliveries, nil
}

func (r *stepDeliveryRepository) GetByApplication(ctx context.Context, applicationID string) ([]*entity.StepDelivery, error) {
	query := `SELECT ` + stepDeliveryColumns + ` FROM step_deliveries WHERE application_id = $1 ORDER BY step_number ASC`

	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query step deliveries: %w", err)
	}
	defer rows.Close()

	return scanStepDeliveries(rows)
}

func (r *stepDeliveryRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]*entity.StepDelivery, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + stepDeliveryColumns + `
		FROM step_deliveries
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at ASC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, entity.StepDeliveryStatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due step deliveries: %w", err)
	}
	defer rows.Close()

	return scanStepDeliveries(rows)
}

func (r *stepDeliveryRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE step_deliveries SET status = $1, sent_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query,
		entity.StepDeliveryStatusSent,
		at,
		id,
		entity.StepDeliveryStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark step delivery sent: %w", err)
	}

	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	return nil
}
