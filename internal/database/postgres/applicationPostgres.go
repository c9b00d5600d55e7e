package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lapply/lapply/internal/entity"
)

type applicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

const applicationColumns = `
	id, organization_id, user_id,
	COALESCE(event_id, ''), COALESCE(slot_id, ''),
	status, COALESCE(plan, ''), slot_at, canceled_at, slot_released, created_at
`

func scanApplication(row interface{ Scan(...interface{}) error }) (*entity.Application, error) {
	var app entity.Application
	err := row.Scan(
		&app.ID,
		&app.OrganizationID,
		&app.UserID,
		&app.EventID,
		&app.SlotID,
		&app.Status,
		&app.Plan,
		&app.SlotAt,
		&app.CanceledAt,
		&app.SlotReleased,
		&app.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*entity.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return app, nil
}

// TransitionToCanceled read-checks the current status under a row lock and
// only then writes, so concurrent double-cancels resolve to exactly one
// winner.
func (r *applicationRepository) TransitionToCanceled(ctx context.Context, id string, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status entity.ApplicationStatus
	query := `SELECT status FROM applications WHERE id = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, id).Scan(&status)
	if err == sql.ErrNoRows {
		return entity.ErrApplicationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read application status: %w", err)
	}

	if status.IsCanceled() {
		return entity.ErrAlreadyCanceled
	}
	if !status.IsCancelable() {
		return entity.ErrNotCancelable
	}

	query = `UPDATE applications SET status = $1, canceled_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, query, entity.ApplicationStatusCanceled, now, id); err != nil {
		return fmt.Errorf("failed to transition application to canceled: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *applicationRepository) ClaimSlotRelease(ctx context.Context, id string) (bool, error) {
	query := `UPDATE applications SET slot_released = TRUE WHERE id = $1 AND slot_released = FALSE`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim slot release: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func (r *applicationRepository) ResetSlotRelease(ctx context.Context, id string) error {
	query := `UPDATE applications SET slot_released = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to reset slot release: %w", err)
	}
	return nil
}

func (r *applicationRepository) FindCancelable(ctx context.Context, userID, organizationID string, now time.Time) ([]*entity.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE user_id = $1 AND organization_id = $2
		  AND status = $3 AND slot_at > $4
		ORDER BY slot_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, organizationID, entity.ApplicationStatusApplied, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query cancelable applications: %w", err)
	}
	defer rows.Close()

	var apps []*entity.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}

	return apps, nil
}

func (r *applicationRepository) FindCanceledWithPendingWork(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT DISTINCT a.id
		FROM applications a
		WHERE a.status IN ($1, $2)
		  AND (
			EXISTS (SELECT 1 FROM reminders r WHERE r.application_id = a.id AND r.canceled = FALSE AND r.sent_at IS NULL)
			OR EXISTS (SELECT 1 FROM step_deliveries s WHERE s.application_id = a.id AND s.status = $3)
		  )
		LIMIT $4
	`

	rows, err := r.db.QueryContext(ctx, query,
		entity.ApplicationStatusCanceled,
		entity.ApplicationStatusCancelled,
		entity.StepDeliveryStatusPending,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications with pending work: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan application id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating application ids: %w", err)
	}

	return ids, nil
}

func (r *applicationRepository) GetByOrganization(ctx context.Context, organizationID string, limit, offset int) ([]*entity.Application, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, organizationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications by organization: %w", err)
	}
	defer rows.Close()

	var apps []*entity.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}

	return apps, nil
}
