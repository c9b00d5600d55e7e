package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lapply/lapply/internal/entity"
)

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	query := `SELECT id, organization_id, title, slots, created_at, updated_at FROM events WHERE id = $1`

	var event entity.Event
	var slotsJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.OrganizationID,
		&event.Title,
		&slotsJSON,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if err := json.Unmarshal(slotsJSON, &event.Slots); err != nil {
		return nil, fmt.Errorf("failed to decode event slots: %w", err)
	}

	return &event, nil
}

// ReleaseSlot decrements the slot's current capacity by one. Slots live
// embedded in the event row as a JSON list, so the list is read under a
// row lock, mutated, and written back whole. Concurrent releases against
// the same event serialize on the lock; no decrement is ever lost.
func (r *eventRepository) ReleaseSlot(ctx context.Context, eventID, slotID string) (*entity.SlotRelease, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var slotsJSON []byte
	query := `SELECT slots FROM events WHERE id = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, eventID).Scan(&slotsJSON)
	if err == sql.ErrNoRows {
		logrus.WithField("event_id", eventID).Warn("release skipped: event not found")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read event slots: %w", err)
	}

	var slots []entity.EventSlot
	if err := json.Unmarshal(slotsJSON, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode event slots: %w", err)
	}

	idx := -1
	for i := range slots {
		if slots[i].ID == slotID {
			idx = i
			break
		}
	}
	if idx < 0 {
		logrus.WithFields(logrus.Fields{
			"event_id": eventID,
			"slot_id":  slotID,
		}).Warn("release skipped: slot not found")
		return nil, nil
	}

	if slots[idx].CurrentCapacity <= 0 {
		// Never goes negative.
		logrus.WithFields(logrus.Fields{
			"event_id": eventID,
			"slot_id":  slotID,
		}).Warn("release skipped: capacity already zero")
		return nil, nil
	}

	previous := slots[idx].CurrentCapacity
	slots[idx].CurrentCapacity = previous - 1

	updated, err := json.Marshal(slots)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event slots: %w", err)
	}

	query = `UPDATE events SET slots = $1, updated_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, query, updated, time.Now(), eventID); err != nil {
		return nil, fmt.Errorf("failed to write event slots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &entity.SlotRelease{
		EventID:  eventID,
		SlotID:   slotID,
		Previous: previous,
		Updated:  previous - 1,
	}, nil
}
