package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lapply/lapply/internal/entity"
)

type organizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*entity.Organization, error) {
	query := `
		SELECT id, name, line_channel_access_token, line_channel_secret, created_at
		FROM organizations
		WHERE id = $1
	`

	var org entity.Organization
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.LineChannelAccessToken,
		&org.LineChannelSecret,
		&org.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}
