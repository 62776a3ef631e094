package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rustaceolibre/marketplace-backend/internal/models"
)

// TreasuryRepository ведёт журнал переводов в пользу участников и платформы.
type TreasuryRepository struct {
	db *sqlx.DB
}

// NewTreasuryRepository создаёт экземпляр репозитория.
func NewTreasuryRepository(db *sqlx.DB) *TreasuryRepository {
	return &TreasuryRepository{db: db}
}

// Record пишет строку журнала о переводе.
func (r *TreasuryRepository) Record(ctx context.Context, transfer *models.Transfer) error {
	query := `
		INSERT INTO transfers (recipient_id, order_id, kind, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		transfer.RecipientID, transfer.OrderID, transfer.Kind, transfer.Amount,
	).Scan(&transfer.ID, &transfer.CreatedAt); err != nil {
		return fmt.Errorf("treasury repository: record %w", err)
	}

	return nil
}

// ListByRecipient возвращает переводы получателя, свежие первыми.
func (r *TreasuryRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]models.Transfer, error) {
	transfers := []models.Transfer{}
	query := `SELECT * FROM transfers WHERE recipient_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &transfers, query, recipientID); err != nil {
		return nil, fmt.Errorf("treasury repository: list by recipient %w", err)
	}
	return transfers, nil
}
