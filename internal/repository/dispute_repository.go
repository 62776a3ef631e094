package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rustaceolibre/marketplace-backend/internal/models"
	"github.com/rustaceolibre/marketplace-backend/internal/pkg/apperror"
	"github.com/rustaceolibre/marketplace-backend/internal/repository/common"
)

// DisputeRepository отвечает за таблицу disputes.
type DisputeRepository struct {
	db *sqlx.DB
}

// NewDisputeRepository создаёт экземпляр репозитория.
func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create открывает диспут и привязывает его к заказу в одной транзакции.
// Ограничение UNIQUE(order_id) не даёт открыть второй диспут по заказу.
func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		insert := `
			INSERT INTO disputes (order_id, buyer_id, seller_id, status, buyer_argument)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`
		if err := tx.QueryRowxContext(
			ctx, insert,
			d.OrderID, d.BuyerID, d.SellerID, models.DisputeStatusAwaitingCounter, d.BuyerArgument,
		).Scan(&d.ID, &d.CreatedAt); err != nil {
			return fmt.Errorf("dispute repository: create %w", err)
		}
		d.Status = models.DisputeStatusAwaitingCounter

		link := `UPDATE orders SET dispute_id = $2 WHERE id = $1 AND dispute_id IS NULL`
		res, err := tx.ExecContext(ctx, link, d.OrderID, d.ID)
		if err != nil {
			return fmt.Errorf("dispute repository: link order %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("dispute repository: link order rows affected %w", err)
		}
		if affected == 0 {
			return apperror.ErrDisputeInProgress
		}

		return nil
	})
}

// GetByID возвращает диспут по идентификатору.
func (r *DisputeRepository) GetByID(ctx context.Context, id int64) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, apperror.ErrDisputeNotFound)
}

// GetByOrderID возвращает диспут по заказу.
func (r *DisputeRepository) GetByOrderID(ctx context.Context, orderID int64) (*models.Dispute, error) {
	return common.GetByField[models.Dispute](ctx, r.db, "disputes", "order_id", orderID, apperror.ErrDisputeNotFound)
}

// SetCounterArgument записывает контраргумент продавца и переводит диспут
// в ожидание решения. Возвращает false, если диспут уже не ждёт контраргумента.
func (r *DisputeRepository) SetCounterArgument(ctx context.Context, id int64, argument string) (bool, error) {
	query := `
		UPDATE disputes
		SET seller_argument = $2, status = $3
		WHERE id = $1 AND status = $4
	`
	res, err := r.db.ExecContext(
		ctx, query,
		id, argument, models.DisputeStatusAwaitingRuling, models.DisputeStatusAwaitingCounter,
	)
	if err != nil {
		return false, fmt.Errorf("dispute repository: set counter argument %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("dispute repository: set counter argument rows affected %w", err)
	}
	return affected > 0, nil
}

// Resolve фиксирует вердикт арбитра. Возвращает false, если диспут уже
// разрешён другим арбитром.
func (r *DisputeRepository) Resolve(ctx context.Context, id int64, status string, arbiterID uuid.UUID, resolution string, at time.Time) (bool, error) {
	query := `
		UPDATE disputes
		SET status = $2, arbiter_id = $3, resolution = $4, resolved_at = $5
		WHERE id = $1 AND status IN ($6, $7)
	`
	res, err := r.db.ExecContext(
		ctx, query,
		id, status, arbiterID, resolution, at,
		models.DisputeStatusAwaitingCounter, models.DisputeStatusAwaitingRuling,
	)
	if err != nil {
		return false, fmt.Errorf("dispute repository: resolve %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("dispute repository: resolve rows affected %w", err)
	}
	return affected > 0, nil
}

// Delete удаляет диспут и снимает привязку с заказа. Применяется при
// зачистке дефектной записи, у которой пропал заказ.
func (r *DisputeRepository) Delete(ctx context.Context, id int64) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET dispute_id = NULL WHERE dispute_id = $1`, id); err != nil {
			return fmt.Errorf("dispute repository: unlink order %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM disputes WHERE id = $1`, id); err != nil {
			return fmt.Errorf("dispute repository: delete %w", err)
		}
		return nil
	})
}

// ListByUser возвращает диспуты, где пользователь выступает любой из
// сторон. openOnly ограничивает выборку неразрешёнными: по таким выборкам
// построены частичные индексы.
func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID, openOnly bool) ([]models.Dispute, error) {
	disputes := []models.Dispute{}
	query := `
		SELECT * FROM disputes
		WHERE (buyer_id = $1 OR seller_id = $1)
			AND ($2 = FALSE OR status IN ($3, $4))
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &disputes, query, userID, openOnly,
		models.DisputeStatusAwaitingCounter, models.DisputeStatusAwaitingRuling); err != nil {
		return nil, fmt.Errorf("dispute repository: list by user %w", err)
	}
	return disputes, nil
}

// ListOpen возвращает все неразрешённые диспуты для арбитража.
func (r *DisputeRepository) ListOpen(ctx context.Context) ([]models.Dispute, error) {
	disputes := []models.Dispute{}
	query := `
		SELECT * FROM disputes
		WHERE status IN ($1, $2)
		ORDER BY created_at ASC
	`
	if err := r.db.SelectContext(ctx, &disputes, query,
		models.DisputeStatusAwaitingCounter, models.DisputeStatusAwaitingRuling); err != nil {
		return nil, fmt.Errorf("dispute repository: list open %w", err)
	}
	return disputes, nil
}
