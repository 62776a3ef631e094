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

// OrderRepository отвечает за таблицу orders и связанные с ней условные
// переходы состояний. Все переходы выполняются условными UPDATE, чтобы
// конкурентные запросы не могли выполнить один переход дважды.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository создаёт экземпляр репозитория.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create создаёт заказ, атомарно списывая количество с витрины публикации.
// Если на витрине меньше запрошенного, транзакция откатывается.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		reserve := `
			UPDATE publications
			SET offered_quantity = offered_quantity - $2, updated_at = NOW()
			WHERE id = $1 AND offered_quantity >= $2
		`
		res, err := tx.ExecContext(ctx, reserve, order.PublicationID, order.Quantity)
		if err != nil {
			return fmt.Errorf("order repository: reserve quantity %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("order repository: reserve quantity rows affected %w", err)
		}
		if affected == 0 {
			return apperror.ErrInsufficientSellerStock
		}

		insert := `
			INSERT INTO orders (publication_id, product_id, quantity, total_value, status, buyer_id, seller_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at
		`
		if err := tx.QueryRowxContext(
			ctx, insert,
			order.PublicationID, order.ProductID, order.Quantity, order.TotalValue,
			models.OrderStatusPending, order.BuyerID, order.SellerID,
		).Scan(&order.ID, &order.CreatedAt); err != nil {
			return fmt.Errorf("order repository: create %w", err)
		}
		order.Status = models.OrderStatusPending

		return nil
	})
}

// GetByID возвращает заказ по идентификатору.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	return common.GetByID[models.Order](ctx, r.db, "orders", id, apperror.ErrOrderNotFound)
}

// MarkDispatched переводит заказ из pending в dispatched.
// Возвращает false, если заказ уже не в состоянии pending.
func (r *OrderRepository) MarkDispatched(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, dispatched_at = $3
		WHERE id = $1 AND status = $4
	`
	return r.execTransition(ctx, query, id, models.OrderStatusDispatched, at, models.OrderStatusPending)
}

// MarkReceived переводит заказ из dispatched в received и помечает средства
// расчитанными. Условие funds_settled = FALSE гарантирует однократность
// выплаты даже при конкурентных подтверждениях.
func (r *OrderRepository) MarkReceived(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, received_at = $3, funds_settled = TRUE
		WHERE id = $1 AND status = $4 AND NOT funds_settled
	`
	return r.execTransition(ctx, query, id, models.OrderStatusReceived, at, models.OrderStatusDispatched)
}

// SettleFunds помечает средства расчитанными вне перехода статуса.
// Используется при выплатах по вердикту арбитра.
func (r *OrderRepository) SettleFunds(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE orders SET funds_settled = TRUE WHERE id = $1 AND NOT funds_settled`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("order repository: settle funds %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("order repository: settle funds rows affected %w", err)
	}
	return affected > 0, nil
}

// RequestCancellation фиксирует первую заявку на взаимную отмену.
// Возвращает false, если заявка уже была записана.
func (r *OrderRepository) RequestCancellation(ctx context.Context, id int64, requester uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET cancellation_requested_by = $2
		WHERE id = $1 AND cancellation_requested_by IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, id, requester)
	if err != nil {
		return false, fmt.Errorf("order repository: request cancellation %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("order repository: request cancellation rows affected %w", err)
	}
	return affected > 0, nil
}

// Cancel переводит заказ в cancelled, помечает средства расчитанными и
// пытается вернуть количество на витрину. Возврат best-effort: если
// публикация исчезла, отмена всё равно фиксируется, а второй результат
// сообщает, что количество потеряно.
func (r *OrderRepository) Cancel(ctx context.Context, order *models.Order, at time.Time) (bool, bool, error) {
	var cancelled, stockLost bool
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		transition := `
			UPDATE orders
			SET status = $2, cancelled_at = $3, funds_settled = TRUE
			WHERE id = $1 AND status IN ($4, $5) AND NOT funds_settled
		`
		res, err := tx.ExecContext(
			ctx, transition,
			order.ID, models.OrderStatusCancelled, at,
			models.OrderStatusPending, models.OrderStatusDispatched,
		)
		if err != nil {
			return fmt.Errorf("order repository: cancel %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("order repository: cancel rows affected %w", err)
		}
		if affected == 0 {
			return nil
		}
		cancelled = true

		restore := `
			UPDATE publications
			SET offered_quantity = offered_quantity + $2, updated_at = NOW()
			WHERE id = $1
		`
		res, err = tx.ExecContext(ctx, restore, order.PublicationID, order.Quantity)
		if err != nil {
			return fmt.Errorf("order repository: restore quantity %w", err)
		}
		restored, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("order repository: restore quantity rows affected %w", err)
		}
		stockLost = restored == 0

		return nil
	})
	if err != nil {
		return false, false, err
	}
	return cancelled, stockLost, nil
}

// SetBuyerRating записывает оценку покупателя по заказу.
// Условие IS NULL не даёт выставить оценку повторно.
func (r *OrderRepository) SetBuyerRating(ctx context.Context, id int64, rating int) (bool, error) {
	query := `UPDATE orders SET buyer_rating = $2 WHERE id = $1 AND buyer_rating IS NULL`
	return r.execRating(ctx, query, id, rating)
}

// SetSellerRating записывает оценку продавца по заказу.
func (r *OrderRepository) SetSellerRating(ctx context.Context, id int64, rating int) (bool, error) {
	query := `UPDATE orders SET seller_rating = $2 WHERE id = $1 AND seller_rating IS NULL`
	return r.execRating(ctx, query, id, rating)
}

// ListByBuyer возвращает заказы покупателя с фильтрами по статусу и категории.
func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, status, category string) ([]models.Order, error) {
	return r.listByParticipant(ctx, "buyer_id", buyerID, status, category)
}

// ListBySeller возвращает заказы продавца с фильтрами по статусу и категории.
func (r *OrderRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, status, category string) ([]models.Order, error) {
	return r.listByParticipant(ctx, "seller_id", sellerID, status, category)
}

func (r *OrderRepository) listByParticipant(ctx context.Context, column string, userID uuid.UUID, status, category string) ([]models.Order, error) {
	orders := []models.Order{}
	query := fmt.Sprintf(`
		SELECT o.*
		FROM orders o
		JOIN products p ON p.id = o.product_id
		WHERE o.%s = $1
			AND ($2 = '' OR o.status = $2)
			AND ($3 = '' OR p.category = $3)
		ORDER BY o.created_at DESC
	`, column)
	if err := r.db.SelectContext(ctx, &orders, query, userID, status, category); err != nil {
		return nil, fmt.Errorf("order repository: list by %s %w", column, err)
	}
	return orders, nil
}

// SetDispute привязывает диспут к заказу.
func (r *OrderRepository) SetDispute(ctx context.Context, id int64, disputeID int64) error {
	query := `UPDATE orders SET dispute_id = $2 WHERE id = $1 AND dispute_id IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, disputeID)
	if err != nil {
		return fmt.Errorf("order repository: set dispute %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("order repository: set dispute rows affected %w", err)
	}
	if affected == 0 {
		return apperror.ErrDisputeInProgress
	}
	return nil
}

// ClearDispute снимает привязку диспута, например при дефектной записи.
func (r *OrderRepository) ClearDispute(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE orders SET dispute_id = NULL WHERE id = $1`, id); err != nil {
		return fmt.Errorf("order repository: clear dispute %w", err)
	}
	return nil
}

func (r *OrderRepository) execTransition(ctx context.Context, query string, args ...interface{}) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("order repository: transition %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("order repository: transition rows affected %w", err)
	}
	return affected > 0, nil
}

func (r *OrderRepository) execRating(ctx context.Context, query string, id int64, rating int) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, id, rating)
	if err != nil {
		return false, fmt.Errorf("order repository: set rating %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("order repository: set rating rows affected %w", err)
	}
	return affected > 0, nil
}
