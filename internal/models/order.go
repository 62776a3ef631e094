package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы заказа. Переходы только вперёд:
// pending -> dispatched -> received, отмена возможна из pending и dispatched.
// received и cancelled — терминальные.
const (
	OrderStatusPending    = "pending"
	OrderStatusDispatched = "dispatched"
	OrderStatusReceived   = "received"
	OrderStatusCancelled  = "cancelled"
)

// ValidOrderStatuses перечисляет допустимые статусы заказа.
var ValidOrderStatuses = map[string]struct{}{
	OrderStatusPending:    {},
	OrderStatusDispatched: {},
	OrderStatusReceived:   {},
	OrderStatusCancelled:  {},
}

// Order — центральная сущность: эскроу-сделка между покупателем и продавцом
// по одной публикации. Средства удерживаются платформой до подтверждения
// получения; FundsSettled становится true ровно один раз и никогда не
// сбрасывается.
type Order struct {
	ID            int64     `db:"id" json:"id"`
	PublicationID int64     `db:"publication_id" json:"publication_id"`
	ProductID     int64     `db:"product_id" json:"product_id"`
	Quantity      int64     `db:"quantity" json:"quantity"`
	TotalValue    int64     `db:"total_value" json:"total_value"`
	FundsSettled  bool      `db:"funds_settled" json:"funds_settled"`
	Status        string    `db:"status" json:"status"`
	BuyerID       uuid.UUID `db:"buyer_id" json:"buyer_id"`
	SellerID      uuid.UUID `db:"seller_id" json:"seller_id"`
	// Оценка, которую покупатель поставил продавцу, и наоборот.
	BuyerRating  *int `db:"buyer_rating" json:"buyer_rating,omitempty"`
	SellerRating *int `db:"seller_rating" json:"seller_rating,omitempty"`
	// Кто первым запросил отмену. Очищается только финализацией отмены.
	CancellationRequestedBy *uuid.UUID `db:"cancellation_requested_by" json:"cancellation_requested_by,omitempty"`
	DisputeID               *int64     `db:"dispute_id" json:"dispute_id,omitempty"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
	DispatchedAt            *time.Time `db:"dispatched_at" json:"dispatched_at,omitempty"`
	ReceivedAt              *time.Time `db:"received_at" json:"received_at,omitempty"`
	CancelledAt             *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// IsParticipant сообщает, участвует ли пользователь в заказе.
func (o *Order) IsParticipant(userID uuid.UUID) bool {
	return o.BuyerID == userID || o.SellerID == userID
}

// IsTerminal сообщает, находится ли заказ в терминальном состоянии.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusReceived || o.Status == OrderStatusCancelled
}
