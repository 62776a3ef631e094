package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы выплат из кастодиального баланса платформы.
const (
	TransferKindPurchaseRemainder  = "purchase_remainder"
	TransferKindOrderSettlement    = "order_settlement"
	TransferKindCancellationRefund = "cancellation_refund"
	TransferKindDisputePayout      = "dispute_payout"
	TransferKindPlatformFee        = "platform_fee"
)

// Transfer — запись в леджере выплат. Заказ к моменту записи уже durably
// обновлён; сам перевод средств выполняет внешний леджер, ядро только
// сигнализирует получателя и сумму.
type Transfer struct {
	ID          int64     `db:"id" json:"id"`
	RecipientID uuid.UUID `db:"recipient_id" json:"recipient_id"`
	OrderID     *int64    `db:"order_id" json:"order_id,omitempty"`
	Kind        string    `db:"kind" json:"kind"`
	Amount      int64     `db:"amount" json:"amount"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Notification — сохранённое уведомление о событии жизненного цикла
// заказа или диспута.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Event     string    `db:"event" json:"event"`
	Payload   []byte    `db:"payload" json:"payload"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
