package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы диспута. awaiting_counter и awaiting_ruling — «в работе»,
// resolved_buyer и resolved_seller — терминальные вердикты арбитра.
const (
	DisputeStatusAwaitingCounter = "awaiting_counter"
	DisputeStatusAwaitingRuling  = "awaiting_ruling"
	DisputeStatusResolvedBuyer   = "resolved_buyer"
	DisputeStatusResolvedSeller  = "resolved_seller"
)

// Вердикты арбитра.
const (
	VerdictBuyer  = "buyer"
	VerdictSeller = "seller"
)

// Dispute — арбитражное разбирательство, привязанное 1:1 к заказу.
// Пока диспут не разрешён, обычное движение средств по заказу заморожено.
type Dispute struct {
	ID             int64     `db:"id" json:"id"`
	OrderID        int64     `db:"order_id" json:"order_id"`
	BuyerID        uuid.UUID `db:"buyer_id" json:"buyer_id"`
	SellerID       uuid.UUID `db:"seller_id" json:"seller_id"`
	Status         string    `db:"status" json:"status"`
	BuyerArgument  string    `db:"buyer_argument" json:"buyer_argument"`
	SellerArgument *string   `db:"seller_argument" json:"seller_argument,omitempty"`
	// Арбитр и его обоснование, заполняются при разрешении.
	ArbiterID  *uuid.UUID `db:"arbiter_id" json:"arbiter_id,omitempty"`
	Resolution *string    `db:"resolution" json:"resolution,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// IsResolved сообщает, вынесен ли вердикт.
func (d *Dispute) IsResolved() bool {
	return d.Status == DisputeStatusResolvedBuyer || d.Status == DisputeStatusResolvedSeller
}
