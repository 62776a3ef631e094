package models

import (
	"time"

	"github.com/google/uuid"
)

// Категории товаров.
const (
	CategoryHome       = "home"
	CategoryTechnology = "technology"
	CategoryClothing   = "clothing"
	CategoryFood       = "food"
	CategoryOther      = "other"
)

// ValidCategories перечисляет допустимые категории товара.
var ValidCategories = map[string]struct{}{
	CategoryHome:       {},
	CategoryTechnology: {},
	CategoryClothing:   {},
	CategoryFood:       {},
	CategoryOther:      {},
}

// Product описывает товар продавца. Stock — остаток на складе продавца,
// ещё не выставленный ни в одной публикации.
type Product struct {
	ID          int64     `db:"id" json:"id"`
	SellerID    uuid.UUID `db:"seller_id" json:"seller_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	Stock       int64     `db:"stock" json:"stock"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Publication описывает активное предложение продавца: количество единиц
// товара по фиксированной цене. OfferedQuantity уменьшается атомарно при
// создании заказа и восстанавливается при отмене с возвратом.
type Publication struct {
	ID              int64     `db:"id" json:"id"`
	SellerID        uuid.UUID `db:"seller_id" json:"seller_id"`
	ProductID       int64     `db:"product_id" json:"product_id"`
	OfferedQuantity int64     `db:"offered_quantity" json:"offered_quantity"`
	UnitPrice       int64     `db:"unit_price" json:"unit_price"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
