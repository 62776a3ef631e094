package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли пользователей маркетплейса.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleBoth   = "both"
)

// ValidRoles перечисляет допустимые роли при регистрации.
var ValidRoles = map[string]struct{}{
	RoleBuyer:  {},
	RoleSeller: {},
	RoleBoth:   {},
}

// User описывает участника маркетплейса.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	IsStaff      bool      `db:"is_staff" json:"is_staff"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	// Агрегаты рейтинга: сумма и количество оценок, полученных в каждой роли.
	BuyerRatingSum    int64      `db:"buyer_rating_sum" json:"-"`
	BuyerRatingCount  int64      `db:"buyer_rating_count" json:"-"`
	SellerRatingSum   int64      `db:"seller_rating_sum" json:"-"`
	SellerRatingCount int64      `db:"seller_rating_count" json:"-"`
	LastLoginAt       *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// IsBuyer сообщает, может ли пользователь совершать покупки.
func (u *User) IsBuyer() bool {
	return u.Role == RoleBuyer || u.Role == RoleBoth
}

// IsSeller сообщает, может ли пользователь продавать.
func (u *User) IsSeller() bool {
	return u.Role == RoleSeller || u.Role == RoleBoth
}

// BuyerRating возвращает средний рейтинг пользователя как покупателя.
func (u *User) BuyerRating() float64 {
	if u.BuyerRatingCount == 0 {
		return 0
	}
	return float64(u.BuyerRatingSum) / float64(u.BuyerRatingCount)
}

// SellerRating возвращает средний рейтинг пользователя как продавца.
func (u *User) SellerRating() float64 {
	if u.SellerRatingCount == 0 {
		return 0
	}
	return float64(u.SellerRatingSum) / float64(u.SellerRatingCount)
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
