package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/rustaceolibre/marketplace-backend/internal/models"
	"github.com/rustaceolibre/marketplace-backend/internal/pkg/apperror"
)

// RatingOrderStore — доступ сервиса оценок к заказам.
type RatingOrderStore interface {
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	SetBuyerRating(ctx context.Context, id int64, rating int) (bool, error)
	SetSellerRating(ctx context.Context, id int64, rating int) (bool, error)
}

// RatingUserStore — доступ сервиса оценок к агрегатам пользователей.
type RatingUserStore interface {
	AddBuyerRating(ctx context.Context, id uuid.UUID, rating int) error
	AddSellerRating(ctx context.Context, id uuid.UUID, rating int) error
}

// RatingService позволяет сторонам завершённого заказа оценить друг друга.
// Каждая сторона оценивает один раз, оценка попадает в агрегат контрагента
// в его роли по этому заказу.
type RatingService struct {
	orders RatingOrderStore
	users  RatingUserStore
}

// NewRatingService создаёт сервис оценок.
func NewRatingService(orders RatingOrderStore, users RatingUserStore) *RatingService {
	return &RatingService{orders: orders, users: users}
}

// RateOrder записывает оценку по заказу. Оценивать можно только полученный
// заказ: покупатель оценивает продавца, продавец — покупателя.
func (s *RatingService) RateOrder(ctx context.Context, callerID uuid.UUID, orderID int64, rating int) error {
	if rating < 1 || rating > 5 {
		return apperror.ErrInvalidRating
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.IsParticipant(callerID) {
		return apperror.ErrNotParticipant
	}
	if order.Status != models.OrderStatusReceived {
		return apperror.ErrOrderNotReceived
	}

	if callerID == order.BuyerID {
		ok, err := s.orders.SetBuyerRating(ctx, orderID, rating)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.ErrAlreadyRated
		}
		return s.users.AddSellerRating(ctx, order.SellerID, rating)
	}

	ok, err := s.orders.SetSellerRating(ctx, orderID, rating)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.ErrAlreadyRated
	}
	return s.users.AddBuyerRating(ctx, order.BuyerID, rating)
}
