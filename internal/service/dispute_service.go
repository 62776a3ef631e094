package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rustaceolibre/marketplace-backend/internal/clock"
	"github.com/rustaceolibre/marketplace-backend/internal/fee"
	"github.com/rustaceolibre/marketplace-backend/internal/logger"
	"github.com/rustaceolibre/marketplace-backend/internal/models"
	"github.com/rustaceolibre/marketplace-backend/internal/pkg/apperror"
	"github.com/rustaceolibre/marketplace-backend/internal/validation"
)

// DisputeStore описывает хранилище диспутов.
type DisputeStore interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id int64) (*models.Dispute, error)
	GetByOrderID(ctx context.Context, orderID int64) (*models.Dispute, error)
	SetCounterArgument(ctx context.Context, id int64, argument string) (bool, error)
	Resolve(ctx context.Context, id int64, status string, arbiterID uuid.UUID, resolution string, at time.Time) (bool, error)
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID uuid.UUID, openOnly bool) ([]models.Dispute, error)
	ListOpen(ctx context.Context) ([]models.Dispute, error)
}

// DisputeOrderStore — доступ сервиса диспутов к заказам.
type DisputeOrderStore interface {
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	SettleFunds(ctx context.Context, id int64) (bool, error)
	ClearDispute(ctx context.Context, id int64) error
}

// DisputeService реализует арбитраж заказов. Диспут открывает покупатель,
// пока средства не расчитаны; продавец отвечает один раз контраргументом;
// решение выносит персонал платформы. На время открытого диспута расчётные
// операции по заказу заморожены.
type DisputeService struct {
	disputes DisputeStore
	orders   DisputeOrderStore
	treasury Treasurer
	notifier Notifier
	fees     *fee.Calculator
	clock    clock.Clock
	platform uuid.UUID
	log      *logrus.Entry
}

// NewDisputeService создаёт сервис диспутов.
func NewDisputeService(
	disputes DisputeStore,
	orders DisputeOrderStore,
	treasury Treasurer,
	notifier Notifier,
	fees *fee.Calculator,
	clk clock.Clock,
	platformOwnerID uuid.UUID,
) *DisputeService {
	return &DisputeService{
		disputes: disputes,
		orders:   orders,
		treasury: treasury,
		notifier: notifier,
		fees:     fees,
		clock:    clk,
		platform: platformOwnerID,
		log:      logger.WithComponent("disputes"),
	}
}

// DisputeOrder — единая точка входа спора. Первый вызов покупателя
// открывает диспут с его аргументом, вызов продавца по открытому диспуту
// записывает контраргумент. Каждой стороне даётся ровно одно слово:
// повторный аргумент покупателя отклоняется, повторный контраргумент
// продавца ждёт решения арбитра.
func (s *DisputeService) DisputeOrder(ctx context.Context, callerID uuid.UUID, orderID int64, argument string) (*models.Dispute, error) {
	if err := validation.ValidateArgument(argument); err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParticipant(callerID) {
		return nil, apperror.ErrNotParticipant
	}

	if order.DisputeID == nil {
		return s.open(ctx, callerID, order, argument)
	}

	dispute, err := s.disputes.GetByID(ctx, *order.DisputeID)
	if err != nil {
		if apperror.IsNotFound(err) {
			// Висячая ссылка на удалённый диспут: чистим и открываем заново.
			if clearErr := s.orders.ClearDispute(ctx, order.ID); clearErr != nil {
				return nil, clearErr
			}
			order.DisputeID = nil
			return s.open(ctx, callerID, order, argument)
		}
		return nil, err
	}

	// Покупатель проверяется до состояния диспута: при существующем
	// диспуте слово только за продавцом, даже после вердикта.
	if callerID == order.BuyerID {
		return nil, apperror.ErrOnlySellerMayCounterArgue
	}
	if dispute.IsResolved() {
		return nil, apperror.ErrDisputeResolved
	}
	if dispute.Status == models.DisputeStatusAwaitingRuling {
		return nil, apperror.ErrDisputePendingResolution
	}

	ok, err := s.disputes.SetCounterArgument(ctx, dispute.ID, argument)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrDisputePendingResolution
	}

	dispute.SellerArgument = &argument
	dispute.Status = models.DisputeStatusAwaitingRuling

	s.notifier.Notify(ctx, order.BuyerID, EventDisputeCountered, dispute)

	return dispute, nil
}

// Resolve выносит вердикт арбитра. При вердикте в пользу покупателя ему
// возвращается полная стоимость заказа, при вердикте в пользу продавца
// тот получает стоимость за вычетом комиссии платформы. Средства заказа
// расчитываются ровно один раз.
func (s *DisputeService) Resolve(ctx context.Context, arbiter *models.User, disputeID int64, verdict, resolution string) (*models.Dispute, error) {
	if !s.isArbiter(arbiter) {
		return nil, apperror.ErrOnlyStaffMayResolve
	}
	if verdict != models.VerdictBuyer && verdict != models.VerdictSeller {
		return nil, apperror.ErrInvalidVerdict
	}

	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.IsResolved() {
		return nil, apperror.ErrDisputeResolved
	}

	order, err := s.orders.GetByID(ctx, dispute.OrderID)
	if err != nil {
		if apperror.IsNotFound(err) {
			// Диспут без заказа — дефектная запись, вычищаем её.
			if delErr := s.disputes.Delete(ctx, dispute.ID); delErr != nil {
				return nil, delErr
			}
			s.log.WithField("dispute_id", dispute.ID).Warn("удалён диспут без заказа")
			return nil, apperror.ErrOrderNotFound
		}
		return nil, err
	}

	status := models.DisputeStatusResolvedBuyer
	if verdict == models.VerdictSeller {
		status = models.DisputeStatusResolvedSeller
	}

	now := s.clock.Now()
	ok, err := s.disputes.Resolve(ctx, dispute.ID, status, arbiter.ID, resolution, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrDisputeResolved
	}

	dispute.Status = status
	dispute.ArbiterID = &arbiter.ID
	dispute.Resolution = &resolution
	dispute.ResolvedAt = &now

	settled, err := s.orders.SettleFunds(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if !settled {
		// Диспут открывается только при нерасчитанных средствах, сюда
		// можно попасть лишь при гонке с другим арбитром.
		s.log.WithField("order_id", order.ID).Warn("средства заказа уже были расчитаны")
		return dispute, nil
	}

	if verdict == models.VerdictBuyer {
		s.treasury.Transfer(ctx, order.BuyerID, &order.ID, models.TransferKindDisputePayout, order.TotalValue)
	} else {
		payout := s.fees.Payout(order.TotalValue)
		s.treasury.Transfer(ctx, order.SellerID, &order.ID, models.TransferKindDisputePayout, payout)
		s.treasury.Transfer(ctx, s.platform, &order.ID, models.TransferKindPlatformFee, order.TotalValue-payout)
	}

	s.notifier.Notify(ctx, order.BuyerID, EventDisputeResolved, dispute)
	s.notifier.Notify(ctx, order.SellerID, EventDisputeResolved, dispute)

	return dispute, nil
}

// GetDispute возвращает диспут стороне или персоналу.
func (s *DisputeService) GetDispute(ctx context.Context, callerID uuid.UUID, isStaff bool, disputeID int64) (*models.Dispute, error) {
	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !isStaff && dispute.BuyerID != callerID && dispute.SellerID != callerID {
		return nil, apperror.ErrNotParticipant
	}
	return dispute, nil
}

// ListMine возвращает диспуты, где пользователь выступает стороной.
// По умолчанию отдаются только неразрешённые: вердикт убирает диспут
// из открытых списков обеих сторон. openOnly=false показывает архив.
func (s *DisputeService) ListMine(ctx context.Context, userID uuid.UUID, openOnly bool) ([]models.Dispute, error) {
	return s.disputes.ListByUser(ctx, userID, openOnly)
}

// ListOpen возвращает очередь арбитража для персонала.
func (s *DisputeService) ListOpen(ctx context.Context, caller *models.User) ([]models.Dispute, error) {
	if !s.isArbiter(caller) {
		return nil, apperror.ErrOnlyStaffMayResolve
	}
	return s.disputes.ListOpen(ctx)
}

// isArbiter: персонал площадки либо её владелец.
func (s *DisputeService) isArbiter(u *models.User) bool {
	return u.IsStaff || (s.platform != uuid.Nil && u.ID == s.platform)
}

// open создаёт новый диспут по заказу.
func (s *DisputeService) open(ctx context.Context, callerID uuid.UUID, order *models.Order, argument string) (*models.Dispute, error) {
	if callerID != order.BuyerID {
		return nil, apperror.ErrOnlyBuyerMayOpenDispute
	}
	if order.FundsSettled {
		return nil, apperror.ErrDisputeWindowExpired
	}

	dispute := &models.Dispute{
		OrderID:       order.ID,
		BuyerID:       order.BuyerID,
		SellerID:      order.SellerID,
		BuyerArgument: argument,
	}

	if err := s.disputes.Create(ctx, dispute); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, order.SellerID, EventDisputeOpened, dispute)

	return dispute, nil
}
