package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rustaceolibre/marketplace-backend/internal/clock"
	"github.com/rustaceolibre/marketplace-backend/internal/fee"
	"github.com/rustaceolibre/marketplace-backend/internal/logger"
	"github.com/rustaceolibre/marketplace-backend/internal/models"
	"github.com/rustaceolibre/marketplace-backend/internal/pkg/apperror"
)

// OrderStore описывает взаимодействие сервиса с хранилищем заказов.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	MarkDispatched(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkReceived(ctx context.Context, id int64, at time.Time) (bool, error)
	RequestCancellation(ctx context.Context, id int64, requester uuid.UUID) (bool, error)
	Cancel(ctx context.Context, order *models.Order, at time.Time) (bool, bool, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, status, category string) ([]models.Order, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, status, category string) ([]models.Order, error)
}

// CatalogReader даёт сервису заказов доступ к витрине.
type CatalogReader interface {
	GetPublication(ctx context.Context, id int64) (*models.Publication, error)
}

// UserReader даёт доступ к пользователям для проверки ролей.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// DisputeReader нужен для заморозки расчётов на время открытого диспута.
type DisputeReader interface {
	GetByID(ctx context.Context, id int64) (*models.Dispute, error)
}

// Treasurer оформляет выплаты. Вызовы не возвращают ошибку: заказ к этому
// моменту уже переведён в новое состояние.
type Treasurer interface {
	Transfer(ctx context.Context, recipientID uuid.UUID, orderID *int64, kind string, amount int64)
}

// Notifier доставляет события участникам.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data interface{})
}

// OrderPolicy задаёт временные окна жизненного цикла заказа.
type OrderPolicy struct {
	// Через сколько после отправки продавец может истребовать средства,
	// если покупатель так и не подтвердил получение.
	SellerClaimWindow time.Duration
	// Через сколько после создания покупатель может отменить не
	// отправленный заказ в одностороннем порядке.
	BuyerCancelWindow time.Duration
	// Получатель комиссии платформы.
	PlatformOwnerID uuid.UUID
}

// PurchaseInput содержит параметры покупки.
type PurchaseInput struct {
	PublicationID    int64
	Quantity         int64
	TransferredValue int64
}

// CancelOutcome описывает результат запроса отмены.
type CancelOutcome struct {
	// Finalized сообщает, что заказ отменён. Если false, заявка записана
	// и ожидается подтверждение второй стороны.
	Finalized bool
	// Unilateral сообщает, что отмена прошла по одностороннему праву
	// покупателя, без согласия продавца.
	Unilateral bool
	// StockLost сообщает, что публикация исчезла и количество не удалось
	// вернуть на витрину.
	StockLost bool
}

// OrderService реализует жизненный цикл эскроу-заказа. Средства покупателя
// удерживаются платформой с момента покупки и выплачиваются ровно один раз:
// продавцу при подтверждении получения или по политике истребования,
// покупателю при отмене или по вердикту арбитра.
type OrderService struct {
	orders   OrderStore
	catalog  CatalogReader
	users    UserReader
	disputes DisputeReader
	treasury Treasurer
	notifier Notifier
	fees     *fee.Calculator
	clock    clock.Clock
	policy   OrderPolicy
	log      *logrus.Entry
}

// NewOrderService создаёт сервис заказов.
func NewOrderService(
	orders OrderStore,
	catalog CatalogReader,
	users UserReader,
	disputes DisputeReader,
	treasury Treasurer,
	notifier Notifier,
	fees *fee.Calculator,
	clk clock.Clock,
	policy OrderPolicy,
) *OrderService {
	return &OrderService{
		orders:   orders,
		catalog:  catalog,
		users:    users,
		disputes: disputes,
		treasury: treasury,
		notifier: notifier,
		fees:     fees,
		clock:    clk,
		policy:   policy,
		log:      logger.WithComponent("orders"),
	}
}

// Purchase создаёт заказ по публикации. Переведённая сумма должна покрывать
// полную стоимость; излишек сразу возвращается покупателю. Количество
// списывается с витрины атомарно с созданием заказа.
func (s *OrderService) Purchase(ctx context.Context, buyerID uuid.UUID, in PurchaseInput) (*models.Order, error) {
	if in.Quantity <= 0 {
		return nil, apperror.ErrQuantityZero
	}

	buyer, err := s.users.GetByID(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if !buyer.IsBuyer() {
		return nil, apperror.ErrNotBuyerRole
	}

	pub, err := s.catalog.GetPublication(ctx, in.PublicationID)
	if err != nil {
		return nil, err
	}
	if pub.SellerID == buyerID {
		return nil, apperror.ErrSellerSelfPurchase
	}
	if pub.OfferedQuantity < in.Quantity {
		return nil, apperror.ErrInsufficientSellerStock
	}

	total, ok := mulInt64(pub.UnitPrice, in.Quantity)
	if !ok {
		return nil, apperror.ErrValueComputation
	}
	if in.TransferredValue < total {
		return nil, apperror.ErrInsufficientTransferredValue
	}

	order := &models.Order{
		PublicationID: pub.ID,
		ProductID:     pub.ProductID,
		Quantity:      in.Quantity,
		TotalValue:    total,
		BuyerID:       buyerID,
		SellerID:      pub.SellerID,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	// Излишек перевода не удерживается в эскроу и сразу возвращается.
	if remainder := in.TransferredValue - total; remainder > 0 {
		s.treasury.Transfer(ctx, buyerID, &order.ID, models.TransferKindPurchaseRemainder, remainder)
	}

	s.notifier.Notify(ctx, order.SellerID, EventOrderCreated, order)

	return order, nil
}

// Dispatch отмечает заказ отправленным. Доступно только продавцу и только
// из состояния ожидания отправки.
func (s *OrderService) Dispatch(ctx context.Context, callerID uuid.UUID, orderID int64) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParticipant(callerID) {
		return nil, apperror.ErrNotParticipant
	}
	if callerID != order.SellerID {
		return nil, apperror.ErrOnlySellerMayDispatch
	}
	if err := requireStatus(order, models.OrderStatusPending); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ok, err := s.orders.MarkDispatched(ctx, orderID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrOrderNotPending
	}

	order.Status = models.OrderStatusDispatched
	order.DispatchedAt = &now

	s.notifier.Notify(ctx, order.BuyerID, EventOrderDispatched, order)

	return order, nil
}

// Receive подтверждает получение заказа покупателем. Переход рассчитывает
// средства ровно один раз: продавец получает стоимость за вычетом
// комиссии, комиссия уходит владельцу платформы.
func (s *OrderService) Receive(ctx context.Context, callerID uuid.UUID, orderID int64) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParticipant(callerID) {
		return nil, apperror.ErrNotParticipant
	}
	if callerID != order.BuyerID {
		return nil, apperror.ErrOnlyBuyerMayReceive
	}
	if err := requireStatus(order, models.OrderStatusDispatched); err != nil {
		return nil, err
	}
	if order.FundsSettled {
		return nil, apperror.ErrFundsAlreadySettled
	}
	if err := s.requireNoOpenDispute(ctx, order); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ok, err := s.orders.MarkReceived(ctx, orderID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrFundsAlreadySettled
	}

	order.Status = models.OrderStatusReceived
	order.ReceivedAt = &now
	order.FundsSettled = true

	s.settleToSeller(ctx, order, models.TransferKindOrderSettlement)
	s.notifier.Notify(ctx, order.SellerID, EventOrderReceived, order)

	return order, nil
}

// ClaimFunds выплачивает продавцу средства по давно отправленному заказу,
// который покупатель так и не подтвердил. Заказ при этом переходит в
// received, как при обычном подтверждении. Окно отсчитывается от момента
// отправки; если часы ушли назад и отправка оказалась в будущем,
// политика считается невыполненной.
func (s *OrderService) ClaimFunds(ctx context.Context, callerID uuid.UUID, orderID int64) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParticipant(callerID) {
		return nil, apperror.ErrNotParticipant
	}
	if callerID != order.SellerID {
		return nil, apperror.ErrOnlySellerMayClaim
	}
	if err := requireStatus(order, models.OrderStatusDispatched); err != nil {
		return nil, err
	}
	if order.FundsSettled {
		return nil, apperror.ErrFundsAlreadySettled
	}
	if err := s.requireNoOpenDispute(ctx, order); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if order.DispatchedAt == nil || now.Sub(*order.DispatchedAt) < s.policy.SellerClaimWindow {
		return nil, apperror.ErrClaimPolicyNotMet
	}

	ok, err := s.orders.MarkReceived(ctx, orderID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrFundsAlreadySettled
	}

	order.Status = models.OrderStatusReceived
	order.ReceivedAt = &now
	order.FundsSettled = true

	s.settleToSeller(ctx, order, models.TransferKindOrderSettlement)
	s.notifier.Notify(ctx, order.BuyerID, EventOrderClaimed, order)

	return order, nil
}

// Cancel обрабатывает запрос отмены. Пока средства не расчитаны, отмена
// возможна двумя путями: по взаимному согласию, когда первая заявка
// записывается, а вторая сторона её подтверждает, и в одностороннем
// порядке покупателем, если продавец долго не отправляет заказ.
// Отменённый заказ полностью возмещается покупателю.
func (s *OrderService) Cancel(ctx context.Context, callerID uuid.UUID, orderID int64) (*CancelOutcome, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParticipant(callerID) {
		return nil, apperror.ErrNotParticipant
	}
	switch order.Status {
	case models.OrderStatusReceived:
		return nil, apperror.ErrOrderAlreadyReceived
	case models.OrderStatusCancelled:
		return nil, apperror.ErrOrderCancelled
	}
	if order.FundsSettled {
		return nil, apperror.ErrFundsAlreadySettled
	}
	if err := s.requireNoOpenDispute(ctx, order); err != nil {
		return nil, err
	}

	if callerID == order.BuyerID && order.Status == models.OrderStatusPending &&
		s.clock.Now().Sub(order.CreatedAt) >= s.policy.BuyerCancelWindow {
		outcome, err := s.finalizeCancellation(ctx, order)
		if err != nil {
			return nil, err
		}
		outcome.Unilateral = true
		s.log.WithFields(logrus.Fields{
			"order_id": order.ID,
			"buyer_id": order.BuyerID,
		}).Info("односторонняя отмена по истечении окна отправки")
		return outcome, nil
	}

	if order.CancellationRequestedBy == nil {
		ok, err := s.orders.RequestCancellation(ctx, orderID, callerID)
		if err != nil {
			return nil, err
		}
		if ok {
			other := order.SellerID
			if callerID == order.SellerID {
				other = order.BuyerID
			}
			s.notifier.Notify(ctx, other, EventOrderCancelRequested, order)
			return &CancelOutcome{}, nil
		}
		// Конкурентная заявка успела записаться первой, перечитываем.
		order, err = s.orders.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
	}

	if order.CancellationRequestedBy != nil && *order.CancellationRequestedBy == callerID {
		return nil, apperror.ErrAwaitingMutualConfirmation
	}

	return s.finalizeCancellation(ctx, order)
}

// GetOrder возвращает заказ участнику или персоналу.
func (s *OrderService) GetOrder(ctx context.Context, callerID uuid.UUID, isStaff bool, orderID int64) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isStaff && !order.IsParticipant(callerID) {
		return nil, apperror.ErrNotParticipant
	}
	return order, nil
}

// ListPurchases возвращает покупки пользователя с фильтрами по статусу
// заказа и категории товара.
func (s *OrderService) ListPurchases(ctx context.Context, buyerID uuid.UUID, status, category string) ([]models.Order, error) {
	if err := validateOrderFilters(status, category); err != nil {
		return nil, err
	}
	return s.orders.ListByBuyer(ctx, buyerID, status, category)
}

// ListSales возвращает продажи пользователя с теми же фильтрами.
func (s *OrderService) ListSales(ctx context.Context, sellerID uuid.UUID, status, category string) ([]models.Order, error) {
	if err := validateOrderFilters(status, category); err != nil {
		return nil, err
	}
	return s.orders.ListBySeller(ctx, sellerID, status, category)
}

// finalizeCancellation переводит заказ в cancelled и возвращает покупателю
// полную стоимость. Возврат количества на витрину best-effort: если
// публикации больше нет, количество теряется, но отмена не срывается.
func (s *OrderService) finalizeCancellation(ctx context.Context, order *models.Order) (*CancelOutcome, error) {
	now := s.clock.Now()
	cancelled, stockLost, err := s.orders.Cancel(ctx, order, now)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, apperror.ErrFundsAlreadySettled
	}

	order.Status = models.OrderStatusCancelled
	order.CancelledAt = &now
	order.FundsSettled = true

	if stockLost {
		s.log.WithFields(logrus.Fields{
			"order_id":       order.ID,
			"publication_id": order.PublicationID,
			"quantity":       order.Quantity,
		}).Warn("публикация исчезла, количество не возвращено на витрину")
	}

	s.treasury.Transfer(ctx, order.BuyerID, &order.ID, models.TransferKindCancellationRefund, order.TotalValue)
	s.notifier.Notify(ctx, order.BuyerID, EventOrderCancelled, order)
	s.notifier.Notify(ctx, order.SellerID, EventOrderCancelled, order)

	return &CancelOutcome{Finalized: true, StockLost: stockLost}, nil
}

// settleToSeller выплачивает продавцу стоимость заказа за вычетом комиссии.
func (s *OrderService) settleToSeller(ctx context.Context, order *models.Order, kind string) {
	payout := s.fees.Payout(order.TotalValue)
	platformFee := order.TotalValue - payout

	s.treasury.Transfer(ctx, order.SellerID, &order.ID, kind, payout)
	s.treasury.Transfer(ctx, s.policy.PlatformOwnerID, &order.ID, models.TransferKindPlatformFee, platformFee)
}

// requireNoOpenDispute замораживает расчётные операции на время диспута.
func (s *OrderService) requireNoOpenDispute(ctx context.Context, order *models.Order) error {
	if order.DisputeID == nil {
		return nil
	}
	dispute, err := s.disputes.GetByID(ctx, *order.DisputeID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if !dispute.IsResolved() {
		return apperror.ErrDisputeInProgress
	}
	return nil
}

func requireStatus(order *models.Order, want string) error {
	if order.Status == want {
		return nil
	}
	switch order.Status {
	case models.OrderStatusPending:
		return apperror.ErrOrderNotDispatched
	case models.OrderStatusDispatched:
		return apperror.ErrOrderAlreadyDispatched
	case models.OrderStatusReceived:
		return apperror.ErrOrderAlreadyReceived
	case models.OrderStatusCancelled:
		return apperror.ErrOrderCancelled
	}
	return apperror.ErrOrderNotPending
}

func validateOrderFilters(status, category string) error {
	if status != "" {
		if _, ok := models.ValidOrderStatuses[status]; !ok {
			return apperror.New(apperror.ErrCodeValidation, "неизвестный статус заказа")
		}
	}
	if category != "" {
		if _, ok := models.ValidCategories[category]; !ok {
			return apperror.New(apperror.ErrCodeValidation, "неизвестная категория")
		}
	}
	return nil
}

// mulInt64 умножает с контролем переполнения.
func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}
