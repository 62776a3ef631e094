package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rustaceolibre/marketplace-backend/internal/clock"
	"github.com/rustaceolibre/marketplace-backend/internal/fee"
	"github.com/rustaceolibre/marketplace-backend/internal/models"
	"github.com/rustaceolibre/marketplace-backend/internal/pkg/apperror"
)

type mockOrderStore struct {
	mock.Mock
}

func (m *mockOrderStore) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderStore) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockOrderStore) MarkDispatched(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderStore) MarkReceived(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderStore) RequestCancellation(ctx context.Context, id int64, requester uuid.UUID) (bool, error) {
	args := m.Called(ctx, id, requester)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderStore) Cancel(ctx context.Context, order *models.Order, at time.Time) (bool, bool, error) {
	args := m.Called(ctx, order, at)
	return args.Bool(0), args.Bool(1), args.Error(2)
}

func (m *mockOrderStore) ListByBuyer(ctx context.Context, buyerID uuid.UUID, status, category string) ([]models.Order, error) {
	args := m.Called(ctx, buyerID, status, category)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *mockOrderStore) ListBySeller(ctx context.Context, sellerID uuid.UUID, status, category string) ([]models.Order, error) {
	args := m.Called(ctx, sellerID, status, category)
	return args.Get(0).([]models.Order), args.Error(1)
}

type mockCatalogReader struct {
	mock.Mock
}

func (m *mockCatalogReader) GetPublication(ctx context.Context, id int64) (*models.Publication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Publication), args.Error(1)
}

type mockUserReader struct {
	mock.Mock
}

func (m *mockUserReader) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type mockDisputeReader struct {
	mock.Mock
}

func (m *mockDisputeReader) GetByID(ctx context.Context, id int64) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

type mockTreasurer struct {
	mock.Mock
}

func (m *mockTreasurer) Transfer(ctx context.Context, recipientID uuid.UUID, orderID *int64, kind string, amount int64) {
	m.Called(ctx, recipientID, orderID, kind, amount)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) {
	m.Called(ctx, userID, event, data)
}

type orderServiceFixture struct {
	orders   *mockOrderStore
	catalog  *mockCatalogReader
	users    *mockUserReader
	disputes *mockDisputeReader
	treasury *mockTreasurer
	notifier *mockNotifier
	now      time.Time
	platform uuid.UUID
	svc      *OrderService
}

func newOrderServiceFixture(t *testing.T) *orderServiceFixture {
	t.Helper()

	f := &orderServiceFixture{
		orders:   new(mockOrderStore),
		catalog:  new(mockCatalogReader),
		users:    new(mockUserReader),
		disputes: new(mockDisputeReader),
		treasury: new(mockTreasurer),
		notifier: new(mockNotifier),
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		platform: uuid.New(),
	}
	f.svc = NewOrderService(
		f.orders, f.catalog, f.users, f.disputes, f.treasury, f.notifier,
		fee.NewCalculator(25),
		clock.Fixed{T: f.now},
		OrderPolicy{
			SellerClaimWindow: 1440 * time.Hour,
			BuyerCancelWindow: 336 * time.Hour,
			PlatformOwnerID:   f.platform,
		},
	)
	return f
}

func TestOrderService_Purchase_Success(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	buyerID := uuid.New()
	sellerID := uuid.New()

	f.users.On("GetByID", ctx, buyerID).Return(&models.User{ID: buyerID, Role: models.RoleBuyer}, nil)
	f.catalog.On("GetPublication", ctx, int64(7)).Return(&models.Publication{
		ID: 7, ProductID: 3, SellerID: sellerID, OfferedQuantity: 10, UnitPrice: 500,
	}, nil)
	f.orders.On("Create", ctx, mock.AnythingOfType("*models.Order")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Order).ID = 42
	}).Return(nil)
	// Излишек перевода сразу возвращается покупателю.
	f.treasury.On("Transfer", ctx, buyerID, mock.Anything, models.TransferKindPurchaseRemainder, int64(300)).Return()
	f.notifier.On("Notify", ctx, sellerID, EventOrderCreated, mock.Anything).Return()

	order, err := f.svc.Purchase(ctx, buyerID, PurchaseInput{PublicationID: 7, Quantity: 4, TransferredValue: 2300})
	assert.NoError(t, err)
	assert.Equal(t, int64(2000), order.TotalValue)
	assert.Equal(t, sellerID, order.SellerID)
	f.treasury.AssertExpectations(t)
	f.orders.AssertExpectations(t)
}

func TestOrderService_Purchase_ExactValueNoRemainder(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	buyerID := uuid.New()
	sellerID := uuid.New()

	f.users.On("GetByID", ctx, buyerID).Return(&models.User{ID: buyerID, Role: models.RoleBoth}, nil)
	f.catalog.On("GetPublication", ctx, int64(7)).Return(&models.Publication{
		ID: 7, ProductID: 3, SellerID: sellerID, OfferedQuantity: 10, UnitPrice: 500,
	}, nil)
	f.orders.On("Create", ctx, mock.Anything).Return(nil)
	f.notifier.On("Notify", ctx, sellerID, EventOrderCreated, mock.Anything).Return()

	_, err := f.svc.Purchase(ctx, buyerID, PurchaseInput{PublicationID: 7, Quantity: 4, TransferredValue: 2000})
	assert.NoError(t, err)
	f.treasury.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_Purchase_QuantityZero(t *testing.T) {
	f := newOrderServiceFixture(t)

	_, err := f.svc.Purchase(context.Background(), uuid.New(), PurchaseInput{PublicationID: 7, Quantity: 0, TransferredValue: 100})
	assert.ErrorIs(t, err, apperror.ErrQuantityZero)
}

func TestOrderService_Purchase_NotBuyerRole(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	callerID := uuid.New()

	f.users.On("GetByID", ctx, callerID).Return(&models.User{ID: callerID, Role: models.RoleSeller}, nil)

	_, err := f.svc.Purchase(ctx, callerID, PurchaseInput{PublicationID: 7, Quantity: 1, TransferredValue: 100})
	assert.ErrorIs(t, err, apperror.ErrNotBuyerRole)
}

func TestOrderService_Purchase_SelfPurchase(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	sellerID := uuid.New()

	f.users.On("GetByID", ctx, sellerID).Return(&models.User{ID: sellerID, Role: models.RoleBoth}, nil)
	f.catalog.On("GetPublication", ctx, int64(7)).Return(&models.Publication{
		ID: 7, SellerID: sellerID, OfferedQuantity: 10, UnitPrice: 500,
	}, nil)

	_, err := f.svc.Purchase(ctx, sellerID, PurchaseInput{PublicationID: 7, Quantity: 1, TransferredValue: 500})
	assert.ErrorIs(t, err, apperror.ErrSellerSelfPurchase)
}

func TestOrderService_Purchase_InsufficientStock(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	buyerID := uuid.New()

	f.users.On("GetByID", ctx, buyerID).Return(&models.User{ID: buyerID, Role: models.RoleBuyer}, nil)
	f.catalog.On("GetPublication", ctx, int64(7)).Return(&models.Publication{
		ID: 7, SellerID: uuid.New(), OfferedQuantity: 3, UnitPrice: 500,
	}, nil)

	_, err := f.svc.Purchase(ctx, buyerID, PurchaseInput{PublicationID: 7, Quantity: 4, TransferredValue: 5000})
	assert.ErrorIs(t, err, apperror.ErrInsufficientSellerStock)
}

func TestOrderService_Purchase_ValueOverflow(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	buyerID := uuid.New()

	f.users.On("GetByID", ctx, buyerID).Return(&models.User{ID: buyerID, Role: models.RoleBuyer}, nil)
	f.catalog.On("GetPublication", ctx, int64(7)).Return(&models.Publication{
		ID: 7, SellerID: uuid.New(), OfferedQuantity: math.MaxInt64, UnitPrice: math.MaxInt64,
	}, nil)

	_, err := f.svc.Purchase(ctx, buyerID, PurchaseInput{PublicationID: 7, Quantity: 2, TransferredValue: math.MaxInt64})
	assert.ErrorIs(t, err, apperror.ErrValueComputation)
}

func TestOrderService_Purchase_InsufficientTransferredValue(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	buyerID := uuid.New()

	f.users.On("GetByID", ctx, buyerID).Return(&models.User{ID: buyerID, Role: models.RoleBuyer}, nil)
	f.catalog.On("GetPublication", ctx, int64(7)).Return(&models.Publication{
		ID: 7, SellerID: uuid.New(), OfferedQuantity: 10, UnitPrice: 500,
	}, nil)

	_, err := f.svc.Purchase(ctx, buyerID, PurchaseInput{PublicationID: 7, Quantity: 4, TransferredValue: 1999})
	assert.ErrorIs(t, err, apperror.ErrInsufficientTransferredValue)
}

func TestOrderService_Dispatch_Success(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := pendingOrder()

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)
	f.orders.On("MarkDispatched", ctx, order.ID, f.now).Return(true, nil)
	f.notifier.On("Notify", ctx, order.BuyerID, EventOrderDispatched, mock.Anything).Return()

	updated, err := f.svc.Dispatch(ctx, order.SellerID, order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusDispatched, updated.Status)
	assert.Equal(t, f.now, *updated.DispatchedAt)
}

func TestOrderService_Dispatch_OnlySeller(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := pendingOrder()

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := f.svc.Dispatch(ctx, order.BuyerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrOnlySellerMayDispatch)
}

func TestOrderService_Dispatch_Outsider(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := pendingOrder()

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := f.svc.Dispatch(ctx, uuid.New(), order.ID)
	assert.ErrorIs(t, err, apperror.ErrNotParticipant)
}

func TestOrderService_Dispatch_AlreadyDispatched(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := pendingOrder()
	order.Status = models.OrderStatusDispatched

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := f.svc.Dispatch(ctx, order.SellerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrOrderAlreadyDispatched)
}

func TestOrderService_Dispatch_Cancelled(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := pendingOrder()
	order.Status = models.OrderStatusCancelled

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := f.svc.Dispatch(ctx, order.SellerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrOrderCancelled)
}

func TestOrderService_Receive_SettlesExactlyOnce(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := dispatchedOrder(f.now.Add(-time.Hour))

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)
	f.orders.On("MarkReceived", ctx, order.ID, f.now).Return(true, nil)
	// Комиссия 25 промилле с 10000: продавцу 9750, платформе 250.
	f.treasury.On("Transfer", ctx, order.SellerID, mock.Anything, models.TransferKindOrderSettlement, int64(9750)).Return()
	f.treasury.On("Transfer", ctx, f.platform, mock.Anything, models.TransferKindPlatformFee, int64(250)).Return()
	f.notifier.On("Notify", ctx, order.SellerID, EventOrderReceived, mock.Anything).Return()

	updated, err := f.svc.Receive(ctx, order.BuyerID, order.ID)
	assert.NoError(t, err)
	assert.True(t, updated.FundsSettled)
	assert.Equal(t, models.OrderStatusReceived, updated.Status)
	f.treasury.AssertExpectations(t)
}

func TestOrderService_Receive_RaceLosesSettlement(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := dispatchedOrder(f.now.Add(-time.Hour))

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)
	f.orders.On("MarkReceived", ctx, order.ID, f.now).Return(false, nil)

	_, err := f.svc.Receive(ctx, order.BuyerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrFundsAlreadySettled)
	f.treasury.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_Receive_OnlyBuyer(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := dispatchedOrder(f.now.Add(-time.Hour))

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := f.svc.Receive(ctx, order.SellerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrOnlyBuyerMayReceive)
}

func TestOrderService_Receive_NotDispatched(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := pendingOrder()

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := f.svc.Receive(ctx, order.BuyerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrOrderNotDispatched)
}

func TestOrderService_Receive_FrozenByOpenDispute(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := dispatchedOrder(f.now.Add(-time.Hour))
	disputeID := int64(5)
	order.DisputeID = &disputeID

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)
	f.disputes.On("GetByID", ctx, disputeID).Return(&models.Dispute{
		ID: disputeID, Status: models.DisputeStatusAwaitingRuling,
	}, nil)

	_, err := f.svc.Receive(ctx, order.BuyerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrDisputeInProgress)
}

func TestOrderService_Receive_ResolvedDisputeDoesNotFreeze(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := dispatchedOrder(f.now.Add(-time.Hour))
	disputeID := int64(5)
	order.DisputeID = &disputeID

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)
	f.disputes.On("GetByID", ctx, disputeID).Return(&models.Dispute{
		ID: disputeID, Status: models.DisputeStatusResolvedSeller,
	}, nil)
	f.orders.On("MarkReceived", ctx, order.ID, f.now).Return(true, nil)
	f.treasury.On("Transfer", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	f.notifier.On("Notify", ctx, mock.Anything, mock.Anything, mock.Anything).Return()

	_, err := f.svc.Receive(ctx, order.BuyerID, order.ID)
	assert.NoError(t, err)
}

func TestOrderService_ClaimFunds_WindowElapsed(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := dispatchedOrder(f.now.Add(-1440 * time.Hour))

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)
	f.orders.On("MarkReceived", ctx, order.ID, f.now).Return(true, nil)
	f.treasury.On("Transfer", ctx, order.SellerID, mock.Anything, models.TransferKindOrderSettlement, int64(9750)).Return()
	f.treasury.On("Transfer", ctx, f.platform, mock.Anything, models.TransferKindPlatformFee, int64(250)).Return()
	f.notifier.On("Notify", ctx, order.BuyerID, EventOrderClaimed, mock.Anything).Return()

	updated, err := f.svc.ClaimFunds(ctx, order.SellerID, order.ID)
	assert.NoError(t, err)
	assert.True(t, updated.FundsSettled)
	// Истребование завершает заказ как полученный.
	assert.Equal(t, models.OrderStatusReceived, updated.Status)
	assert.Equal(t, f.now, *updated.ReceivedAt)
	f.treasury.AssertExpectations(t)
}

func TestOrderService_ClaimFunds_ClaimedOrderCanBeRated(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := dispatchedOrder(f.now.Add(-1500 * time.Hour))

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)
	f.orders.On("MarkReceived", ctx, order.ID, f.now).Return(true, nil)
	f.treasury.On("Transfer", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	f.notifier.On("Notify", ctx, mock.Anything, mock.Anything, mock.Anything).Return()

	claimed, err := f.svc.ClaimFunds(ctx, order.SellerID, order.ID)
	assert.NoError(t, err)

	// После истребования стороны могут оценить друг друга.
	ratingOrders := new(mockRatingOrderStore)
	ratingUsers := new(mockRatingUserStore)
	ratings := NewRatingService(ratingOrders, ratingUsers)

	ratingOrders.On("GetByID", ctx, claimed.ID).Return(claimed, nil)
	ratingOrders.On("SetBuyerRating", ctx, claimed.ID, 4).Return(true, nil)
	ratingUsers.On("AddSellerRating", ctx, claimed.SellerID, 4).Return(nil)

	assert.NoError(t, ratings.RateOrder(ctx, claimed.BuyerID, claimed.ID, 4))
}

func TestOrderService_ClaimFunds_TooEarly(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := dispatchedOrder(f.now.Add(-1440*time.Hour + time.Second))

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := f.svc.ClaimFunds(ctx, order.SellerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrClaimPolicyNotMet)
}

func TestOrderService_ClaimFunds_BackwardsClock(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	// Отправка «в будущем»: системные часы ушли назад. Политика не выполнена.
	order := dispatchedOrder(f.now.Add(time.Hour))

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := f.svc.ClaimFunds(ctx, order.SellerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrClaimPolicyNotMet)
}

func TestOrderService_ClaimFunds_OnlySeller(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := dispatchedOrder(f.now.Add(-2000 * time.Hour))

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := f.svc.ClaimFunds(ctx, order.BuyerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrOnlySellerMayClaim)
}

func TestOrderService_ClaimFunds_AlreadySettled(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := dispatchedOrder(f.now.Add(-2000 * time.Hour))
	order.FundsSettled = true

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := f.svc.ClaimFunds(ctx, order.SellerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrFundsAlreadySettled)
}

func TestOrderService_Cancel_FirstRequestRecorded(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := pendingOrder()

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)
	f.orders.On("RequestCancellation", ctx, order.ID, order.SellerID).Return(true, nil)
	f.notifier.On("Notify", ctx, order.BuyerID, EventOrderCancelRequested, mock.Anything).Return()

	outcome, err := f.svc.Cancel(ctx, order.SellerID, order.ID)
	assert.NoError(t, err)
	assert.False(t, outcome.Finalized)
	f.orders.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_Cancel_SameCallerAgain(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := pendingOrder()
	order.CancellationRequestedBy = &order.SellerID

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := f.svc.Cancel(ctx, order.SellerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrAwaitingMutualConfirmation)
}

func TestOrderService_Cancel_OtherPartyFinalizes(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := pendingOrder()
	order.CancellationRequestedBy = &order.SellerID

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)
	f.orders.On("Cancel", ctx, order, f.now).Return(true, false, nil)
	f.treasury.On("Transfer", ctx, order.BuyerID, mock.Anything, models.TransferKindCancellationRefund, order.TotalValue).Return()
	f.notifier.On("Notify", ctx, order.BuyerID, EventOrderCancelled, mock.Anything).Return()
	f.notifier.On("Notify", ctx, order.SellerID, EventOrderCancelled, mock.Anything).Return()

	outcome, err := f.svc.Cancel(ctx, order.BuyerID, order.ID)
	assert.NoError(t, err)
	assert.True(t, outcome.Finalized)
	assert.False(t, outcome.Unilateral)
	f.treasury.AssertExpectations(t)
}

func TestOrderService_Cancel_StockLostLoggedNotFatal(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := pendingOrder()
	order.CancellationRequestedBy = &order.SellerID

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)
	f.orders.On("Cancel", ctx, order, f.now).Return(true, true, nil)
	f.treasury.On("Transfer", ctx, order.BuyerID, mock.Anything, models.TransferKindCancellationRefund, order.TotalValue).Return()
	f.notifier.On("Notify", ctx, mock.Anything, mock.Anything, mock.Anything).Return()

	outcome, err := f.svc.Cancel(ctx, order.BuyerID, order.ID)
	assert.NoError(t, err)
	assert.True(t, outcome.Finalized)
	assert.True(t, outcome.StockLost)
}

func TestOrderService_Cancel_UnilateralByBuyerAfterWindow(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := pendingOrder()
	order.CreatedAt = f.now.Add(-336 * time.Hour)

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)
	f.orders.On("Cancel", ctx, order, f.now).Return(true, false, nil)
	f.treasury.On("Transfer", ctx, order.BuyerID, mock.Anything, models.TransferKindCancellationRefund, order.TotalValue).Return()
	f.notifier.On("Notify", ctx, mock.Anything, mock.Anything, mock.Anything).Return()

	outcome, err := f.svc.Cancel(ctx, order.BuyerID, order.ID)
	assert.NoError(t, err)
	assert.True(t, outcome.Finalized)
	assert.True(t, outcome.Unilateral)
	f.orders.AssertNotCalled(t, "RequestCancellation", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_Cancel_UnilateralNotAvailableWhenDispatched(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := dispatchedOrder(f.now.Add(-time.Hour))
	order.CreatedAt = f.now.Add(-400 * time.Hour)

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)
	f.orders.On("RequestCancellation", ctx, order.ID, order.BuyerID).Return(true, nil)
	f.notifier.On("Notify", ctx, order.SellerID, EventOrderCancelRequested, mock.Anything).Return()

	outcome, err := f.svc.Cancel(ctx, order.BuyerID, order.ID)
	assert.NoError(t, err)
	assert.False(t, outcome.Finalized)
}

func TestOrderService_Cancel_ReceivedOrder(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := pendingOrder()
	order.Status = models.OrderStatusReceived
	order.FundsSettled = true

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := f.svc.Cancel(ctx, order.BuyerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrOrderAlreadyReceived)
}

func TestOrderService_Cancel_FundsSettled(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := dispatchedOrder(f.now.Add(-time.Hour))
	order.FundsSettled = true

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := f.svc.Cancel(ctx, order.BuyerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrFundsAlreadySettled)
}

func TestOrderService_Cancel_FrozenByOpenDispute(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	order := dispatchedOrder(f.now.Add(-time.Hour))
	disputeID := int64(9)
	order.DisputeID = &disputeID

	f.orders.On("GetByID", ctx, order.ID).Return(order, nil)
	f.disputes.On("GetByID", ctx, disputeID).Return(&models.Dispute{
		ID: disputeID, Status: models.DisputeStatusAwaitingCounter,
	}, nil)

	_, err := f.svc.Cancel(ctx, order.BuyerID, order.ID)
	assert.ErrorIs(t, err, apperror.ErrDisputeInProgress)
}

func TestOrderService_ListPurchases_InvalidStatus(t *testing.T) {
	f := newOrderServiceFixture(t)

	_, err := f.svc.ListPurchases(context.Background(), uuid.New(), "shipped", "")
	assert.Error(t, err)
}

func TestOrderService_ListSales_Filtered(t *testing.T) {
	f := newOrderServiceFixture(t)
	ctx := context.Background()
	sellerID := uuid.New()

	f.orders.On("ListBySeller", ctx, sellerID, models.OrderStatusPending, models.CategoryFood).
		Return([]models.Order{{ID: 1}, {ID: 2}}, nil)

	orders, err := f.svc.ListSales(ctx, sellerID, models.OrderStatusPending, models.CategoryFood)
	assert.NoError(t, err)
	assert.Len(t, orders, 2)
}

func pendingOrder() *models.Order {
	return &models.Order{
		ID:            42,
		PublicationID: 7,
		ProductID:     3,
		Quantity:      4,
		TotalValue:    10000,
		Status:        models.OrderStatusPending,
		BuyerID:       uuid.New(),
		SellerID:      uuid.New(),
		CreatedAt:     time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC),
	}
}

func dispatchedOrder(dispatchedAt time.Time) *models.Order {
	order := pendingOrder()
	order.Status = models.OrderStatusDispatched
	order.DispatchedAt = &dispatchedAt
	return order
}
