package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rustaceolibre/marketplace-backend/internal/models"
	"github.com/rustaceolibre/marketplace-backend/internal/pkg/apperror"
)

type mockCatalogStore struct {
	mock.Mock
}

func (m *mockCatalogStore) CreateProduct(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockCatalogStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *mockCatalogStore) AddStock(ctx context.Context, productID int64, sellerID uuid.UUID, amount int64) error {
	args := m.Called(ctx, productID, sellerID, amount)
	return args.Error(0)
}

func (m *mockCatalogStore) CreatePublication(ctx context.Context, pub *models.Publication) error {
	args := m.Called(ctx, pub)
	return args.Error(0)
}

func (m *mockCatalogStore) GetPublication(ctx context.Context, id int64) (*models.Publication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Publication), args.Error(1)
}

func (m *mockCatalogStore) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Publication, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).([]models.Publication), args.Error(1)
}

func (m *mockCatalogStore) ListPublications(ctx context.Context, category string) ([]models.Publication, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]models.Publication), args.Error(1)
}

func (m *mockCatalogStore) AdjustOfferedQuantity(ctx context.Context, publicationID int64, sellerID uuid.UUID, delta int64) error {
	args := m.Called(ctx, publicationID, sellerID, delta)
	return args.Error(0)
}

func newCatalogServiceFixture() (*CatalogService, *mockCatalogStore, *mockUserReader) {
	repo := new(mockCatalogStore)
	users := new(mockUserReader)
	return NewCatalogService(repo, users), repo, users
}

func TestCatalogService_RegisterProduct_Success(t *testing.T) {
	svc, repo, users := newCatalogServiceFixture()
	ctx := context.Background()
	sellerID := uuid.New()

	users.On("GetByID", ctx, sellerID).Return(&models.User{ID: sellerID, Role: models.RoleSeller}, nil)
	repo.On("CreateProduct", ctx, mock.AnythingOfType("*models.Product")).Return(nil)

	product, err := svc.RegisterProduct(ctx, sellerID, ProductInput{
		Name:     "  Чайник  ",
		Category: models.CategoryHome,
		Stock:    20,
	})
	assert.NoError(t, err)
	assert.Equal(t, "Чайник", product.Name)
	assert.Equal(t, int64(20), product.Stock)
}

func TestCatalogService_RegisterProduct_NotSeller(t *testing.T) {
	svc, _, users := newCatalogServiceFixture()
	ctx := context.Background()
	callerID := uuid.New()

	users.On("GetByID", ctx, callerID).Return(&models.User{ID: callerID, Role: models.RoleBuyer}, nil)

	_, err := svc.RegisterProduct(ctx, callerID, ProductInput{Name: "Чайник", Category: models.CategoryHome})
	assert.ErrorIs(t, err, apperror.ErrNotSellerRole)
}

func TestCatalogService_RegisterProduct_UnknownCategory(t *testing.T) {
	svc, _, users := newCatalogServiceFixture()
	ctx := context.Background()
	sellerID := uuid.New()

	users.On("GetByID", ctx, sellerID).Return(&models.User{ID: sellerID, Role: models.RoleSeller}, nil)

	_, err := svc.RegisterProduct(ctx, sellerID, ProductInput{Name: "Чайник", Category: "gadgets"})
	assert.Error(t, err)
}

func TestCatalogService_AddStock_PositiveOnly(t *testing.T) {
	svc, _, _ := newCatalogServiceFixture()

	_, err := svc.AddStock(context.Background(), uuid.New(), 1, 0)
	assert.ErrorIs(t, err, apperror.ErrQuantityZero)
}

func TestCatalogService_Publish_Success(t *testing.T) {
	svc, repo, users := newCatalogServiceFixture()
	ctx := context.Background()
	sellerID := uuid.New()

	users.On("GetByID", ctx, sellerID).Return(&models.User{ID: sellerID, Role: models.RoleBoth}, nil)
	repo.On("GetProduct", ctx, int64(3)).Return(&models.Product{ID: 3, SellerID: sellerID, Stock: 50}, nil)
	repo.On("CreatePublication", ctx, mock.AnythingOfType("*models.Publication")).Return(nil)

	pub, err := svc.Publish(ctx, sellerID, PublicationInput{ProductID: 3, OfferedQuantity: 10, UnitPrice: 500})
	assert.NoError(t, err)
	assert.Equal(t, int64(10), pub.OfferedQuantity)
}

func TestCatalogService_Publish_ZeroPrice(t *testing.T) {
	svc, _, users := newCatalogServiceFixture()
	ctx := context.Background()
	sellerID := uuid.New()

	users.On("GetByID", ctx, sellerID).Return(&models.User{ID: sellerID, Role: models.RoleSeller}, nil)

	_, err := svc.Publish(ctx, sellerID, PublicationInput{ProductID: 3, OfferedQuantity: 10, UnitPrice: 0})
	assert.ErrorIs(t, err, apperror.ErrPriceZero)
}

func TestCatalogService_Publish_ForeignProduct(t *testing.T) {
	svc, repo, users := newCatalogServiceFixture()
	ctx := context.Background()
	sellerID := uuid.New()

	users.On("GetByID", ctx, sellerID).Return(&models.User{ID: sellerID, Role: models.RoleSeller}, nil)
	repo.On("GetProduct", ctx, int64(3)).Return(&models.Product{ID: 3, SellerID: uuid.New()}, nil)

	_, err := svc.Publish(ctx, sellerID, PublicationInput{ProductID: 3, OfferedQuantity: 10, UnitPrice: 500})
	assert.ErrorIs(t, err, apperror.ErrNotPublicationOwner)
}

func TestCatalogService_SetOfferedQuantity_MovesDelta(t *testing.T) {
	svc, repo, _ := newCatalogServiceFixture()
	ctx := context.Background()
	sellerID := uuid.New()

	repo.On("GetPublication", ctx, int64(7)).Return(&models.Publication{
		ID: 7, SellerID: sellerID, ProductID: 3, OfferedQuantity: 10, UnitPrice: 500,
	}, nil).Once()
	repo.On("AdjustOfferedQuantity", ctx, int64(7), sellerID, int64(5)).Return(nil)
	repo.On("GetPublication", ctx, int64(7)).Return(&models.Publication{
		ID: 7, SellerID: sellerID, ProductID: 3, OfferedQuantity: 15, UnitPrice: 500,
	}, nil).Once()

	pub, err := svc.SetOfferedQuantity(ctx, sellerID, 7, 15)
	assert.NoError(t, err)
	assert.Equal(t, int64(15), pub.OfferedQuantity)
	repo.AssertExpectations(t)
}

func TestCatalogService_SetOfferedQuantity_NoChange(t *testing.T) {
	svc, repo, _ := newCatalogServiceFixture()
	ctx := context.Background()
	sellerID := uuid.New()

	repo.On("GetPublication", ctx, int64(7)).Return(&models.Publication{
		ID: 7, SellerID: sellerID, OfferedQuantity: 10,
	}, nil)

	_, err := svc.SetOfferedQuantity(ctx, sellerID, 7, 10)
	assert.ErrorIs(t, err, apperror.ErrNoOfferChange)
}

func TestCatalogService_SetOfferedQuantity_ForeignPublication(t *testing.T) {
	svc, repo, _ := newCatalogServiceFixture()
	ctx := context.Background()

	repo.On("GetPublication", ctx, int64(7)).Return(&models.Publication{
		ID: 7, SellerID: uuid.New(), OfferedQuantity: 10,
	}, nil)

	_, err := svc.SetOfferedQuantity(ctx, uuid.New(), 7, 5)
	assert.ErrorIs(t, err, apperror.ErrNotPublicationOwner)
}

func TestCatalogService_Browse_UnknownCategory(t *testing.T) {
	svc, _, _ := newCatalogServiceFixture()

	_, err := svc.Browse(context.Background(), "gadgets")
	assert.Error(t, err)
}

func TestCatalogService_Browse_All(t *testing.T) {
	svc, repo, _ := newCatalogServiceFixture()
	ctx := context.Background()

	repo.On("ListPublications", ctx, "").Return([]models.Publication{{ID: 1}}, nil)

	pubs, err := svc.Browse(ctx, "")
	assert.NoError(t, err)
	assert.Len(t, pubs, 1)
}
