package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/rustaceolibre/marketplace-backend/internal/models"
	"github.com/rustaceolibre/marketplace-backend/internal/pkg/apperror"
	"github.com/rustaceolibre/marketplace-backend/internal/validation"
)

// CatalogStore описывает хранилище товаров и публикаций.
type CatalogStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	AddStock(ctx context.Context, productID int64, sellerID uuid.UUID, amount int64) error
	CreatePublication(ctx context.Context, pub *models.Publication) error
	GetPublication(ctx context.Context, id int64) (*models.Publication, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Publication, error)
	ListPublications(ctx context.Context, category string) ([]models.Publication, error)
	AdjustOfferedQuantity(ctx context.Context, publicationID int64, sellerID uuid.UUID, delta int64) error
}

// ProductInput содержит данные нового товара.
type ProductInput struct {
	Name        string
	Description string
	Category    string
	Stock       int64
}

// PublicationInput содержит данные новой публикации.
type PublicationInput struct {
	ProductID       int64
	OfferedQuantity int64
	UnitPrice       int64
}

// CatalogService управляет товарами продавцов и их публикациями на витрине.
// Количество товара живёт в двух местах: на складе продавца и на витрине
// публикации; любое перемещение между ними атомарно.
type CatalogService struct {
	repo  CatalogStore
	users UserReader
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(repo CatalogStore, users UserReader) *CatalogService {
	return &CatalogService{repo: repo, users: users}
}

// RegisterProduct регистрирует товар продавца.
func (s *CatalogService) RegisterProduct(ctx context.Context, sellerID uuid.UUID, in ProductInput) (*models.Product, error) {
	seller, err := s.users.GetByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if !seller.IsSeller() {
		return nil, apperror.ErrNotSellerRole
	}

	if err := validation.ValidateProductName(in.Name); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateDescription(in.Description); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if _, ok := models.ValidCategories[in.Category]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестная категория")
	}
	if in.Stock < 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "остаток не может быть отрицательным")
	}

	product := &models.Product{
		SellerID:    sellerID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Stock:       in.Stock,
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// AddStock пополняет склад продавца.
func (s *CatalogService) AddStock(ctx context.Context, sellerID uuid.UUID, productID, amount int64) (*models.Product, error) {
	if amount <= 0 {
		return nil, apperror.ErrQuantityZero
	}
	if err := s.repo.AddStock(ctx, productID, sellerID, amount); err != nil {
		return nil, err
	}
	return s.repo.GetProduct(ctx, productID)
}

// Publish выставляет товар на витрину, резервируя указанное количество
// со склада. Цена за единицу должна быть положительной.
func (s *CatalogService) Publish(ctx context.Context, sellerID uuid.UUID, in PublicationInput) (*models.Publication, error) {
	seller, err := s.users.GetByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if !seller.IsSeller() {
		return nil, apperror.ErrNotSellerRole
	}
	if in.OfferedQuantity <= 0 {
		return nil, apperror.ErrQuantityZero
	}
	if in.UnitPrice <= 0 {
		return nil, apperror.ErrPriceZero
	}

	product, err := s.repo.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, apperror.ErrNotPublicationOwner
	}

	pub := &models.Publication{
		SellerID:        sellerID,
		ProductID:       in.ProductID,
		OfferedQuantity: in.OfferedQuantity,
		UnitPrice:       in.UnitPrice,
	}

	if err := s.repo.CreatePublication(ctx, pub); err != nil {
		return nil, err
	}

	return pub, nil
}

// SetOfferedQuantity меняет количество на витрине. Разница перемещается
// между складом и публикацией; новое значение, равное текущему, отклоняется.
func (s *CatalogService) SetOfferedQuantity(ctx context.Context, sellerID uuid.UUID, publicationID, newQuantity int64) (*models.Publication, error) {
	if newQuantity < 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "количество не может быть отрицательным")
	}

	pub, err := s.repo.GetPublication(ctx, publicationID)
	if err != nil {
		return nil, err
	}
	if pub.SellerID != sellerID {
		return nil, apperror.ErrNotPublicationOwner
	}
	if pub.OfferedQuantity == newQuantity {
		return nil, apperror.ErrNoOfferChange
	}

	if err := s.repo.AdjustOfferedQuantity(ctx, publicationID, sellerID, newQuantity-pub.OfferedQuantity); err != nil {
		return nil, err
	}

	return s.repo.GetPublication(ctx, publicationID)
}

// GetPublication возвращает публикацию.
func (s *CatalogService) GetPublication(ctx context.Context, id int64) (*models.Publication, error) {
	return s.repo.GetPublication(ctx, id)
}

// GetProduct возвращает товар.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListMyPublications возвращает публикации продавца.
func (s *CatalogService) ListMyPublications(ctx context.Context, sellerID uuid.UUID) ([]models.Publication, error) {
	return s.repo.ListBySeller(ctx, sellerID)
}

// Browse возвращает витрину, опционально по категории.
func (s *CatalogService) Browse(ctx context.Context, category string) ([]models.Publication, error) {
	if category != "" {
		if _, ok := models.ValidCategories[category]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "неизвестная категория")
		}
	}
	return s.repo.ListPublications(ctx, category)
}
