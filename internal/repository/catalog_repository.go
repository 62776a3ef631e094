package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rustaceolibre/marketplace-backend/internal/models"
	"github.com/rustaceolibre/marketplace-backend/internal/pkg/apperror"
	"github.com/rustaceolibre/marketplace-backend/internal/repository/common"
)

// CatalogRepository отвечает за таблицы products и publications.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository создаёт экземпляр репозитория.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// CreateProduct регистрирует новый товар продавца.
func (r *CatalogRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (seller_id, name, description, category, stock)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		product.SellerID, product.Name, product.Description, product.Category, product.Stock,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt); err != nil {
		return fmt.Errorf("catalog repository: create product %w", err)
	}

	return nil
}

// GetProduct возвращает товар по идентификатору.
func (r *CatalogRepository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return common.GetByID[models.Product](ctx, r.db, "products", id, apperror.ErrProductNotFound)
}

// AddStock пополняет складской остаток товара.
func (r *CatalogRepository) AddStock(ctx context.Context, productID int64, sellerID uuid.UUID, amount int64) error {
	query := `
		UPDATE products
		SET stock = stock + $3, updated_at = NOW()
		WHERE id = $1 AND seller_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, productID, sellerID, amount)
	if err != nil {
		return fmt.Errorf("catalog repository: add stock %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog repository: add stock rows affected %w", err)
	}
	if affected == 0 {
		return apperror.ErrProductNotFound
	}
	return nil
}

// CreatePublication выставляет товар на продажу, резервируя часть остатка.
// Списание со склада и создание публикации выполняются в одной транзакции.
func (r *CatalogRepository) CreatePublication(ctx context.Context, pub *models.Publication) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		reserve := `
			UPDATE products
			SET stock = stock - $3, updated_at = NOW()
			WHERE id = $1 AND seller_id = $2 AND stock >= $3
		`
		res, err := tx.ExecContext(ctx, reserve, pub.ProductID, pub.SellerID, pub.OfferedQuantity)
		if err != nil {
			return fmt.Errorf("catalog repository: reserve stock %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("catalog repository: reserve stock rows affected %w", err)
		}
		if affected == 0 {
			return apperror.ErrInsufficientStock
		}

		insert := `
			INSERT INTO publications (seller_id, product_id, offered_quantity, unit_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at
		`
		if err := tx.QueryRowxContext(
			ctx, insert,
			pub.SellerID, pub.ProductID, pub.OfferedQuantity, pub.UnitPrice,
		).Scan(&pub.ID, &pub.CreatedAt, &pub.UpdatedAt); err != nil {
			return fmt.Errorf("catalog repository: create publication %w", err)
		}

		return nil
	})
}

// GetPublication возвращает публикацию по идентификатору.
func (r *CatalogRepository) GetPublication(ctx context.Context, id int64) (*models.Publication, error) {
	return common.GetByID[models.Publication](ctx, r.db, "publications", id, apperror.ErrPublicationNotFound)
}

// ListBySeller возвращает публикации продавца.
func (r *CatalogRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Publication, error) {
	pubs := []models.Publication{}
	query := `SELECT * FROM publications WHERE seller_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &pubs, query, sellerID); err != nil {
		return nil, fmt.Errorf("catalog repository: list by seller %w", err)
	}
	return pubs, nil
}

// ListPublications возвращает публикации, опционально фильтруя по категории товара.
func (r *CatalogRepository) ListPublications(ctx context.Context, category string) ([]models.Publication, error) {
	pubs := []models.Publication{}
	query := `
		SELECT p.*
		FROM publications p
		JOIN products pr ON pr.id = p.product_id
		WHERE ($1 = '' OR pr.category = $1) AND p.offered_quantity > 0
		ORDER BY p.created_at DESC
	`
	if err := r.db.SelectContext(ctx, &pubs, query, category); err != nil {
		return nil, fmt.Errorf("catalog repository: list publications %w", err)
	}
	return pubs, nil
}

// AdjustOfferedQuantity меняет предлагаемое количество публикации, перемещая
// разницу между складом и витриной в одной транзакции. Положительная дельта
// резервирует остаток, отрицательная возвращает его на склад.
func (r *CatalogRepository) AdjustOfferedQuantity(ctx context.Context, publicationID int64, sellerID uuid.UUID, delta int64) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var productID int64
		adjust := `
			UPDATE publications
			SET offered_quantity = offered_quantity + $3, updated_at = NOW()
			WHERE id = $1 AND seller_id = $2 AND offered_quantity + $3 >= 0
			RETURNING product_id
		`
		if err := tx.QueryRowxContext(ctx, adjust, publicationID, sellerID, delta).Scan(&productID); err != nil {
			return apperror.ErrPublicationNotFound
		}

		move := `
			UPDATE products
			SET stock = stock - $2, updated_at = NOW()
			WHERE id = $1 AND stock - $2 >= 0
		`
		res, err := tx.ExecContext(ctx, move, productID, delta)
		if err != nil {
			return fmt.Errorf("catalog repository: move stock %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("catalog repository: move stock rows affected %w", err)
		}
		if affected == 0 {
			return apperror.ErrInsufficientStock
		}

		return nil
	})
}
