package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rustaceolibre/marketplace-backend/internal/logger"
	"github.com/rustaceolibre/marketplace-backend/internal/models"
)

// TreasuryStore описывает журнал выплат.
type TreasuryStore interface {
	Record(ctx context.Context, transfer *models.Transfer) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]models.Transfer, error)
}

// TreasuryService оформляет выплаты из кастодиального баланса платформы.
// К моменту выплаты заказ уже переведён в новое состояние, поэтому сбой
// записи не откатывает операцию: он логируется, а недостающая строка
// восстанавливается сверкой журнала.
type TreasuryService struct {
	repo TreasuryStore
	log  *logrus.Entry
}

// NewTreasuryService создаёт сервис выплат.
func NewTreasuryService(repo TreasuryStore) *TreasuryService {
	return &TreasuryService{
		repo: repo,
		log:  logger.WithComponent("treasury"),
	}
}

// Transfer пишет выплату в журнал. Нулевые суммы пропускаются.
func (s *TreasuryService) Transfer(ctx context.Context, recipientID uuid.UUID, orderID *int64, kind string, amount int64) {
	if amount <= 0 {
		return
	}

	transfer := &models.Transfer{
		RecipientID: recipientID,
		OrderID:     orderID,
		Kind:        kind,
		Amount:      amount,
	}

	if err := s.repo.Record(ctx, transfer); err != nil {
		s.log.WithFields(logrus.Fields{
			"recipient_id": recipientID,
			"kind":         kind,
			"amount":       amount,
		}).WithError(err).Error("не удалось записать выплату")
	}
}

// ListByRecipient возвращает журнал выплат получателя.
func (s *TreasuryService) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]models.Transfer, error) {
	return s.repo.ListByRecipient(ctx, recipientID)
}
