package cart

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ErrUserRequired возвращается для операций корзины без идентификатора
// покупателя: гостевые корзины живут на клиенте.
var ErrUserRequired = errors.New("cart operations require a user id")

// Service управляет корзинами покупателей. Содержимое корзины не
// проверяется против остатков: окончательную проверку делает чекаут.
type Service struct {
	carts    domain.CartStore
	products domain.ProductRepository
	logger   *log.Entry
}

// NewService создаёт сервис корзины.
func NewService(carts domain.CartStore, products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart")
	}
	return &Service{
		carts:    carts,
		products: products,
		logger:   logger,
	}
}

// Lines возвращает текущее содержимое корзины.
func (s *Service) Lines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	return s.carts.Lines(ctx, userID)
}

// Put добавляет позицию или заменяет её количество. Товар обязан
// существовать на момент добавления; остаток не резервируется.
func (s *Service) Put(ctx context.Context, userID string, line domain.CartLine) error {
	if userID == "" {
		return ErrUserRequired
	}
	if line.Qty <= 0 {
		return &domain.InvalidQuantityError{ProductID: line.ProductID, Qty: line.Qty}
	}
	if _, err := s.products.Get(ctx, line.ProductID); err != nil {
		return err
	}
	if err := s.carts.Upsert(ctx, userID, line); err != nil {
		return err
	}

	s.logger.WithFields(log.Fields{
		"user_id":    userID,
		"product_id": line.ProductID,
		"qty":        line.Qty,
	}).Debug("cart line updated")
	return nil
}

// Remove убирает позицию из корзины. Отсутствующая позиция не ошибка.
func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	if userID == "" {
		return ErrUserRequired
	}
	return s.carts.Remove(ctx, userID, productID)
}

// Clear опустошает корзину.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserRequired
	}
	return s.carts.Clear(ctx, userID)
}

// CheckoutLines снимает текущее содержимое корзины в виде запроса чекаута.
func (s *Service) CheckoutLines(ctx context.Context, userID string) ([]domain.LineRequest, error) {
	lines, err := s.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}
	requests := make([]domain.LineRequest, 0, len(lines))
	for _, line := range lines {
		requests = append(requests, domain.LineRequest{ProductID: line.ProductID, Qty: line.Qty})
	}
	return requests, nil
}
