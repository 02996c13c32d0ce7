package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	eventProductCreated = "product.created"
	eventProductUpdated = "product.updated"
	eventProductDeleted = "product.deleted"
)

// CreateProductRequest — входные данные на создание товара.
type CreateProductRequest struct {
	Name              string
	Description       string
	PriceMinor        int64
	QuantityAvailable int64
}

// UpdateProductRequest — изменяемые поля товара. Складские счётчики
// через каталог не правятся: ими владеет чекаут.
type UpdateProductRequest struct {
	Name        string
	Description string
	PriceMinor  int64
}

// Service управляет каталогом товаров поверх ProductRepository.
type Service struct {
	products domain.ProductRepository
	outbox   domain.OutboxRepository
	logger   *log.Entry
}

// NewService создаёт сервис каталога. outbox может быть nil, тогда
// события не публикуются.
func NewService(products domain.ProductRepository, outbox domain.OutboxRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Service{
		products: products,
		outbox:   outbox,
		logger:   logger,
	}
}

// Create валидирует и сохраняет новый товар.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (domain.Product, error) {
	if err := validateCreate(req); err != nil {
		return domain.Product{}, err
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:                uuid.NewString(),
		Name:              strings.TrimSpace(req.Name),
		Description:       strings.TrimSpace(req.Description),
		PriceMinor:        req.PriceMinor,
		QuantityAvailable: req.QuantityAvailable,
		QuantitySold:      0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("product created")
	s.emitEvent(product.ID, eventProductCreated, product)

	return product, nil
}

// Get возвращает товар по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	if id == "" {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return s.products.Get(ctx, id)
}

// List возвращает товары, новые первыми. limit <= 0 означает все.
func (s *Service) List(ctx context.Context, limit int) ([]domain.Product, error) {
	return s.products.List(ctx, limit)
}

// Update меняет описательные поля товара. Остатки и продажи сохраняются
// такими, какими их держит склад.
func (s *Service) Update(ctx context.Context, id string, req UpdateProductRequest) (domain.Product, error) {
	if id == "" {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err := validateUpdate(req); err != nil {
		return domain.Product{}, err
	}

	current, err := s.products.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	current.Name = strings.TrimSpace(req.Name)
	current.Description = strings.TrimSpace(req.Description)
	current.PriceMinor = req.PriceMinor
	current.UpdatedAt = time.Now().UTC()

	if err := s.products.Update(ctx, current); err != nil {
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}

	s.logger.WithField("product_id", id).Info("product updated")
	s.emitEvent(id, eventProductUpdated, current)

	return current, nil
}

// Delete удаляет товар из каталога.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrProductNotFound
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.WithField("product_id", id).Info("product deleted")
	s.emitEvent(id, eventProductDeleted, map[string]string{"product_id": id})

	return nil
}

func validateCreate(req CreateProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return domain.ErrProductNameRequired
	}
	if req.PriceMinor < 0 {
		return domain.ErrPriceNegative
	}
	if req.QuantityAvailable < 0 {
		return domain.ErrStockNegative
	}
	return nil
}

func validateUpdate(req UpdateProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return domain.ErrProductNameRequired
	}
	if req.PriceMinor < 0 {
		return domain.ErrPriceNegative
	}
	return nil
}

func (s *Service) emitEvent(productID, eventType string, payload interface{}) {
	if s.outbox == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithField("event", eventType).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "product",
		AggregateID:   productID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(context.Background(), msg); err != nil {
		s.logger.WithError(err).WithField("event", eventType).Error("enqueue event failed")
	}
}
