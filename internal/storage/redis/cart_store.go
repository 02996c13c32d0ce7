package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Ключ корзины: hash cart:{user_id}, поле = product_id, значение = qty.
const cartKeyPattern = "cart:%s"

const defaultCartTTL = 30 * 24 * time.Hour

// NewClient создаёт redis-клиент и проверяет соединение.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// CartStore хранит корзины в redis-хэшах с TTL на ключ.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore создаёт redis-реализацию CartStore.
func NewCartStore(client *redis.Client) *CartStore {
	return &CartStore{client: client, ttl: defaultCartTTL}
}

// NewCartStoreWithTTL создаёт CartStore с явным временем жизни корзины.
func NewCartStoreWithTTL(client *redis.Client, ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = defaultCartTTL
	}
	return &CartStore{client: client, ttl: ttl}
}

func (s *CartStore) Lines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	fields, err := s.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load cart hash: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(fields))
	for productID, rawQty := range fields {
		qty, err := strconv.ParseInt(rawQty, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse cart qty for %s: %w", productID, err)
		}
		lines = append(lines, domain.CartLine{ProductID: productID, Qty: int32(qty)})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	return lines, nil
}

func (s *CartStore) Upsert(ctx context.Context, userID string, line domain.CartLine) error {
	if line.Qty <= 0 {
		return &domain.InvalidQuantityError{ProductID: line.ProductID, Qty: line.Qty}
	}

	key := cartKey(userID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, line.ProductID, int64(line.Qty))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert cart line: %w", err)
	}
	return nil
}

func (s *CartStore) Remove(ctx context.Context, userID, productID string) error {
	if err := s.client.HDel(ctx, cartKey(userID), productID).Err(); err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	return nil
}

func (s *CartStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Ping проверяет доступность redis для health-проб.
func (s *CartStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func cartKey(userID string) string {
	return fmt.Sprintf(cartKeyPattern, userID)
}

var _ domain.CartStore = (*CartStore)(nil)
