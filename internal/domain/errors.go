package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRequest возвращается, если чекаут запрошен без позиций.
	ErrEmptyRequest = errors.New("checkout request must contain at least one line")
	// Ошибка отсутствующего имени товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отрицательной цены товара.
	ErrPriceNegative = errors.New("price_minor must be non-negative")
	// Ошибка отрицательного остатка.
	ErrStockNegative = errors.New("quantity_available must be non-negative")
	// Ошибка отрицательного счётчика продаж.
	ErrSoldNegative = errors.New("quantity_sold must be non-negative")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrLinesRequired = errors.New("order must contain at least one line")
	// Ошибка отрицательной суммы заказа.
	ErrTotalNegative = errors.New("total_minor must be non-negative")
	// Ошибка неподдерживаемого статуса заказа.
	ErrStatusInvalid = errors.New("order status is not supported")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("line qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("line price must be non-negative")
	// Ошибка несоответствия subtotal позиции произведению qty * price.
	ErrSubtotalMismatch = errors.New("line subtotal does not match qty * price")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match lines sum")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductExists сигнализирует о конфликте идентификаторов при создании.
	ErrProductExists = errors.New("product already exists")
	// ErrInsufficientStock — условный декремент не прошёл: остатка не хватает.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrOrderNotFound возвращается, если заказ не найден в леджере.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists — заказ с таким ID уже записан.
	ErrOrderExists = errors.New("order already exists")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// InvalidQuantityError указывает на позицию чекаута с недопустимым количеством.
// Возвращается до любых обращений к хранилищу.
type InvalidQuantityError struct {
	ProductID string
	Qty       int32
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for product %s", e.Qty, e.ProductID)
}

// StockUnavailableError идентифицирует первую позицию, которую не удалось
// зарезервировать; все предыдущие резервы к этому моменту компенсированы.
type StockUnavailableError struct {
	ProductID string
}

func (e *StockUnavailableError) Error() string {
	return fmt.Sprintf("stock unavailable for product %s", e.ProductID)
}

// OrderPersistenceError означает, что сток был полностью зарезервирован,
// но запись заказа не удалась; резервы компенсированы, заказа нет.
type OrderPersistenceError struct {
	Err error
}

func (e *OrderPersistenceError) Error() string {
	return fmt.Sprintf("order persistence failed: %v", e.Err)
}

func (e *OrderPersistenceError) Unwrap() error {
	return e.Err
}

// IsStockUnavailable проверяет, является ли ошибка отказом по стоку.
func IsStockUnavailable(err error) bool {
	var target *StockUnavailableError
	return errors.As(err, &target)
}
