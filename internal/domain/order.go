package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPlaced — заказ создан чекаутом; сток уже списан.
	OrderStatusPlaced OrderStatus = "placed"
	// OrderStatusPaid — оплата подтверждена (меняется вне чекаута).
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusCancelled — заказ отменён оператором.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded — заказ возвращён клиенту.
	OrderStatusRefunded OrderStatus = "refunded"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusPaid, OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// OrderLine представляет одну позицию заказа; цена и имя заморожены
// на момент резервирования стока.
type OrderLine struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID        string
	ProductID string
	Name      string
	Qty       int32
	// PriceMinor — цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	// SubtotalMinor — qty * price, фиксируется при создании заказа.
	SubtotalMinor int64
}

// Order — неизменяемый снимок успешного чекаута.
type Order struct {
	ID string
	// UserID пуст для гостевого чекаута.
	UserID     string
	Status     OrderStatus
	TotalMinor int64
	Lines      []OrderLine
	CreatedAt  time.Time
}

// Guest сообщает, был ли заказ оформлен без аутентифицированного покупателя.
func (o *Order) Guest() bool {
	return o.UserID == ""
}

// ValidateInvariants проверяет инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}
	if o.TotalMinor < 0 {
		errs = append(errs, ErrTotalNegative)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusInvalid)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	var calc int64
	for _, line := range o.Lines {
		if line.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if line.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if line.SubtotalMinor != int64(line.Qty)*line.PriceMinor {
			errs = append(errs, ErrSubtotalMismatch)
		}
		calc += line.SubtotalMinor
	}
	if calc != o.TotalMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
