package domain

import "time"

// Product описывает товар каталога вместе со счётчиками склада.
type Product struct {
	ID          string
	Name        string
	Description string
	// PriceMinor — цена за единицу в минимальных денежных единицах (центы).
	PriceMinor int64
	// QuantityAvailable — доступный к продаже остаток; не может уходить в минус.
	QuantityAvailable int64
	// QuantitySold — накопительный счётчик проданных единиц.
	QuantitySold int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReservedStock — результат атомарного условного декремента остатка.
// Имя и цена возвращаются тем же обновлением, чтобы заказ фиксировал
// значения на момент резервирования, а не перечитывал их позже.
type ReservedStock struct {
	ProductID string
	Name      string
	PriceMinor int64
	// QuantityAvailable — остаток после декремента.
	QuantityAvailable int64
}

// ValidateInvariants проверяет базовые инварианты товара.
func (p *Product) ValidateInvariants() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrItemPriceInvalid)
	}
	if p.QuantityAvailable < 0 {
		errs = append(errs, ErrStockNegative)
	}
	if p.QuantitySold < 0 {
		errs = append(errs, ErrSoldNegative)
	}

	return errs
}
