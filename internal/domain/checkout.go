package domain

// LineRequest — запрошенная покупателем позиция чекаута.
// Не персистится: это единица работы для резервирования стока.
type LineRequest struct {
	ProductID string
	Qty       int32
}

// CartLine — строка корзины покупателя.
type CartLine struct {
	ProductID string
	Qty       int32
}
