package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
)

type errorResponse struct {
	Error     string `json:"error"`
	ProductID string `json:"product_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError маппит доменные ошибки на HTTP-статусы. Отказ по стоку —
// конфликт, а не ошибка сервера: сток уже компенсирован, клиент может
// повторить с меньшим количеством.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		invalidQty  *domain.InvalidQuantityError
		unavailable *domain.StockUnavailableError
		persistence *domain.OrderPersistenceError
	)

	switch {
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:     "stock unavailable",
			ProductID: unavailable.ProductID,
		})
	case errors.As(err, &invalidQty):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     "quantity must be greater than zero",
			ProductID: invalidQty.ProductID,
		})
	case errors.As(err, &persistence):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "order could not be persisted"})
	case errors.Is(err, domain.ErrEmptyRequest),
		errors.Is(err, domain.ErrProductNameRequired),
		errors.Is(err, domain.ErrPriceNegative),
		errors.Is(err, domain.ErrStockNegative),
		errors.Is(err, domain.ErrStatusInvalid):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrProductExists),
		errors.Is(err, domain.ErrOrderExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, cart.ErrUserRequired):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
