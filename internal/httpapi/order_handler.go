package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/identity"
)

type statusUpdatePayload struct {
	Status string `json:"status"`
}

type stockAdjustmentResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Qty       int32     `json:"qty"`
	Reason    string    `json:"reason"`
	Occurred  time.Time `json:"occurred_at"`
}

// OrderHandler обслуживает историю заказов и админские операции.
type OrderHandler struct {
	orders  domain.OrderLedger
	journal domain.StockJournal
	logger  *log.Entry
}

// NewOrderHandler создаёт обработчик заказов. journal может быть nil,
// тогда админский просмотр журнала отключён.
func NewOrderHandler(orders domain.OrderLedger, journal domain.StockJournal, logger *log.Entry) *OrderHandler {
	if logger == nil {
		logger = log.New().WithField("component", "order-handler")
	}
	return &OrderHandler{orders: orders, journal: journal, logger: logger}
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	orders, err := h.orders.ListByUser(r.Context(), id.UserID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, toOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, resp)
}

// getOrder отдаёт заказ владельцу или администратору; чужой заказ
// маскируется под not found.
func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	id, ok := identity.FromContext(r.Context())
	if !ok || (!id.Admin && order.UserID != id.UserID) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: domain.ErrOrderNotFound.Error()})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var payload statusUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	orderID := chi.URLParam(r, "id")
	status := domain.OrderStatus(payload.Status)
	if !status.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: domain.ErrStatusInvalid.Error()})
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), orderID, status); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.WithFields(log.Fields{
		"order_id": orderID,
		"status":   payload.Status,
	}).Info("order status updated")

	order, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) listStockJournal(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "stock journal is not available"})
		return
	}

	entries, err := h.journal.List(r.Context(), 0)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]stockAdjustmentResponse, 0, len(entries))
	for _, adj := range entries {
		resp = append(resp, stockAdjustmentResponse{
			ID:        adj.ID,
			ProductID: adj.ProductID,
			Qty:       adj.Qty,
			Reason:    adj.Reason,
			Occurred:  adj.Occurred,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
