package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/identity"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

const (
	idempotencyKeyHeader  = "Idempotency-Key"
	idempotencyDefaultTTL = 24 * time.Hour
	maxCheckoutBodyBytes  = 1 << 20
)

type checkoutLineRequest struct {
	ProductID string `json:"product_id"`
	Qty       int32  `json:"qty"`
}

type checkoutRequest struct {
	Lines []checkoutLineRequest `json:"lines"`
}

type orderLineResponse struct {
	ID            string `json:"id"`
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	Qty           int32  `json:"qty"`
	PriceMinor    int64  `json:"price_minor"`
	SubtotalMinor int64  `json:"subtotal_minor"`
}

type orderResponse struct {
	ID         string              `json:"id"`
	UserID     string              `json:"user_id,omitempty"`
	Status     string              `json:"status"`
	TotalMinor int64               `json:"total_minor"`
	Lines      []orderLineResponse `json:"lines"`
	CreatedAt  time.Time           `json:"created_at"`
}

func toOrderResponse(order domain.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineResponse{
			ID:            line.ID,
			ProductID:     line.ProductID,
			Name:          line.Name,
			Qty:           line.Qty,
			PriceMinor:    line.PriceMinor,
			SubtotalMinor: line.SubtotalMinor,
		})
	}
	return orderResponse{
		ID:         order.ID,
		UserID:     order.UserID,
		Status:     string(order.Status),
		TotalMinor: order.TotalMinor,
		Lines:      lines,
		CreatedAt:  order.CreatedAt,
	}
}

// CheckoutHandler обслуживает POST /api/checkout с опциональной
// идемпотентностью по заголовку Idempotency-Key.
type CheckoutHandler struct {
	orchestrator checkout.Orchestrator
	idempotency  domain.IdempotencyRepository
	logger       *log.Entry
}

// NewCheckoutHandler создаёт обработчик чекаута. idempotency может быть
// nil, тогда заголовок игнорируется.
func NewCheckoutHandler(orchestrator checkout.Orchestrator, idempotency domain.IdempotencyRepository, logger *log.Entry) *CheckoutHandler {
	if logger == nil {
		logger = log.New().WithField("component", "checkout-handler")
	}
	return &CheckoutHandler{
		orchestrator: orchestrator,
		idempotency:  idempotency,
		logger:       logger,
	}
}

func (h *CheckoutHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCheckoutBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return
	}

	var req checkoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	var actorID string
	if id, ok := identity.FromContext(r.Context()); ok {
		actorID = id.UserID
	}

	idemKey := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if idemKey != "" && h.idempotency != nil {
		requestHash := hashRequest(actorID, body)
		if done := h.beginIdempotent(w, r, idemKey, requestHash); done {
			return
		}
	}

	lines := make([]domain.LineRequest, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, domain.LineRequest{ProductID: line.ProductID, Qty: line.Qty})
	}

	order, err := h.orchestrator.Checkout(r.Context(), actorID, lines)
	if err != nil {
		status, payload := checkoutErrorPayload(err)
		h.finishIdempotent(r, idemKey, payload, status)
		writeJSON(w, status, payload)
		return
	}

	resp := toOrderResponse(order)
	h.finishIdempotent(r, idemKey, resp, http.StatusCreated)
	writeJSON(w, http.StatusCreated, resp)
}

// beginIdempotent регистрирует ключ. Возвращает true, если ответ уже
// записан (replay, конфликт или гонка) и обработку надо прекратить.
func (h *CheckoutHandler) beginIdempotent(w http.ResponseWriter, r *http.Request, key, requestHash string) bool {
	_, err := h.idempotency.CreateProcessing(r.Context(), key, requestHash, time.Now().UTC().Add(idempotencyDefaultTTL))
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "idempotency key reused with a different request"})
		return true
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		record, getErr := h.idempotency.Get(r.Context(), key)
		if getErr != nil {
			h.logger.WithError(getErr).WithField("idempotency_key", key).Error("idempotency record lookup failed")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			return true
		}
		if record.Status == domain.IdempotencyStatusProcessing {
			writeJSON(w, http.StatusConflict, errorResponse{Error: "request with this idempotency key is still processing"})
			return true
		}
		// Повтор завершённого запроса: отдаём сохранённый ответ как есть.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(record.HTTPStatus)
		_, _ = w.Write(record.ResponseBody)
		return true
	default:
		h.logger.WithError(err).WithField("idempotency_key", key).Error("idempotency registration failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return true
	}
}

// finishIdempotent сохраняет итоговый ответ для последующих повторов.
func (h *CheckoutHandler) finishIdempotent(r *http.Request, key string, payload any, status int) {
	if key == "" || h.idempotency == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.WithError(err).WithField("idempotency_key", key).Error("marshal idempotent response failed")
		return
	}

	if status >= 200 && status < 300 {
		err = h.idempotency.MarkDone(r.Context(), key, body, status)
	} else {
		err = h.idempotency.MarkFailed(r.Context(), key, body, status)
	}
	if err != nil {
		h.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotent response")
	}
}

func checkoutErrorPayload(err error) (int, errorResponse) {
	var (
		invalidQty  *domain.InvalidQuantityError
		unavailable *domain.StockUnavailableError
		persistence *domain.OrderPersistenceError
	)
	switch {
	case errors.As(err, &unavailable):
		return http.StatusConflict, errorResponse{Error: "stock unavailable", ProductID: unavailable.ProductID}
	case errors.As(err, &invalidQty):
		return http.StatusBadRequest, errorResponse{Error: "quantity must be greater than zero", ProductID: invalidQty.ProductID}
	case errors.As(err, &persistence):
		return http.StatusInternalServerError, errorResponse{Error: "order could not be persisted"}
	case errors.Is(err, domain.ErrEmptyRequest):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
}

func hashRequest(actorID string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(actorID))
	sum.Write([]byte{0})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}
