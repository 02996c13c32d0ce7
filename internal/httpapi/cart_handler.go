package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/identity"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
)

type cartLinePayload struct {
	ProductID string `json:"product_id"`
	Qty       int32  `json:"qty"`
}

type cartResponse struct {
	Lines []cartLinePayload `json:"lines"`
}

// CartHandler обслуживает корзину аутентифицированного покупателя.
type CartHandler struct {
	cart   *cart.Service
	logger *log.Entry
}

// NewCartHandler создаёт обработчик корзины.
func NewCartHandler(service *cart.Service, logger *log.Entry) *CartHandler {
	if logger == nil {
		logger = log.New().WithField("component", "cart-handler")
	}
	return &CartHandler{cart: service, logger: logger}
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	lines, err := h.cart.Lines(r.Context(), id.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := cartResponse{Lines: make([]cartLinePayload, 0, len(lines))}
	for _, line := range lines {
		resp.Lines = append(resp.Lines, cartLinePayload{ProductID: line.ProductID, Qty: line.Qty})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CartHandler) putLine(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	var payload cartLinePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	err := h.cart.Put(r.Context(), id.UserID, domain.CartLine{
		ProductID: payload.ProductID,
		Qty:       payload.Qty,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) removeLine(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	if err := h.cart.Remove(r.Context(), id.UserID, chi.URLParam(r, "productID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	if err := h.cart.Clear(r.Context(), id.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
