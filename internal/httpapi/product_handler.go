package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
)

type productPayload struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	PriceMinor        int64  `json:"price_minor"`
	QuantityAvailable int64  `json:"quantity_available"`
}

type productResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	PriceMinor        int64     `json:"price_minor"`
	QuantityAvailable int64     `json:"quantity_available"`
	QuantitySold      int64     `json:"quantity_sold"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toProductResponse(product domain.Product) productResponse {
	return productResponse{
		ID:                product.ID,
		Name:              product.Name,
		Description:       product.Description,
		PriceMinor:        product.PriceMinor,
		QuantityAvailable: product.QuantityAvailable,
		QuantitySold:      product.QuantitySold,
		CreatedAt:         product.CreatedAt,
		UpdatedAt:         product.UpdatedAt,
	}
}

// ProductHandler обслуживает каталог: публичное чтение и админский CRUD.
type ProductHandler struct {
	catalog *catalog.Service
	logger  *log.Entry
}

// NewProductHandler создаёт обработчик каталога.
func NewProductHandler(service *catalog.Service, logger *log.Entry) *ProductHandler {
	if logger == nil {
		logger = log.New().WithField("component", "product-handler")
	}
	return &ProductHandler{catalog: service, logger: logger}
}

func (h *ProductHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	products, err := h.catalog.List(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, product := range products {
		resp = append(resp, toProductResponse(product))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *ProductHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	product, err := h.catalog.Create(r.Context(), catalog.CreateProductRequest{
		Name:              payload.Name,
		Description:       payload.Description,
		PriceMinor:        payload.PriceMinor,
		QuantityAvailable: payload.QuantityAvailable,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

func (h *ProductHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	product, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), catalog.UpdateProductRequest{
		Name:        payload.Name,
		Description: payload.Description,
		PriceMinor:  payload.PriceMinor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *ProductHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
