package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/identity"
)

// RouterDeps собирает все обработчики, которые монтируются в HTTP-роутер.
// Health может быть nil — тогда служебные маршруты не регистрируются
// (их обслуживает отдельный административный сервер).
type RouterDeps struct {
	Checkout *CheckoutHandler
	Products *ProductHandler
	Cart     *CartHandler
	Orders   *OrderHandler
	Identity identity.Provider
	Health   *health.Handler
}

// NewRouter строит chi-роутер со всеми публичными и административными
// маршрутами витрины. Личность запроса извлекается из заголовков и кладётся
// в контекст до того, как запрос дойдёт до обработчиков.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metricsMiddleware)
	r.Use(identityMiddleware(deps.Identity))

	if deps.Health != nil {
		r.Get("/healthz", deps.Health.ServeHTTP)
		r.Get("/livez", health.LivenessHandler)
		r.Get("/readyz", deps.Health.ReadinessHandler)
	}

	r.Route("/api", func(r chi.Router) {
		// Оформление заказа доступно и гостям: анонимный запрос
		// проходит без корзины, строки приходят в теле.
		r.Post("/checkout", deps.Checkout.handleCheckout)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", deps.Products.listProducts)
			r.Get("/{id}", deps.Products.getProduct)
			r.Post("/", requireAdmin(deps.Products.createProduct))
			r.Put("/{id}", requireAdmin(deps.Products.updateProduct))
			r.Delete("/{id}", requireAdmin(deps.Products.deleteProduct))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", requireUser(deps.Cart.getCart))
			r.Delete("/", requireUser(deps.Cart.clearCart))
			r.Put("/lines", requireUser(deps.Cart.putLine))
			r.Delete("/lines/{productID}", requireUser(deps.Cart.removeLine))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", requireUser(deps.Orders.listOrders))
			r.Get("/{id}", requireUser(deps.Orders.getOrder))
			r.Put("/{id}/status", requireAdmin(deps.Orders.updateStatus))
		})

		r.Get("/stock-journal", requireAdmin(deps.Orders.listStockJournal))
	})

	return r
}
