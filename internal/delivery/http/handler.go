package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/storefront-labs/storefront/internal/auth"
	"github.com/storefront-labs/storefront/internal/entity"
	"github.com/storefront-labs/storefront/internal/metrics"
	"github.com/storefront-labs/storefront/internal/repository"
	"github.com/storefront-labs/storefront/internal/service"
)

// Handler wires the HTTP surface to the services.
type Handler struct {
	users     *service.UserService
	catalog   *service.CatalogService
	carts     *service.CartService
	orders    *service.OrderService
	analytics *service.AnalyticsService
	tokens    *auth.TokenIssuer
	metrics   *metrics.Metrics
}

func NewHandler(
	users *service.UserService,
	catalog *service.CatalogService,
	carts *service.CartService,
	orders *service.OrderService,
	analytics *service.AnalyticsService,
	tokens *auth.TokenIssuer,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		users:     users,
		catalog:   catalog,
		carts:     carts,
		orders:    orders,
		analytics: analytics,
		tokens:    tokens,
		metrics:   m,
	}
}

// Router builds the chi router with all storefront and admin routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(enableCORS)
	r.Use(withMetrics(h.metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/users/register", h.handleRegister)
		r.Post("/users/login", h.handleLogin)

		r.Get("/products", h.handleListProducts)
		r.Get("/products/{id}", h.handleGetProduct)

		// Cart routes work for both guests (session token) and
		// authenticated users (bearer token).
		r.Get("/cart", h.handleGetCart)
		r.Post("/cart/items", h.handleAddCartItem)
		r.Put("/cart/items/{productID}", h.handleSetCartQuantity)
		r.Delete("/cart/items/{productID}", h.handleRemoveCartItem)

		r.Group(func(r chi.Router) {
			r.Use(h.withAuth)
			r.Get("/users/me", h.handleGetProfile)

			r.Post("/orders", h.handlePlaceOrder)
			r.Post("/orders/checkout", h.handleCheckout)
			r.Get("/orders", h.handleListMyOrders)
			r.Get("/orders/{id}", h.handleGetOrder)
			r.Post("/orders/{id}/cancel", h.handleCancelOrder)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.withAuth, h.withAdmin)

			r.Get("/orders", h.handleAdminListOrders)
			r.Put("/orders/{id}/status", h.handleSetOrderStatus)
			r.Put("/orders/{id}/payment-status", h.handleSetPaymentStatus)
			r.Put("/orders/{id}/tracking", h.handleAttachTracking)

			r.Post("/products", h.handleCreateProduct)
			r.Put("/products/{id}", h.handleUpdateProduct)
			r.Delete("/products/{id}", h.handleDeactivateProduct)
			r.Put("/products/{id}/inventory", h.handleSetInventory)

			r.Get("/analytics", h.handleAnalytics)
		})
	})

	return r
}

// --- users ---

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  *entity.User `json:"user"`
	Token string       `json:"token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, token, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	// A guest cart carried through the session token joins the account cart.
	if session := r.Header.Get(SessionTokenHeader); session != "" {
		if err := h.carts.MergeGuestCart(r.Context(), session, user.ID); err != nil {
			respondError(w, err)
			return
		}
	}

	respond(w, http.StatusOK, loginResponse{User: user, Token: token})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	user, err := h.users.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, user)
}

// --- catalog ---

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter := repository.ProductFilter{
		ActiveOnly: true,
		Category:   r.URL.Query().Get("category"),
		Search:     r.URL.Query().Get("search"),
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		filter.Offset = offset
	}

	products, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, products)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, product)
}

// --- cart ---

// cartOwner resolves the cart identity for the request: the user ID when a
// valid bearer token is present, otherwise the guest session token. A guest
// with no session token gets one, echoed back in the response header.
func (h *Handler) cartOwner(w http.ResponseWriter, r *http.Request) (owner string, guest bool) {
	header := r.Header.Get("Authorization")
	if token, found := strings.CutPrefix(header, "Bearer "); found && token != "" {
		if claims, err := h.tokens.Verify(token); err == nil {
			return claims.UserID, false
		}
	}
	session := r.Header.Get(SessionTokenHeader)
	if session == "" {
		session = uuid.NewString()
	}
	w.Header().Set(SessionTokenHeader, session)
	return session, true
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	owner, guest := h.cartOwner(w, r)
	cart, err := h.carts.GetCart(r.Context(), owner, guest)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, cart)
}

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	owner, guest := h.cartOwner(w, r)
	cart, err := h.carts.AddItem(r.Context(), owner, guest, req.ProductID, req.Quantity)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, cart)
}

func (h *Handler) handleSetCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	owner, guest := h.cartOwner(w, r)
	cart, err := h.carts.SetQuantity(r.Context(), owner, guest, chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, cart)
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	owner, guest := h.cartOwner(w, r)
	cart, err := h.carts.RemoveItem(r.Context(), owner, guest, chi.URLParam(r, "productID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, cart)
}

// --- orders ---

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var in service.PlaceOrderInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.UserID = claimsFrom(r.Context()).UserID

	order, err := h.orders.PlaceOrder(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, order)
}

type checkoutRequest struct {
	ShippingAddress entity.Address `json:"shipping_address"`
	PaymentMethod   string         `json:"payment_method"`
}

// handleCheckout places an order from the user's cart. The cart supplies
// (product, quantity) pairs only; prices come from the live catalog inside
// the placement workflow. The cart is cleared only after placement succeeds.
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := claimsFrom(r.Context()).UserID

	items, err := h.carts.CheckoutItems(r.Context(), userID, false)
	if err != nil {
		respondError(w, err)
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), service.PlaceOrderInput{
		UserID:          userID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Items:           items,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.carts.Clear(r.Context(), userID, false); err != nil {
		slog.Error("Failed to clear cart after checkout", "user_id", userID, "err", err)
	}
	respond(w, http.StatusCreated, order)
}

func (h *Handler) handleListMyOrders(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := h.orders.ListUserOrders(r.Context(), claims.UserID, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, orders)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	if order.UserID != claims.UserID && !claims.IsAdmin {
		respondError(w, entity.ErrNotFound)
		return
	}
	respond(w, http.StatusOK, order)
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	orderID := chi.URLParam(r, "id")

	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		respondError(w, err)
		return
	}
	if order.UserID != claims.UserID && !claims.IsAdmin {
		respondError(w, entity.ErrNotFound)
		return
	}

	cancelled, err := h.orders.Cancel(r.Context(), orderID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, cancelled)
}

// --- admin ---

func (h *Handler) handleAdminListOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := h.orders.ListRecentOrders(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, orders)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.orders.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, order)
}

func (h *Handler) handleSetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.orders.SetPaymentStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, order)
}

func (h *Handler) handleAttachTracking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackingNumber string `json:"tracking_number"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.orders.AttachTracking(r.Context(), chi.URLParam(r, "id"), req.TrackingNumber)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, order)
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in service.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}
	product, err := h.catalog.CreateProduct(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, product)
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in service.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}
	product, err := h.catalog.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, product)
}

func (h *Handler) handleDeactivateProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeactivateProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

type inventoryRequest struct {
	Inventory *int `json:"inventory,omitempty"`
	Delta     *int `json:"delta,omitempty"`
}

func (h *Handler) handleSetInventory(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")

	var product *entity.Product
	var err error
	switch {
	case req.Inventory != nil:
		product, err = h.catalog.SetInventory(r.Context(), id, *req.Inventory)
	case req.Delta != nil:
		product, err = h.catalog.AdjustInventory(r.Context(), id, *req.Delta)
	default:
		err = &entity.ValidationError{Field: "body", Reason: "inventory or delta is required"}
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, product)
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analytics.Summary(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, summary)
}
