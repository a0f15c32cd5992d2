package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/gini3d/marketd/internal/auth"
	"github.com/gini3d/marketd/internal/cart"
	"github.com/gini3d/marketd/internal/checkout"
	"github.com/gini3d/marketd/internal/market"
	"github.com/gini3d/marketd/internal/rates"
	"github.com/gini3d/marketd/internal/redisx"
)

// MarketHandler exposes the marketplace domain over HTTP.
type MarketHandler struct {
	Catalog  *market.ProductService
	Cart     *cart.Store
	Rates    *rates.Service
	Checkout *checkout.Coordinator
	Auth     *auth.Service
	Redis    *redis.Client
}

func (h *MarketHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{naddr}", h.getProduct)
	r.Get("/sellers", h.listSellers)
	r.Get("/rates", h.getRates)

	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addCartItem)
	r.Patch("/cart/items/{id}", h.updateCartItem)
	r.Delete("/cart/items/{id}", h.removeCartItem)
	r.Delete("/cart", h.clearCart)

	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)
	r.Get("/auth/session", h.session)

	r.Get("/checkout", h.checkoutState)
	r.Post("/checkout/shipping", h.submitShipping)
	r.Post("/checkout/payment/complete", h.completePayment)
	r.Post("/checkout/close", h.closeCheckout)

	r.Get("/orders/{id}", h.getOrderStatus)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func errJSON(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (h *MarketHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()

	q := market.ListingQuery{
		Sellers: splitParam(r.URL.Query().Get("sellers")),
		Tags:    splitParam(r.URL.Query().Get("tags")),
		Search:  r.URL.Query().Get("q"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			q.Limit = n
		}
	}

	products, err := h.Catalog.ListProducts(ctx, q)
	if err != nil {
		errJSON(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *MarketHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()

	product, err := h.Catalog.GetProduct(ctx, chi.URLParam(r, "naddr"))
	switch {
	case errors.Is(err, market.ErrProductNotFound):
		errJSON(w, http.StatusNotFound, "product not found")
	case err != nil:
		errJSON(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusOK, product)
	}
}

// listSellers returns the whitelisted sellers' profiles, bare-key profiles
// for any that have no kind-0 metadata.
func (h *MarketHandler) listSellers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pubkeys := h.Catalog.Whitelist
	profiles := make([]market.SellerProfile, len(pubkeys))
	var g errgroup.Group
	for i, pubkey := range pubkeys {
		i, pubkey := i, pubkey
		g.Go(func() error {
			profiles[i] = h.Catalog.FetchProfile(ctx, pubkey)
			return nil
		})
	}
	_ = g.Wait()
	writeJSON(w, http.StatusOK, profiles)
}

func (h *MarketHandler) getRates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	writeJSON(w, http.StatusOK, h.Rates.GetRates(ctx))
}

type cartView struct {
	Items      []market.CartItem `json:"items"`
	TotalItems int               `json:"totalItems"`
	TotalPrice string            `json:"totalPrice"`
	Currency   string            `json:"currency"`
}

func (h *MarketHandler) getCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cartView())
}

func (h *MarketHandler) cartView() cartView {
	items := h.Cart.Items()
	if items == nil {
		items = []market.CartItem{}
	}
	total, currency := h.Cart.TotalPrice()
	return cartView{
		Items:      items,
		TotalItems: h.Cart.TotalItems(),
		TotalPrice: total.String(),
		Currency:   currency,
	}
}

type addItemReq struct {
	Product  market.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

func (h *MarketHandler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Product.ID == "" {
		errJSON(w, http.StatusBadRequest, "missing product")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	h.Cart.AddItem(r.Context(), req.Product, req.Quantity)
	writeJSON(w, http.StatusOK, h.cartView())
}

func (h *MarketHandler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	h.Cart.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), req.Quantity)
	writeJSON(w, http.StatusOK, h.cartView())
}

func (h *MarketHandler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	h.Cart.RemoveItem(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, h.cartView())
}

func (h *MarketHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.Cart.Clear(r.Context())
	writeJSON(w, http.StatusOK, h.cartView())
}

type loginReq struct {
	Key string `json:"key,omitempty"` // nsec or hex; empty uses the signer
}

func (h *MarketHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var (
		profile *market.SellerProfile
		err     error
	)
	if req.Key != "" {
		profile, err = h.Auth.LoginWithKey(ctx, req.Key)
	} else {
		profile, err = h.Auth.Login(ctx)
	}
	if err != nil {
		errJSON(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *MarketHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.Auth.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *MarketHandler) session(w http.ResponseWriter, r *http.Request) {
	user := h.Auth.User()
	if user == nil {
		errJSON(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *MarketHandler) checkoutState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	writeJSON(w, http.StatusOK, h.Checkout.State(ctx))
}

func (h *MarketHandler) submitShipping(w http.ResponseWriter, r *http.Request) {
	var info checkout.ShippingInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()

	err := h.Checkout.SubmitShipping(ctx, info)
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":       "validation failed",
			"fieldErrors": verr.Fields,
		})
	case errors.Is(err, checkout.ErrNotAuthenticated):
		errJSON(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		errJSON(w, http.StatusBadRequest, err.Error())
	case err != nil:
		errJSON(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, h.Checkout.State(ctx))
	}
}

func (h *MarketHandler) completePayment(w http.ResponseWriter, r *http.Request) {
	if err := h.Checkout.CompletePayment(r.Context()); err != nil {
		errJSON(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.Checkout.State(r.Context()))
}

func (h *MarketHandler) closeCheckout(w http.ResponseWriter, r *http.Request) {
	h.Checkout.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (h *MarketHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		errJSON(w, http.StatusBadRequest, "missing id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	s, err := h.Redis.Get(ctx, key).Result()
	if err != nil || s == "" {
		errJSON(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(s))
}

func splitParam(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
