package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/storefront-labs/storefront/internal/entity"
	"github.com/storefront-labs/storefront/internal/repository"
)

// CartService manages authenticated and guest carts. Authenticated carts
// persist in Postgres keyed by user ID; guest carts live in Redis keyed by
// session token, and fold into the user cart at login.
type CartService struct {
	userCarts   repository.CartRepository
	guestCarts  repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(
	userCarts repository.CartRepository,
	guestCarts repository.CartRepository,
	productRepo repository.ProductRepository,
) *CartService {
	return &CartService{
		userCarts:   userCarts,
		guestCarts:  guestCarts,
		productRepo: productRepo,
	}
}

func (s *CartService) store(guest bool) repository.CartRepository {
	if guest {
		return s.guestCarts
	}
	return s.userCarts
}

// GetCart returns the current cart for the owner, empty if none exists.
func (s *CartService) GetCart(ctx context.Context, owner string, guest bool) (*entity.Cart, error) {
	return s.store(guest).Get(ctx, owner)
}

// AddItem puts quantity units of a product into the cart, capturing the
// product's current price for display. The price is advisory; checkout
// re-reads the live price.
func (s *CartService) AddItem(ctx context.Context, owner string, guest bool, productID string, quantity int) (*entity.Cart, error) {
	if quantity <= 0 {
		return nil, &entity.ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, &entity.ProductUnavailableError{ProductID: productID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up product %s: %w", productID, err)
	}
	if !product.IsActive {
		return nil, &entity.ProductUnavailableError{ProductID: productID}
	}

	store := s.store(guest)
	cart, err := store.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	cart.Add(productID, quantity, product.Price)

	if err := store.Save(ctx, cart); err != nil {
		return nil, err
	}
	slog.Info("Item added to cart", "owner", owner, "product_id", productID, "quantity", quantity)
	return cart, nil
}

// SetQuantity replaces the quantity of a cart line; zero removes it.
func (s *CartService) SetQuantity(ctx context.Context, owner string, guest bool, productID string, quantity int) (*entity.Cart, error) {
	if quantity < 0 {
		return nil, &entity.ValidationError{Field: "quantity", Reason: "must not be negative"}
	}

	store := s.store(guest)
	cart, err := store.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !cart.SetQuantity(productID, quantity) {
		return nil, entity.ErrNotFound
	}
	if err := store.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem drops a product from the cart.
func (s *CartService) RemoveItem(ctx context.Context, owner string, guest bool, productID string) (*entity.Cart, error) {
	store := s.store(guest)
	cart, err := store.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	cart.Remove(productID)
	if err := store.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Clear empties the cart, used after a successful checkout.
func (s *CartService) Clear(ctx context.Context, owner string, guest bool) error {
	return s.store(guest).Clear(ctx, owner)
}

// MergeGuestCart folds the session cart into the user's cart at login,
// adding quantities for products present in both, then discards the session
// cart.
func (s *CartService) MergeGuestCart(ctx context.Context, sessionToken, userID string) error {
	if sessionToken == "" {
		return nil
	}
	guestCart, err := s.guestCarts.Get(ctx, sessionToken)
	if err != nil {
		return err
	}
	if len(guestCart.Items) == 0 {
		return nil
	}

	userCart, err := s.userCarts.Get(ctx, userID)
	if err != nil {
		return err
	}
	userCart.Merge(guestCart)

	if err := s.userCarts.Save(ctx, userCart); err != nil {
		return err
	}
	if err := s.guestCarts.Clear(ctx, sessionToken); err != nil {
		slog.Error("Failed to drop merged session cart", "session", sessionToken, "err", err)
	}
	slog.Info("Guest cart merged", "user_id", userID, "items", len(guestCart.Items))
	return nil
}

// CheckoutItems converts the cart's contents into placement line inputs.
// The cart only supplies (product, quantity); pricing belongs to the order
// placement workflow.
func (s *CartService) CheckoutItems(ctx context.Context, owner string, guest bool) ([]OrderItemInput, error) {
	cart, err := s.store(guest).Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, &entity.ValidationError{Field: "cart", Reason: "cart is empty"}
	}
	items := make([]OrderItemInput, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, OrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return items, nil
}
