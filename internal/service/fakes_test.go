package service

import (
	"context"
	"errors"
	"sort"

	"github.com/storefront-labs/storefront/internal/entity"
	"github.com/storefront-labs/storefront/internal/repository"
)

var errFailingNotifier = errors.New("smtp relay down")

// memProducts is an in-memory ProductRepository with the same reservation
// semantics as the Postgres implementation.
type memProducts struct {
	products map[string]*entity.Product
}

func newMemProducts(products ...*entity.Product) *memProducts {
	m := &memProducts{products: make(map[string]*entity.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memProducts) Create(_ context.Context, p *entity.Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *memProducts) Update(_ context.Context, p *entity.Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return entity.ErrNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *memProducts) Deactivate(_ context.Context, id string) error {
	p, ok := m.products[id]
	if !ok {
		return entity.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (m *memProducts) FindByID(_ context.Context, id string) (*entity.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memProducts) FindAll(_ context.Context, filter repository.ProductFilter) ([]entity.Product, error) {
	var out []entity.Product
	for _, p := range m.products {
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memProducts) SetInventory(_ context.Context, id string, inventory int) error {
	if inventory < 0 {
		return &entity.ValidationError{Field: "inventory", Reason: "must not be negative"}
	}
	p, ok := m.products[id]
	if !ok {
		return entity.ErrNotFound
	}
	p.Inventory = inventory
	return nil
}

func (m *memProducts) Reserve(_ context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return &entity.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	p, ok := m.products[productID]
	if !ok {
		return entity.ErrNotFound
	}
	if p.Inventory < quantity {
		return &entity.InsufficientInventoryError{ProductID: productID, Requested: quantity, Available: p.Inventory}
	}
	p.Inventory -= quantity
	return nil
}

func (m *memProducts) Release(_ context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return &entity.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	p, ok := m.products[productID]
	if !ok {
		return entity.ErrNotFound
	}
	p.Inventory += quantity
	return nil
}

// memOrders is an in-memory OrderRepository whose Create mirrors the
// all-or-nothing transaction of the Postgres implementation: every line is
// checked against stock before any decrement, so a failed placement leaves
// no order and no inventory change.
type memOrders struct {
	orders   map[string]*entity.Order
	products *memProducts
}

func newMemOrders(products *memProducts) *memOrders {
	return &memOrders{orders: make(map[string]*entity.Order), products: products}
}

func (m *memOrders) Create(ctx context.Context, order *entity.Order) error {
	for _, line := range order.Lines {
		p, ok := m.products.products[line.ProductID]
		if !ok {
			return entity.ErrNotFound
		}
		if p.Inventory < line.Quantity {
			return &entity.InsufficientInventoryError{
				ProductID: line.ProductID, Requested: line.Quantity, Available: p.Inventory,
			}
		}
	}
	for _, line := range order.Lines {
		m.products.products[line.ProductID].Inventory -= line.Quantity
	}
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *memOrders) FindByID(_ context.Context, id string) (*entity.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *memOrders) FindByUser(_ context.Context, userID string, limit int) ([]entity.Order, error) {
	var out []entity.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOrders) FindRecent(_ context.Context, limit int) ([]entity.Order, error) {
	var out []entity.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id string, status entity.OrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return entity.ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *memOrders) UpdatePaymentStatus(_ context.Context, id string, status entity.PaymentStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return entity.ErrNotFound
	}
	o.PaymentStatus = status
	return nil
}

func (m *memOrders) UpdateTracking(_ context.Context, id string, trackingNumber string) error {
	o, ok := m.orders[id]
	if !ok {
		return entity.ErrNotFound
	}
	o.TrackingNumber = trackingNumber
	return nil
}

func (m *memOrders) Cancel(ctx context.Context, order *entity.Order) error {
	stored, ok := m.orders[order.ID]
	if !ok {
		return entity.ErrNotFound
	}
	switch stored.Status {
	case entity.OrderStatusCancelled, entity.OrderStatusShipped, entity.OrderStatusDelivered:
		return &entity.CancellationNotAllowedError{
			OrderID: order.ID, Status: stored.Status, Reason: "order is no longer cancellable",
		}
	}
	for _, line := range stored.Lines {
		m.products.products[line.ProductID].Inventory += line.Quantity
	}
	stored.Status = entity.OrderStatusCancelled
	return nil
}

// memUsers is an in-memory UserRepository.
type memUsers struct {
	users map[string]*entity.User
}

func newMemUsers(users ...*entity.User) *memUsers {
	m := &memUsers{users: make(map[string]*entity.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, user *entity.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return &entity.ValidationError{Field: "email", Reason: "already registered"}
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*entity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, entity.ErrNotFound
}

// memCarts is an in-memory CartRepository.
type memCarts struct {
	carts map[string]*entity.Cart
}

func newMemCarts() *memCarts {
	return &memCarts{carts: make(map[string]*entity.Cart)}
}

func (m *memCarts) Get(_ context.Context, owner string) (*entity.Cart, error) {
	stored, ok := m.carts[owner]
	if !ok {
		return entity.NewCart(owner), nil
	}
	cart := entity.NewCart(owner)
	for id, item := range stored.Items {
		copied := *item
		cart.Items[id] = &copied
	}
	return cart, nil
}

func (m *memCarts) Save(_ context.Context, cart *entity.Cart) error {
	stored := entity.NewCart(cart.Owner)
	for id, item := range cart.Items {
		copied := *item
		stored.Items[id] = &copied
	}
	m.carts[cart.Owner] = stored
	return nil
}

func (m *memCarts) Clear(_ context.Context, owner string) error {
	delete(m.carts, owner)
	return nil
}

// recordingNotifier captures notification calls; Fail makes every call
// return an error to verify notifier failures never surface.
type recordingNotifier struct {
	Fail          bool
	PlacedOrders  []string
	StatusChanges []statusChange
}

type statusChange struct {
	OrderID  string
	Previous entity.OrderStatus
	Current  entity.OrderStatus
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, _ *entity.User, order *entity.Order) error {
	n.PlacedOrders = append(n.PlacedOrders, order.ID)
	if n.Fail {
		return errFailingNotifier
	}
	return nil
}

func (n *recordingNotifier) OrderStatusChanged(_ context.Context, _ *entity.User, order *entity.Order, previous entity.OrderStatus) error {
	n.StatusChanges = append(n.StatusChanges, statusChange{
		OrderID: order.ID, Previous: previous, Current: order.Status,
	})
	if n.Fail {
		return errFailingNotifier
	}
	return nil
}
