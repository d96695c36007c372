package entity

import "github.com/shopspring/decimal"

// CartItem is an item currently in a cart. Price mirrors the product's price
// at the time the item was added; it is advisory only — the order placement
// workflow re-reads the live price at checkout.
type CartItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Cart holds the candidate line items consumed by order placement. Owner is
// either a user ID (authenticated cart) or a session token (guest cart).
type Cart struct {
	Owner string               `json:"owner"`
	Items map[string]*CartItem `json:"items"`
}

// NewCart creates an empty cart for the given owner.
func NewCart(owner string) *Cart {
	return &Cart{Owner: owner, Items: make(map[string]*CartItem)}
}

// Add puts quantity units of a product into the cart, merging with any
// existing line for the same product.
func (c *Cart) Add(productID string, quantity int, price decimal.Decimal) {
	if item, exists := c.Items[productID]; exists {
		item.Quantity += quantity
		item.Price = price
		return
	}
	c.Items[productID] = &CartItem{ProductID: productID, Quantity: quantity, Price: price}
}

// SetQuantity replaces the quantity for a product; a quantity of zero or
// less removes the line.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	item, exists := c.Items[productID]
	if !exists {
		return false
	}
	if quantity <= 0 {
		delete(c.Items, productID)
		return true
	}
	item.Quantity = quantity
	return true
}

// Remove drops a product from the cart entirely.
func (c *Cart) Remove(productID string) {
	delete(c.Items, productID)
}

// Merge folds another cart into this one, adding quantities for products
// present in both. Used when a guest logs in and their session cart joins
// their account cart.
func (c *Cart) Merge(other *Cart) {
	for _, item := range other.Items {
		c.Add(item.ProductID, item.Quantity, item.Price)
	}
}

// Total returns the advisory cart total from the captured item prices.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
