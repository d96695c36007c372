package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/storefront/internal/entity"
)

func testAddress() entity.Address {
	return entity.Address{
		Street:  "1 Market St",
		City:    "Springfield",
		State:   "OR",
		Zip:     "97477",
		Country: "US",
	}
}

func testProduct(id string, price string, inventory int) *entity.Product {
	return &entity.Product{
		ID:        id,
		Name:      "Product " + id,
		Category:  "test",
		Price:     decimal.RequireFromString(price),
		Inventory: inventory,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

type orderFixture struct {
	products *memProducts
	orders   *memOrders
	users    *memUsers
	notifier *recordingNotifier
	svc      *OrderService
}

func newOrderFixture(products ...*entity.Product) *orderFixture {
	memP := newMemProducts(products...)
	memO := newMemOrders(memP)
	memU := newMemUsers(&entity.User{ID: "user-1", Email: "amy@example.com", Name: "Amy"})
	notifier := &recordingNotifier{}
	return &orderFixture{
		products: memP,
		orders:   memO,
		users:    memU,
		notifier: notifier,
		svc:      NewOrderService(memO, memP, memU, notifier, nil),
	}
}

func placeInput(items ...OrderItemInput) PlaceOrderInput {
	return PlaceOrderInput{
		UserID:          "user-1",
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
		Items:           items,
	}
}

func TestPlaceOrder_ComputesTotalFromLivePrices(t *testing.T) {
	fix := newOrderFixture(
		testProduct("prod-a", "10.00", 8),
		testProduct("prod-b", "25.50", 3),
	)

	order, err := fix.svc.PlaceOrder(context.Background(), placeInput(
		OrderItemInput{ProductID: "prod-a", Quantity: 2},
		OrderItemInput{ProductID: "prod-b", Quantity: 1},
	))
	require.NoError(t, err)

	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("45.50")),
		"total should be 45.50, got %s", order.TotalAmount)
	assert.Equal(t, entity.OrderStatusPending, order.Status)
	assert.Equal(t, entity.PaymentStatusPending, order.PaymentStatus)
	require.Len(t, order.Lines, 2)

	// Total equals the sum of line subtotals exactly.
	sum := decimal.Zero
	for _, line := range order.Lines {
		sum = sum.Add(line.Subtotal())
	}
	assert.True(t, order.TotalAmount.Equal(sum))

	// Inventory decreased by exactly the ordered quantities.
	assert.Equal(t, 6, fix.products.products["prod-a"].Inventory)
	assert.Equal(t, 2, fix.products.products["prod-b"].Inventory)

	// The order was persisted and the notifier fired once.
	assert.Len(t, fix.orders.orders, 1)
	assert.Equal(t, []string{order.ID}, fix.notifier.PlacedOrders)
}

func TestPlaceOrder_SnapshotsProductAtPlacementTime(t *testing.T) {
	fix := newOrderFixture(testProduct("prod-a", "10.00", 5))

	order, err := fix.svc.PlaceOrder(context.Background(), placeInput(
		OrderItemInput{ProductID: "prod-a", Quantity: 1},
	))
	require.NoError(t, err)

	line := order.Lines[0]
	assert.Equal(t, entity.SnapshotVersion, line.Snapshot.Version)
	assert.Equal(t, "Product prod-a", line.Snapshot.Name)

	// A later price change must not touch the stored line price.
	fix.products.products["prod-a"].Price = decimal.RequireFromString("999.99")

	stored, err := fix.svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Lines[0].Price.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, stored.TotalAmount.Equal(decimal.RequireFromString("10.00")))
}

func TestPlaceOrder_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PlaceOrderInput)
	}{
		{"no items", func(in *PlaceOrderInput) { in.Items = nil }},
		{"zero quantity", func(in *PlaceOrderInput) { in.Items[0].Quantity = 0 }},
		{"negative quantity", func(in *PlaceOrderInput) { in.Items[0].Quantity = -2 }},
		{"missing street", func(in *PlaceOrderInput) { in.ShippingAddress.Street = "" }},
		{"missing city", func(in *PlaceOrderInput) { in.ShippingAddress.City = "" }},
		{"missing state", func(in *PlaceOrderInput) { in.ShippingAddress.State = "" }},
		{"missing zip", func(in *PlaceOrderInput) { in.ShippingAddress.Zip = "" }},
		{"missing country", func(in *PlaceOrderInput) { in.ShippingAddress.Country = "" }},
		{"missing payment method", func(in *PlaceOrderInput) { in.PaymentMethod = "" }},
		{"missing owner", func(in *PlaceOrderInput) { in.UserID = "" }},
		{"bad payment status", func(in *PlaceOrderInput) { in.PaymentStatus = "maybe" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fix := newOrderFixture(testProduct("prod-a", "10.00", 5))
			in := placeInput(OrderItemInput{ProductID: "prod-a", Quantity: 1})
			tc.mutate(&in)

			_, err := fix.svc.PlaceOrder(context.Background(), in)

			require.Error(t, err)
			assert.Empty(t, fix.orders.orders, "nothing may be persisted")
			assert.Equal(t, 5, fix.products.products["prod-a"].Inventory, "inventory must be untouched")
			assert.Empty(t, fix.notifier.PlacedOrders)
		})
	}
}

func TestPlaceOrder_UnknownProductRejected(t *testing.T) {
	fix := newOrderFixture(testProduct("prod-a", "10.00", 5))

	_, err := fix.svc.PlaceOrder(context.Background(), placeInput(
		OrderItemInput{ProductID: "prod-ghost", Quantity: 1},
	))

	var unavailableErr *entity.ProductUnavailableError
	require.ErrorAs(t, err, &unavailableErr)
	assert.Equal(t, "prod-ghost", unavailableErr.ProductID)
	assert.Empty(t, fix.orders.orders)
}

func TestPlaceOrder_InactiveProductRejected(t *testing.T) {
	inactive := testProduct("prod-a", "10.00", 5)
	inactive.IsActive = false
	fix := newOrderFixture(inactive)

	_, err := fix.svc.PlaceOrder(context.Background(), placeInput(
		OrderItemInput{ProductID: "prod-a", Quantity: 1},
	))

	var unavailableErr *entity.ProductUnavailableError
	require.ErrorAs(t, err, &unavailableErr)
	assert.Equal(t, 5, fix.products.products["prod-a"].Inventory)
}

func TestPlaceOrder_InsufficientInventoryIsAllOrNothing(t *testing.T) {
	// A covers its request, B does not: the whole order must fail, naming
	// B, with A's inventory unchanged.
	fix := newOrderFixture(
		testProduct("prod-a", "10.00", 5),
		testProduct("prod-b", "4.00", 2),
	)

	_, err := fix.svc.PlaceOrder(context.Background(), placeInput(
		OrderItemInput{ProductID: "prod-a", Quantity: 3},
		OrderItemInput{ProductID: "prod-b", Quantity: 10},
	))

	var inventoryErr *entity.InsufficientInventoryError
	require.ErrorAs(t, err, &inventoryErr)
	assert.Equal(t, "prod-b", inventoryErr.ProductID)
	assert.Equal(t, 10, inventoryErr.Requested)
	assert.Equal(t, 2, inventoryErr.Available)

	assert.Equal(t, 5, fix.products.products["prod-a"].Inventory, "A must be unchanged")
	assert.Equal(t, 2, fix.products.products["prod-b"].Inventory, "B must be unchanged")
	assert.Empty(t, fix.orders.orders, "no order rows may exist")
	assert.Empty(t, fix.notifier.PlacedOrders)
}

func TestPlaceOrder_NotifierFailureDoesNotFailPlacement(t *testing.T) {
	fix := newOrderFixture(testProduct("prod-a", "10.00", 5))
	fix.notifier.Fail = true

	order, err := fix.svc.PlaceOrder(context.Background(), placeInput(
		OrderItemInput{ProductID: "prod-a", Quantity: 1},
	))

	require.NoError(t, err, "notification errors are swallowed")
	assert.NotNil(t, order)
	assert.Len(t, fix.orders.orders, 1)
}

func TestCancel_RestoresExactlyTheReservedQuantities(t *testing.T) {
	fix := newOrderFixture(testProduct("prod-a", "10.00", 10))

	order, err := fix.svc.PlaceOrder(context.Background(), placeInput(
		OrderItemInput{ProductID: "prod-a", Quantity: 4},
	))
	require.NoError(t, err)
	require.Equal(t, 6, fix.products.products["prod-a"].Inventory)

	cancelled, err := fix.svc.Cancel(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, fix.products.products["prod-a"].Inventory, "stock must round-trip")

	// The status-change notification carries the previous status.
	require.Len(t, fix.notifier.StatusChanges, 1)
	assert.Equal(t, entity.OrderStatusPending, fix.notifier.StatusChanges[0].Previous)
	assert.Equal(t, entity.OrderStatusCancelled, fix.notifier.StatusChanges[0].Current)
}

func TestCancel_AlreadyCancelledIsRejectedWithoutDoubleRestore(t *testing.T) {
	fix := newOrderFixture(testProduct("prod-a", "10.00", 10))

	order, err := fix.svc.PlaceOrder(context.Background(), placeInput(
		OrderItemInput{ProductID: "prod-a", Quantity: 4},
	))
	require.NoError(t, err)

	_, err = fix.svc.Cancel(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, 10, fix.products.products["prod-a"].Inventory)

	_, err = fix.svc.Cancel(context.Background(), order.ID)

	var cancelErr *entity.CancellationNotAllowedError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, 10, fix.products.products["prod-a"].Inventory, "stock must not be restored twice")
}

func TestCancel_ShippedAndDeliveredAreRejected(t *testing.T) {
	for _, status := range []string{"shipped", "delivered"} {
		t.Run(status, func(t *testing.T) {
			fix := newOrderFixture(testProduct("prod-a", "10.00", 10))

			order, err := fix.svc.PlaceOrder(context.Background(), placeInput(
				OrderItemInput{ProductID: "prod-a", Quantity: 4},
			))
			require.NoError(t, err)

			_, err = fix.svc.SetStatus(context.Background(), order.ID, status)
			require.NoError(t, err)

			_, err = fix.svc.Cancel(context.Background(), order.ID)

			var cancelErr *entity.CancellationNotAllowedError
			require.ErrorAs(t, err, &cancelErr)
			assert.Equal(t, 6, fix.products.products["prod-a"].Inventory, "inventory must be untouched")
		})
	}
}

func TestSetStatus_RejectsUnknownValues(t *testing.T) {
	fix := newOrderFixture(testProduct("prod-a", "10.00", 5))

	order, err := fix.svc.PlaceOrder(context.Background(), placeInput(
		OrderItemInput{ProductID: "prod-a", Quantity: 1},
	))
	require.NoError(t, err)

	_, err = fix.svc.SetStatus(context.Background(), order.ID, "teleported")

	var statusErr *entity.InvalidStatusError
	require.ErrorAs(t, err, &statusErr)
}

func TestSetStatus_NotifiesWithPreviousStatus(t *testing.T) {
	fix := newOrderFixture(testProduct("prod-a", "10.00", 5))

	order, err := fix.svc.PlaceOrder(context.Background(), placeInput(
		OrderItemInput{ProductID: "prod-a", Quantity: 1},
	))
	require.NoError(t, err)

	updated, err := fix.svc.SetStatus(context.Background(), order.ID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusConfirmed, updated.Status)

	require.Len(t, fix.notifier.StatusChanges, 1)
	assert.Equal(t, entity.OrderStatusPending, fix.notifier.StatusChanges[0].Previous)
	assert.Equal(t, entity.OrderStatusConfirmed, fix.notifier.StatusChanges[0].Current)
}

func TestSetStatus_CancelledRoutesThroughCancellation(t *testing.T) {
	fix := newOrderFixture(testProduct("prod-a", "10.00", 10))

	order, err := fix.svc.PlaceOrder(context.Background(), placeInput(
		OrderItemInput{ProductID: "prod-a", Quantity: 4},
	))
	require.NoError(t, err)
	require.Equal(t, 6, fix.products.products["prod-a"].Inventory)

	updated, err := fix.svc.SetStatus(context.Background(), order.ID, "cancelled")
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusCancelled, updated.Status)
	assert.Equal(t, 10, fix.products.products["prod-a"].Inventory, "SetStatus(cancelled) must restore stock")
}

func TestSetPaymentStatus_IsIndependentOfFulfillment(t *testing.T) {
	fix := newOrderFixture(testProduct("prod-a", "10.00", 5))

	order, err := fix.svc.PlaceOrder(context.Background(), placeInput(
		OrderItemInput{ProductID: "prod-a", Quantity: 1},
	))
	require.NoError(t, err)

	updated, err := fix.svc.SetPaymentStatus(context.Background(), order.ID, "completed")
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentStatusCompleted, updated.PaymentStatus)
	assert.Equal(t, entity.OrderStatusPending, updated.Status, "fulfillment status must not move")

	_, err = fix.svc.SetPaymentStatus(context.Background(), order.ID, "unpaid-ish")
	var statusErr *entity.InvalidStatusError
	require.ErrorAs(t, err, &statusErr)
}

func TestAttachTracking(t *testing.T) {
	fix := newOrderFixture(testProduct("prod-a", "10.00", 5))

	order, err := fix.svc.PlaceOrder(context.Background(), placeInput(
		OrderItemInput{ProductID: "prod-a", Quantity: 1},
	))
	require.NoError(t, err)

	updated, err := fix.svc.AttachTracking(context.Background(), order.ID, "TRACK-123")
	require.NoError(t, err)
	assert.Equal(t, "TRACK-123", updated.TrackingNumber)

	_, err = fix.svc.AttachTracking(context.Background(), order.ID, "")
	var validationErr *entity.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestPlaceOrder_CallerMaySetInitialPaymentStatus(t *testing.T) {
	fix := newOrderFixture(testProduct("prod-a", "10.00", 5))

	in := placeInput(OrderItemInput{ProductID: "prod-a", Quantity: 1})
	in.PaymentStatus = "processing"

	order, err := fix.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusProcessing, order.PaymentStatus)
}

func TestGetOrderAndListing(t *testing.T) {
	fix := newOrderFixture(testProduct("prod-a", "10.00", 20))

	first, err := fix.svc.PlaceOrder(context.Background(), placeInput(
		OrderItemInput{ProductID: "prod-a", Quantity: 1},
	))
	require.NoError(t, err)

	got, err := fix.svc.GetOrder(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = fix.svc.GetOrder(context.Background(), "order-ghost")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	mine, err := fix.svc.ListUserOrders(context.Background(), "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
