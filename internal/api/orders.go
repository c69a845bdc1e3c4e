package api

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/ec-storefront/internal/readmodel"
)

// validTransitions defines allowed order status changes
var validTransitions = map[string][]string{
	readmodel.OrderPending:    {readmodel.OrderProcessing, readmodel.OrderCancelled},
	readmodel.OrderProcessing: {readmodel.OrderShipped, readmodel.OrderCancelled},
	readmodel.OrderShipped:    {readmodel.OrderDelivered},
	readmodel.OrderDelivered:  {},
	readmodel.OrderCancelled:  {},
}

func canTransition(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Cart returns a user's cart with server-computed totals
func (b *Backend) Cart(userID int64) readmodel.CartSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cartLocked(userID)
}

func (b *Backend) cartLocked(userID int64) readmodel.CartSnapshot {
	lines := b.carts[userID]
	snap := readmodel.CartSnapshot{Items: make([]readmodel.CartLine, 0, len(lines)), TotalAmount: decimal.Zero}
	for _, l := range lines {
		if p, ok := b.products[l.ProductID]; ok {
			l.ProductName = p.Name
			l.ProductSlug = p.Slug
			l.ProductImageURL = p.ImageURL
			l.Price = p.Price
		}
		l.Subtotal = subtotal(l.Price, l.Quantity)
		snap.TotalAmount = snap.TotalAmount.Add(l.Subtotal)
		snap.Items = append(snap.Items, l)
	}
	return snap
}

// AddToCart adds quantity units of a product, merging with an existing line
func (b *Backend) AddToCart(userID, productID int64, quantity int) (readmodel.CartSnapshot, error) {
	if quantity < 1 {
		return readmodel.CartSnapshot{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[productID]
	if !ok {
		return readmodel.CartSnapshot{}, fmt.Errorf("%w: product %d", ErrNotFound, productID)
	}
	if !p.IsActive {
		return readmodel.CartSnapshot{}, ErrInactiveProduct
	}

	lines := b.carts[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			if lines[i].Quantity+quantity > p.Stock {
				return readmodel.CartSnapshot{}, ErrInsufficientStock
			}
			lines[i].Quantity += quantity
			return b.cartLocked(userID), nil
		}
	}
	if quantity > p.Stock {
		return readmodel.CartSnapshot{}, ErrInsufficientStock
	}
	b.carts[userID] = append(lines, readmodel.CartLine{ID: b.id(), ProductID: productID, Quantity: quantity})
	return b.cartLocked(userID), nil
}

// UpdateCartItem sets a line's quantity
func (b *Backend) UpdateCartItem(userID, itemID int64, quantity int) (readmodel.CartSnapshot, error) {
	if quantity < 1 {
		return readmodel.CartSnapshot{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.carts[userID]
	for i := range lines {
		if lines[i].ID != itemID {
			continue
		}
		if p, ok := b.products[lines[i].ProductID]; ok && quantity > p.Stock {
			return readmodel.CartSnapshot{}, ErrInsufficientStock
		}
		lines[i].Quantity = quantity
		return b.cartLocked(userID), nil
	}
	return readmodel.CartSnapshot{}, fmt.Errorf("%w: cart item %d", ErrNotFound, itemID)
}

// RemoveCartItem deletes a line
func (b *Backend) RemoveCartItem(userID, itemID int64) (readmodel.CartSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.carts[userID]
	for i := range lines {
		if lines[i].ID == itemID {
			b.carts[userID] = append(lines[:i:i], lines[i+1:]...)
			return b.cartLocked(userID), nil
		}
	}
	return readmodel.CartSnapshot{}, fmt.Errorf("%w: cart item %d", ErrNotFound, itemID)
}

// ClearCart empties a user's cart
func (b *Backend) ClearCart(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.carts, userID)
}

// CreateOrder turns the cart into a pending order, reserving stock and
// emptying the cart
func (b *Backend) CreateOrder(userID int64, shippingAddress, provider string) (readmodel.Order, error) {
	if strings.TrimSpace(shippingAddress) == "" {
		return readmodel.Order{}, fmt.Errorf("%w: shipping address is required", ErrInvalidInput)
	}
	if provider != readmodel.ProviderPaystack && provider != readmodel.ProviderStripe {
		return readmodel.Order{}, fmt.Errorf("%w: unknown payment provider %q", ErrInvalidInput, provider)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	cart := b.cartLocked(userID)
	if len(cart.Items) == 0 {
		return readmodel.Order{}, ErrEmptyCart
	}
	for _, l := range cart.Items {
		p, ok := b.products[l.ProductID]
		if !ok || !p.IsActive {
			return readmodel.Order{}, fmt.Errorf("%w: %s", ErrInactiveProduct, l.ProductName)
		}
		if l.Quantity > p.Stock {
			return readmodel.Order{}, fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
		}
	}

	user := b.users[userID]
	order := readmodel.Order{
		ID:              b.id(),
		TotalAmount:     cart.TotalAmount,
		Status:          readmodel.OrderPending,
		PaymentProvider: provider,
		PaymentStatus:   readmodel.PaymentPending,
		ShippingAddress: shippingAddress,
		CreatedAt:       b.now().UTC(),
	}
	order.OrderNumber = fmt.Sprintf("ORD-%06d", order.ID)
	if user != nil {
		order.CustomerName = user.user.FullName()
		order.CustomerEmail = user.user.Email
	}
	for _, l := range cart.Items {
		b.products[l.ProductID].Stock -= l.Quantity
		order.Items = append(order.Items, readmodel.OrderItem{
			ID:              b.id(),
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			ProductImageURL: l.ProductImageURL,
			Quantity:        l.Quantity,
			Price:           l.Price,
			Subtotal:        l.Subtotal,
		})
	}

	b.orders[order.ID] = &orderRecord{order: order, userID: userID}
	delete(b.carts, userID)
	return order, nil
}

// Orders lists a user's orders, newest first
func (b *Backend) Orders(userID int64, page, size int) readmodel.Page[readmodel.Order] {
	return b.listOrders(func(rec *orderRecord) bool { return rec.userID == userID }, page, size)
}

// AllOrders lists every order, newest first
func (b *Backend) AllOrders(page, size int) readmodel.Page[readmodel.Order] {
	return b.listOrders(func(*orderRecord) bool { return true }, page, size)
}

func (b *Backend) listOrders(keep func(*orderRecord) bool, page, size int) readmodel.Page[readmodel.Order] {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []readmodel.Order
	for _, rec := range b.orders {
		if keep(rec) {
			out = append(out, rec.order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, page, size)
}

// Order returns an order visible to userID; admins see every order
func (b *Backend) Order(userID, orderID int64, admin bool) (readmodel.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, err := b.ownedOrderLocked(userID, orderID, admin)
	if err != nil {
		return readmodel.Order{}, err
	}
	return rec.order, nil
}

func (b *Backend) ownedOrderLocked(userID, orderID int64, admin bool) (*orderRecord, error) {
	rec, ok := b.orders[orderID]
	if !ok || (!admin && rec.userID != userID) {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	return rec, nil
}

// InitializePaystack issues a payment reference and a hosted payment URL
func (b *Backend) InitializePaystack(userID, orderID int64) (readmodel.PaystackInit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, err := b.payableOrderLocked(userID, orderID)
	if err != nil {
		return readmodel.PaystackInit{}, err
	}
	ref := "PSK-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	b.bindReferenceLocked(rec, ref)
	return readmodel.PaystackInit{
		AuthorizationURL: strings.TrimRight(b.PaymentBaseURL, "/") + "/pay/paystack/" + ref,
		Reference:        ref,
	}, nil
}

// CreateStripeIntent issues a payment intent. Test-mode intents succeed
// immediately, so the intent id verifies without a hosted page.
func (b *Backend) CreateStripeIntent(userID, orderID int64) (readmodel.StripeIntent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, err := b.payableOrderLocked(userID, orderID)
	if err != nil {
		return readmodel.StripeIntent{}, err
	}
	intent := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
	b.bindReferenceLocked(rec, intent)
	rec.paid = true
	return readmodel.StripeIntent{ClientSecret: intent + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]}, nil
}

func (b *Backend) payableOrderLocked(userID, orderID int64) (*orderRecord, error) {
	rec, err := b.ownedOrderLocked(userID, orderID, false)
	if err != nil {
		return nil, err
	}
	if rec.order.PaymentStatus == readmodel.PaymentCompleted {
		return nil, fmt.Errorf("%w: order already paid", ErrInvalidStatus)
	}
	if rec.order.Status == readmodel.OrderCancelled {
		return nil, fmt.Errorf("%w: order cancelled", ErrInvalidStatus)
	}
	return rec, nil
}

func (b *Backend) bindReferenceLocked(rec *orderRecord, ref string) {
	if rec.reference != "" {
		delete(b.references, rec.reference)
	}
	rec.reference = ref
	rec.paid = false
	b.references[ref] = rec.order.ID
}

// CompleteHostedPayment marks a Paystack reference as paid, as the hosted
// page would after the customer pays
func (b *Backend) CompleteHostedPayment(ref string) (readmodel.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.references[ref]
	if !ok {
		return readmodel.Order{}, ErrInvalidReference
	}
	rec := b.orders[id]
	rec.paid = true
	return rec.order, nil
}

// VerifyPayment confirms a payment by reference. A paid reference completes
// the order; an unpaid one leaves it pending.
func (b *Backend) VerifyPayment(userID, orderID int64, provider, reference string) (readmodel.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, err := b.ownedOrderLocked(userID, orderID, false)
	if err != nil {
		return readmodel.Order{}, err
	}
	if rec.order.PaymentStatus == readmodel.PaymentCompleted {
		return rec.order, nil
	}
	if provider != rec.order.PaymentProvider || reference == "" || reference != rec.reference {
		rec.order.PaymentStatus = readmodel.PaymentFailed
		return rec.order, ErrInvalidReference
	}
	if rec.paid {
		rec.order.PaymentStatus = readmodel.PaymentCompleted
		rec.order.Status = readmodel.OrderProcessing
	}
	return rec.order, nil
}

// UpdateOrderStatus moves an order along its lifecycle. Cancelling returns
// the reserved stock.
func (b *Backend) UpdateOrderStatus(orderID int64, status string) (readmodel.Order, error) {
	if !readmodel.ValidOrderStatus(status) {
		return readmodel.Order{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.orders[orderID]
	if !ok {
		return readmodel.Order{}, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	if !canTransition(rec.order.Status, status) {
		return readmodel.Order{}, fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, rec.order.Status, status)
	}
	if status == readmodel.OrderCancelled {
		for _, item := range rec.order.Items {
			if p, ok := b.products[item.ProductID]; ok {
				p.Stock += item.Quantity
			}
		}
	}
	rec.order.Status = status
	return rec.order, nil
}
