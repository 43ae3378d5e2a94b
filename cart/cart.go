package cart

import (
	"iter"
	"math"
	"sync"

	"boomerang-backend/models"

	"github.com/google/uuid"
)

// LineItem is one product plus its aggregated quantity.
type LineItem struct {
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

// Cart holds line items keyed by product, in insertion order. Adding an
// existing product merges by summing quantities. All methods are safe
// for concurrent use; rapid repeated mutations stay consistent.
type Cart struct {
	mu    sync.Mutex
	order []uuid.UUID
	items map[uuid.UUID]*LineItem

	onMutate func()
}

func New() *Cart {
	return &Cart{items: make(map[uuid.UUID]*LineItem)}
}

// SetOnMutate registers a hook invoked after every successful mutation.
// Used to invalidate any in-progress checkout when the cart changes.
func (c *Cart) SetOnMutate(fn func()) {
	c.mu.Lock()
	c.onMutate = fn
	c.mu.Unlock()
}

// AddItem increments the quantity for a product, inserting a new line
// item if absent. A quantity of zero or less is a no-op.
func (c *Cart) AddItem(product models.Product, qty int) {
	if qty <= 0 {
		return
	}
	c.mu.Lock()
	if item, ok := c.items[product.ID]; ok {
		item.Quantity += qty
		item.Product = product
	} else {
		c.items[product.ID] = &LineItem{Product: product, Quantity: qty}
		c.order = append(c.order, product.ID)
	}
	fn := c.onMutate
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// RemoveItem deletes the line item entirely, regardless of quantity.
func (c *Cart) RemoveItem(productID uuid.UUID) {
	c.mu.Lock()
	_, existed := c.items[productID]
	if existed {
		delete(c.items, productID)
		c.removeFromOrder(productID)
	}
	fn := c.onMutate
	c.mu.Unlock()
	if existed && fn != nil {
		fn()
	}
}

// SetQuantity overwrites the quantity for a product already in the
// cart. A quantity of zero or less removes the item. Unknown products
// are a no-op.
func (c *Cart) SetQuantity(productID uuid.UUID, qty int) {
	c.mu.Lock()
	item, ok := c.items[productID]
	if !ok {
		c.mu.Unlock()
		return
	}
	if qty <= 0 {
		delete(c.items, productID)
		c.removeFromOrder(productID)
	} else {
		item.Quantity = qty
	}
	fn := c.onMutate
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// GroupedItems returns a lazy sequence of line items in insertion
// order. The sequence snapshots the cart when created, so it can be
// iterated more than once and is not affected by later mutations.
func (c *Cart) GroupedItems() iter.Seq[LineItem] {
	c.mu.Lock()
	snapshot := make([]LineItem, 0, len(c.order))
	for _, id := range c.order {
		snapshot = append(snapshot, *c.items[id])
	}
	c.mu.Unlock()

	return func(yield func(LineItem) bool) {
		for _, item := range snapshot {
			if !yield(item) {
				return
			}
		}
	}
}

// Items returns the line items as a slice, in insertion order.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LineItem, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id])
	}
	return out
}

// Count returns the total item count: the sum of quantities across all
// line items.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

// Subtotal is the sum of price times quantity before any discount.
func (c *Cart) Subtotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := 0.0
	for _, item := range c.items {
		sum += item.Product.Price * float64(item.Quantity)
	}
	return roundCents(sum)
}

// Total applies each item's own discount, rounded per item to cents,
// then sums. Rounding per line item avoids compounding rounding error
// at the aggregate level.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := 0.0
	for _, item := range c.items {
		sum += item.Product.DiscountedPrice() * float64(item.Quantity)
	}
	return roundCents(sum)
}

// Reset clears all line items. Irreversible; callers are expected to
// have confirmed the action with the user first.
func (c *Cart) Reset() {
	c.mu.Lock()
	c.items = make(map[uuid.UUID]*LineItem)
	c.order = nil
	fn := c.onMutate
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Cart) removeFromOrder(productID uuid.UUID) {
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
