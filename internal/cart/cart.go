package cart

// Product is the catalog snapshot copied into a line item at add time.
// Price and PV are in minor units.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Image string `json:"image,omitempty"`
	PV    int64  `json:"pv"`
}

type LineItem struct {
	Product
	Quantity int `json:"quantity"`
}

// Cart is an immutable list of line items keyed by product id.
// Values returned by Reduce must not be modified.
type Cart struct {
	items []LineItem
}

var empty = &Cart{}

// Empty returns the empty cart.
func Empty() *Cart {
	return empty
}

func (c *Cart) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	if c == nil || len(c.items) == 0 {
		return []LineItem{}
	}
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Find(productID string) (LineItem, bool) {
	if i := c.index(productID); i >= 0 {
		return c.items[i], true
	}
	return LineItem{}, false
}

func (c *Cart) index(productID string) int {
	if c == nil {
		return -1
	}
	for i := range c.items {
		if c.items[i].ID == productID {
			return i
		}
	}
	return -1
}

// Equal reports whether both carts hold the same line items in the same order.
func (c *Cart) Equal(other *Cart) bool {
	if c.Len() != other.Len() {
		return false
	}
	for i := 0; i < c.Len(); i++ {
		if c.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

func (c *Cart) with(items []LineItem) *Cart {
	if len(items) == 0 {
		return empty
	}
	return &Cart{items: items}
}
