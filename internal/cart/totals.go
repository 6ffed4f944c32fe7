package cart

// Totals are derived from a cart on read and never stored.
type Totals struct {
	// ItemCount is the number of distinct line items, not units.
	ItemCount int   `json:"item_count"`
	Quantity  int   `json:"quantity"`
	Subtotal  int64 `json:"subtotal"`
	PV        int64 `json:"pv"`
}

func Summarize(c *Cart) Totals {
	t := Totals{ItemCount: c.Len()}
	if c == nil {
		return t
	}
	for _, it := range c.items {
		qty := int64(it.Quantity)
		t.Quantity += it.Quantity
		t.Subtotal += it.Price * qty
		t.PV += it.PV * qty
	}
	return t
}
