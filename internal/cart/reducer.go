package cart

// Reduce returns the cart that results from applying a to state.
// It never mutates state. Actions that change nothing return state itself,
// so callers may compare pointers to detect a change.
func Reduce(state *Cart, a Action) *Cart {
	if state == nil {
		state = empty
	}

	switch a := a.(type) {
	case AddProduct:
		if i := state.index(a.Product.ID); i >= 0 {
			return state.bump(i, 1)
		}
		items := make([]LineItem, len(state.items), len(state.items)+1)
		copy(items, state.items)
		items = append(items, LineItem{Product: a.Product, Quantity: 1})
		return state.with(items)

	case IncrementProduct:
		if i := state.index(a.ProductID); i >= 0 {
			return state.bump(i, 1)
		}
		return state

	case DecrementProduct:
		i := state.index(a.ProductID)
		if i < 0 || state.items[i].Quantity <= 1 {
			return state
		}
		return state.bump(i, -1)

	case RemoveProduct:
		i := state.index(a.ProductID)
		if i < 0 {
			return state
		}
		items := make([]LineItem, 0, len(state.items)-1)
		items = append(items, state.items[:i]...)
		items = append(items, state.items[i+1:]...)
		return state.with(items)

	case ClearCart:
		if state.Len() == 0 {
			return state
		}
		return empty

	default:
		return state
	}
}

func (c *Cart) bump(i, delta int) *Cart {
	items := make([]LineItem, len(c.items))
	copy(items, c.items)
	items[i].Quantity += delta
	if items[i].Quantity < 1 {
		items[i].Quantity = 1
	}
	return c.with(items)
}
