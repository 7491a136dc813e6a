package types

import "github.com/google/uuid"

// CartItems is the item-id keyed quantity map embedded in a cart row. The
// map is stored as a single JSONB document so per-key mutations can run as
// one atomic statement against the store. An item id must never be present
// with quantity zero; quantity zero means the key is removed.
type CartItems map[uuid.UUID]int

// Clone returns a deep copy, so seeding an active cart from a saved cart
// never aliases the saved document.
func (c CartItems) Clone() CartItems {
	if c == nil {
		return CartItems{}
	}
	out := make(CartItems, len(c))
	for id, qty := range c {
		out[id] = qty
	}
	return out
}

// IsEmpty reports whether the cart holds no items.
func (c CartItems) IsEmpty() bool {
	return len(c) == 0
}

// TotalUnits sums the quantities across all items.
func (c CartItems) TotalUnits() int {
	total := 0
	for _, qty := range c {
		total += qty
	}
	return total
}

// ItemIDs returns the item identifiers in the cart, unordered.
func (c CartItems) ItemIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	return ids
}
