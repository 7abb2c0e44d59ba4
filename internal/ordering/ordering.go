package ordering

import (
	"sort"

	"contentflow/internal/common"
)

// Position is one entry of a reorder batch.
type Position struct {
	ID    string `json:"id" validate:"required"`
	Order int    `json:"order" validate:"min=0"`
}

// SortByOrder sorts items in place by order, then createdAt, then id.
func SortByOrder(items []common.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Reorder moves the item at from to index to and renumbers the whole scope 0..n-1.
// scopeItems is treated as already sorted; the input slice is not modified.
func Reorder(scopeItems []common.Item, from, to int) ([]common.Item, error) {
	n := len(scopeItems)
	if from < 0 || from >= n {
		return nil, common.NewValidationError("fromIndex", "%d out of range [0,%d)", from, n)
	}
	if to < 0 || to >= n {
		return nil, common.NewValidationError("toIndex", "%d out of range [0,%d)", to, n)
	}

	out := make([]common.Item, 0, n)
	moved := scopeItems[from]
	for i, it := range scopeItems {
		if i != from {
			out = append(out, it)
		}
	}
	out = append(out, common.Item{})
	copy(out[to+1:], out[to:])
	out[to] = moved

	return Renumber(out), nil
}

// Renumber assigns order = index on a copy of items.
func Renumber(items []common.Item) []common.Item {
	out := make([]common.Item, len(items))
	for i, it := range items {
		it.Order = i
		out[i] = it
	}
	return out
}

func Positions(items []common.Item) []Position {
	out := make([]Position, len(items))
	for i, it := range items {
		out[i] = Position{ID: it.ID, Order: it.Order}
	}
	return out
}

// ValidateBatch checks a client batch against the scope's current ids.
// A different id set means the client is working from a stale view.
func ValidateBatch(current []common.Item, batch []Position) error {
	if len(batch) != len(current) {
		return common.NewConflictError("reorder batch has %d items, scope has %d", len(batch), len(current))
	}

	have := make(map[string]bool, len(current))
	for _, it := range current {
		have[it.ID] = true
	}
	seenID := make(map[string]bool, len(batch))
	seenOrder := make([]bool, len(batch))
	for _, p := range batch {
		if seenID[p.ID] {
			return common.NewValidationError("items", "duplicate id %s", p.ID)
		}
		seenID[p.ID] = true
		if !have[p.ID] {
			return common.NewConflictError("item %s is not in the scope", p.ID)
		}
	}
	for _, p := range batch {
		if p.Order < 0 || p.Order >= len(batch) || seenOrder[p.Order] {
			return common.NewValidationError("items", "orders must be a permutation of 0..%d", len(batch)-1)
		}
		seenOrder[p.Order] = true
	}
	return nil
}

// Apply returns current with orders taken from a validated batch, sorted by the new order.
func Apply(current []common.Item, batch []Position) []common.Item {
	orders := make(map[string]int, len(batch))
	for _, p := range batch {
		orders[p.ID] = p.Order
	}
	out := make([]common.Item, len(current))
	for _, it := range current {
		if o, ok := orders[it.ID]; ok {
			it.Order = o
		}
		out[it.Order] = it
	}
	return out
}

// Contiguous reports whether the orders of items are exactly 0..n-1.
func Contiguous(items []common.Item) bool {
	seen := make([]bool, len(items))
	for _, it := range items {
		if it.Order < 0 || it.Order >= len(items) || seen[it.Order] {
			return false
		}
		seen[it.Order] = true
	}
	return true
}

// NextOrder is the order a newly created item takes in a scope.
func NextOrder(maxOrder *int) int {
	if maxOrder == nil {
		return 0
	}
	return *maxOrder + 1
}
