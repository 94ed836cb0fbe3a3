package store

import (
	"slices"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/efreitasn/replaytrader/internal/domain"
)

// orderEntry is a pending order positioned in the store. Seq is a
// monotonically increasing insertion counter.
type orderEntry struct {
	Symbol string
	Seq    uint64
	Order  *domain.PendingOrder
}

// entryLess orders entries by symbol, then insertion sequence, so a range
// scan over one symbol yields its orders in submission order.
func entryLess(a, b orderEntry) bool {
	if a.Symbol != b.Symbol {
		return a.Symbol < b.Symbol
	}
	return a.Seq < b.Seq
}

// OrderStore is a thread-safe in-memory store for pending conditional
// orders. Orders are kept in a B-tree keyed by (symbol, seq) with a
// secondary index by order ID.
type OrderStore struct {
	mu    sync.RWMutex
	tree  *btree.BTreeG[orderEntry]
	index map[string]orderEntry // order_id → entry
	seq   uint64
	now   func() time.Time
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	const degree = 32
	return &OrderStore{
		tree:  btree.NewG[orderEntry](degree, entryLess),
		index: make(map[string]orderEntry),
		now:   time.Now,
	}
}

// Submit validates the order, assigns OrderID and CreatedAt, and appends
// it after every order already stored. The order is copied; the returned
// value is the stored version. Invalid orders leave the store unchanged.
func (s *OrderStore) Submit(o domain.PendingOrder) (domain.PendingOrder, error) {
	if o.Quantity <= 0 {
		return domain.PendingOrder{}, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}
	if !o.TargetPrice.IsPositive() {
		return domain.PendingOrder{}, &domain.ValidationError{Message: "target_price must be greater than 0"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	o.OrderID = uuid.New().String()
	o.CreatedAt = s.now()
	stored := o
	entry := orderEntry{Symbol: o.Symbol, Seq: s.seq, Order: &stored}
	s.tree.ReplaceOrInsert(entry)
	s.index[o.OrderID] = entry
	return stored, nil
}

// Cancel removes an order by ID. It reports whether an order was removed;
// an unknown ID is not an error.
func (s *OrderStore) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[id]
	if !ok {
		return false
	}
	delete(s.index, id)
	s.tree.Delete(entry)
	return true
}

// Get returns a copy of the order with the given ID.
func (s *OrderStore) Get(id string) (domain.PendingOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.index[id]
	if !ok {
		return domain.PendingOrder{}, false
	}
	return *entry.Order, true
}

// OrdersFor returns copies of the symbol's pending orders in insertion order.
func (s *OrderStore) OrdersFor(symbol string) []domain.PendingOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PendingOrder, 0)
	s.tree.AscendGreaterOrEqual(orderEntry{Symbol: symbol}, func(e orderEntry) bool {
		if e.Symbol != symbol {
			return false
		}
		out = append(out, *e.Order)
		return true
	})
	return out
}

// List returns copies of all pending orders in global insertion order.
func (s *OrderStore) List() []domain.PendingOrder {
	s.mu.RLock()
	entries := make([]orderEntry, 0, s.tree.Len())
	s.tree.Ascend(func(e orderEntry) bool {
		entries = append(entries, e)
		return true
	})
	s.mu.RUnlock()

	slices.SortFunc(entries, func(a, b orderEntry) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	out := make([]domain.PendingOrder, len(entries))
	for i, e := range entries {
		out[i] = *e.Order
	}
	return out
}

// Len returns the number of pending orders.
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}
