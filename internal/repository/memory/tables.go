package memory

import (
	"github.com/google/uuid"

	"github.com/nkiryanov/bazaar/internal/models"
)

// table keeps rows by id in insertion order
type table[V any] struct {
	rows  map[uuid.UUID]V
	order []uuid.UUID
}

func newTable[V any]() *table[V] {
	return &table[V]{rows: make(map[uuid.UUID]V)}
}

func (t *table[V]) put(id uuid.UUID, v V) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

type tables struct {
	listings     *table[models.Listing]
	bids         *table[models.Bid]
	transactions *table[models.Transaction]
	withdrawals  *table[models.Withdrawal]
	rewards      *table[models.RewardEvent]
	points       *table[models.RewardEvent] // applied rewards by event id
}

func newTables() *tables {
	return &tables{
		listings:     newTable[models.Listing](),
		bids:         newTable[models.Bid](),
		transactions: newTable[models.Transaction](),
		withdrawals:  newTable[models.Withdrawal](),
		rewards:      newTable[models.RewardEvent](),
		points:       newTable[models.RewardEvent](),
	}
}

func listingsOf(t *tables) *table[models.Listing]         { return t.listings }
func bidsOf(t *tables) *table[models.Bid]                 { return t.bids }
func transactionsOf(t *tables) *table[models.Transaction] { return t.transactions }
func withdrawalsOf(t *tables) *table[models.Withdrawal]   { return t.withdrawals }
func rewardsOf(t *tables) *table[models.RewardEvent]      { return t.rewards }
func pointsOf(t *tables) *table[models.RewardEvent]       { return t.points }

// view is committed data seen through uncommitted writes of a transaction
// Every nested transaction adds a layer, the innermost is last.
// Outside of transaction there are no layers and writes go straight to base
type view struct {
	base   *tables
	layers []*tables
}

func (v view) dst() *tables {
	if n := len(v.layers); n > 0 {
		return v.layers[n-1]
	}
	return v.base
}

func lookup[V any](v view, of func(*tables) *table[V], id uuid.UUID) (V, bool) {
	for i := len(v.layers) - 1; i >= 0; i-- {
		if row, ok := of(v.layers[i]).rows[id]; ok {
			return row, true
		}
	}
	row, ok := of(v.base).rows[id]
	return row, ok
}

func scan[V any](v view, of func(*tables) *table[V]) []V {
	base := of(v.base)
	out := make([]V, 0, len(base.order))
	seen := make(map[uuid.UUID]bool, len(base.order))

	emit := func(id uuid.UUID) {
		if seen[id] {
			return
		}
		seen[id] = true
		row, _ := lookup(v, of, id)
		out = append(out, row)
	}

	for _, id := range base.order {
		emit(id)
	}
	for _, layer := range v.layers {
		for _, id := range of(layer).order {
			emit(id)
		}
	}

	return out
}

func put[V any](v view, of func(*tables) *table[V], id uuid.UUID, row V) {
	of(v.dst()).put(id, row)
}

func merge[V any](dst, src *table[V]) {
	for _, id := range src.order {
		dst.put(id, src.rows[id])
	}
}

// mergeAll applies released nested writes to the parent transaction
func mergeAll(dst, src *tables) {
	merge(dst.listings, src.listings)
	merge(dst.bids, src.bids)
	merge(dst.transactions, src.transactions)
	merge(dst.withdrawals, src.withdrawals)
	merge(dst.rewards, src.rewards)
	merge(dst.points, src.points)
}
