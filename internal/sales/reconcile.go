package sales

import "github.com/google/uuid"

// mergeItems reconciles the incoming item collection into existing by item id.
//
// Existing items missing from incoming are dropped, matched items take the
// incoming product, quantity, price and discount while keeping their id,
// position and cancelled flag, and unmatched items are appended. Incoming
// items with a nil id never match and each receives a fresh id.
// The ids of dropped items are returned alongside the merged slice.
func mergeItems(saleID uuid.UUID, existing, incoming []Item) ([]Item, []uuid.UUID) {
	wanted := make(map[uuid.UUID]struct{}, len(incoming))
	for _, in := range incoming {
		if in.ID != uuid.Nil {
			wanted[in.ID] = struct{}{}
		}
	}

	merged := make([]Item, 0, len(incoming))
	var removed []uuid.UUID
	for _, cur := range existing {
		if _, ok := wanted[cur.ID]; !ok {
			removed = append(removed, cur.ID)
			continue
		}
		merged = append(merged, cur)
	}

	index := make(map[uuid.UUID]int, len(merged))
	for idx, cur := range merged {
		index[cur.ID] = idx
	}

	for _, in := range incoming {
		if idx, ok := index[in.ID]; ok && in.ID != uuid.Nil {
			cur := &merged[idx]
			cur.ProductID = in.ProductID
			cur.Quantity = in.Quantity
			cur.UnitPrice = in.UnitPrice
			cur.Discount = in.Discount
			continue
		}

		added := in
		if added.ID == uuid.Nil {
			added.ID = uuid.New()
		}
		added.SaleID = saleID
		merged = append(merged, added)
	}

	return merged, removed
}
